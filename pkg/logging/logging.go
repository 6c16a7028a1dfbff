// Package logging 基于 zerolog 构建日志实例。
//
// 库代码不持有全局 logger：引擎等组件通过 Option 注入 zerolog.Logger，
// 默认 zerolog.Nop()；只有 cmd 入口调用 New 构建真正输出的 logger。
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config 是日志配置。
type Config struct {
	// Level: trace / debug / info / warn / error，默认 info
	Level string `yaml:"level" json:"level"`

	// Format: json / console，默认 json
	Format string `yaml:"format" json:"format"`

	// Output 默认 os.Stderr
	Output io.Writer `yaml:"-" json:"-"`
}

// New 根据配置构建 logger；无法识别的级别按 info 处理。
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
