package config

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/rushteam/itemcf/core"
	"github.com/rushteam/itemcf/data"
	"github.com/rushteam/itemcf/model"
	"github.com/rushteam/itemcf/pkg/logging"
	"github.com/rushteam/itemcf/recall"
	"github.com/rushteam/itemcf/server"
	"github.com/rushteam/itemcf/store"
)

// AppConfig 是 cmd/itemcf 的应用配置（YAML）。
//
//	data:
//	  ratings: data/Ratings.csv        # 本地路径 / s3://bucket/key / https://...
//	  metadata: data/Books.csv         # 可选，提供 item_label
//	  delimiter: ";"
//	  latin1: true
//	engine:
//	  top_n: 5
//	publish:
//	  enabled: true
//	  backend: redis                   # redis / badger / memory
//	  key_prefix: i2i
//	redis:
//	  addr: 127.0.0.1:6379
//	badger:
//	  path: /var/lib/itemcf
//	breaker:
//	  enabled: true
//	server:
//	  addr: :8080
//	log:
//	  level: info
type AppConfig struct {
	Data     DataConfig          `yaml:"data"`
	Engine   EngineConfig        `yaml:"engine"`
	Publish  PublishConfig       `yaml:"publish"`
	Redis    store.RedisConfig   `yaml:"redis"`
	Badger   store.BadgerConfig  `yaml:"badger"`
	Breaker  store.BreakerConfig `yaml:"breaker"`
	Server   server.Config       `yaml:"server"`
	Log      logging.Config      `yaml:"log"`
	Pipeline string              `yaml:"pipeline"` // 可选：pipeline 配置文件路径
}

// DataConfig 描述评分数据与物品元数据的来源。
type DataConfig struct {
	Ratings   string       `yaml:"ratings"`
	Metadata  string       `yaml:"metadata"`
	Delimiter string       `yaml:"delimiter"`
	Latin1    bool         `yaml:"latin1"`
	Columns   data.Columns `yaml:"columns"`
}

// EngineConfig 是引擎查询参数。
type EngineConfig struct {
	TopN int `yaml:"top_n"`
}

// 发布存储后端。
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// PublishConfig 控制训练后是否把 i2i 列表与热门列表写入存储。
type PublishConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Backend   string `yaml:"backend"`
	KeyPrefix string `yaml:"key_prefix"`
	TTL       int    `yaml:"ttl"` // 秒，0 表示不过期
	HotKey    string `yaml:"hot_key"`
	HotN      int    `yaml:"hot_n"`
}

// DefaultAppConfig 返回默认配置（Book-Crossing 数据集布局）。
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Data: DataConfig{
			Ratings:   "data/Ratings.csv",
			Delimiter: ";",
			Latin1:    true,
			Columns:   data.DefaultColumns(),
		},
		Engine: EngineConfig{TopN: model.DefaultTopN},
		Publish: PublishConfig{
			Backend:   BackendRedis,
			KeyPrefix: recall.DefaultKeyPrefix,
			HotKey:    recall.DefaultHotKey,
			HotN:      100,
		},
		Redis: store.RedisConfig{Addr: "127.0.0.1:6379"},
		Log:   logging.Config{Level: "info", Format: "console"},
	}
}

// LoadAppConfig 读取 YAML 并在默认配置上覆盖；path 为空时返回默认配置。
func LoadAppConfig(path string) (*AppConfig, error) {
	cfg := DefaultAppConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置。
func (c *AppConfig) Validate() error {
	if c.Data.Ratings == "" {
		return fmt.Errorf("data.ratings is required")
	}
	if c.Data.Delimiter != "" && utf8.RuneCountInString(c.Data.Delimiter) != 1 {
		return fmt.Errorf("data.delimiter must be a single character, got %q", c.Data.Delimiter)
	}
	if c.Engine.TopN < 0 {
		return fmt.Errorf("engine.top_n must be >= 0, got %d", c.Engine.TopN)
	}
	if c.Publish.Enabled {
		switch c.Publish.Backend {
		case BackendRedis:
			if c.Redis.Addr == "" {
				return fmt.Errorf("publish.backend redis requires redis.addr")
			}
		case BackendBadger, BackendMemory:
		default:
			return fmt.Errorf("publish.backend must be one of redis, badger, memory, got %q", c.Publish.Backend)
		}
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must be >= 0, got %d", c.Server.RateLimit)
	}
	return nil
}

// OpenStore 按 publish.backend 打开发布存储；启用 breaker 时给远端存储加熔断。
// 未启用发布时返回内存存储。
func (c *AppConfig) OpenStore(ctx context.Context, logger zerolog.Logger) (core.Store, error) {
	if !c.Publish.Enabled {
		return store.NewMemoryStore(), nil
	}
	var (
		kv  core.Store
		err error
	)
	switch c.Publish.Backend {
	case BackendRedis:
		kv, err = store.NewRedisStore(ctx, c.Redis)
	case BackendBadger:
		kv, err = store.NewBadgerStore(c.Badger)
	default:
		kv = store.NewMemoryStore()
	}
	if err != nil {
		return nil, err
	}
	if c.Breaker.Enabled {
		kv = store.NewBreakerStore(kv, c.Breaker, logger)
	}
	return kv, nil
}

// DelimiterRune 返回分隔符字符，未配置时为 0（由 data.ReadCSV 取默认值）。
func (d DataConfig) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(d.Delimiter)
	if r == utf8.RuneError {
		return 0
	}
	return r
}

// NewLoader 根据数据配置构建 data.Loader；s3 为 S3 兼容客户端，不使用 s3:// 时可为 nil。
func (d DataConfig) NewLoader(s3 data.S3Client, logger zerolog.Logger) (*data.Loader, error) {
	ratings, err := data.ParseSource(d.Ratings, s3)
	if err != nil {
		return nil, fmt.Errorf("data.ratings: %w", err)
	}
	l := &data.Loader{
		Ratings:   ratings,
		Columns:   d.Columns,
		Delimiter: d.DelimiterRune(),
		Latin1:    d.Latin1,
		Logger:    logger,
	}
	if d.Metadata != "" {
		if l.Metadata, err = data.ParseSource(d.Metadata, s3); err != nil {
			return nil, fmt.Errorf("data.metadata: %w", err)
		}
	}
	return l, nil
}
