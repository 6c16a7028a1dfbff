package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		logDebug  bool
		wantEmpty bool
		wantJSON  bool
	}{
		{name: "default level drops debug", cfg: Config{}, logDebug: true, wantEmpty: true},
		{name: "debug level keeps debug", cfg: Config{Level: "DEBUG"}, logDebug: true, wantJSON: true},
		{name: "unknown level falls back to info", cfg: Config{Level: "loud"}, wantJSON: true},
		{name: "console format", cfg: Config{Format: "console"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.cfg.Output = &buf
			logger := New(tt.cfg)
			if tt.logDebug {
				logger.Debug().Str("k", "v").Msg("hello")
			} else {
				logger.Info().Str("k", "v").Msg("hello")
			}

			out := buf.String()
			if tt.wantEmpty {
				if out != "" {
					t.Errorf("output = %q, want empty", out)
				}
				return
			}
			if !strings.Contains(out, "hello") {
				t.Errorf("output = %q, want message", out)
			}
			if tt.wantJSON && !strings.HasPrefix(out, "{") {
				t.Errorf("output = %q, want JSON", out)
			}
		})
	}
}
