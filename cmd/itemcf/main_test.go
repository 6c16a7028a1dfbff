package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const ratingsCSV = `User-ID;ISBN;Rating;Book-Title
u1;a;5;Alpha
u1;b;3;Beta
u2;a;4;
u2;c;2;Gamma
u3;b;1;
u3;c;5;
u3;d;0;Zero
`

const pipelineYAML = `
pipeline:
  name: similar
  nodes:
    - type: recall.fanout
      config:
        merge_strategy: priority
        sources:
          - type: i2i
          - type: store_i2i
    - type: filter
      config:
        filters:
          - type: history
    - type: rerank.topn
      config:
        n: 5
`

func setup(t *testing.T, withPipeline bool) string {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}
	ratings := write("Ratings.csv", ratingsCSV)
	app := "data:\n  ratings: " + ratings + "\n  latin1: false\nlog:\n  level: error\n"
	if withPipeline {
		app += "pipeline: " + write("pipeline.yaml", pipelineYAML) + "\n"
	}
	return write("app.yaml", app)
}

func TestRun(t *testing.T) {
	tests := []struct {
		name         string
		item         string
		withPipeline bool
		want         []string
		notWant      []string
	}{
		{
			name: "first item by default",
			want: []string{"Data Loaded. Rows: 6", "item: a", "1. Beta", "2. Gamma"},
		},
		{
			name:    "unknown item",
			item:    "nope",
			want:    []string{"Item not found in database."},
			notWant: []string{"1. "},
		},
		{
			name:         "pipeline",
			item:         "a",
			withPipeline: true,
			want:         []string{`Pipeline "similar" results:`, "1. Beta (b)", "2. Gamma (c)"},
			notWant:      []string{"(a)"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := run(context.Background(), &out, options{configPath: setup(t, tt.withPipeline), itemID: tt.item, topN: 3}); err != nil {
				t.Fatalf("run() error = %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out.String(), w) {
					t.Errorf("output missing %q:\n%s", w, out.String())
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(out.String(), nw) {
					t.Errorf("output should not contain %q:\n%s", nw, out.String())
				}
			}
		})
	}
}

func TestRun_BadConfig(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), &out, options{configPath: filepath.Join(t.TempDir(), "missing.yaml")}); err == nil {
		t.Error("run() with missing config should fail")
	}
}
