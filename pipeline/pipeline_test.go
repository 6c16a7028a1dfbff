package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rushteam/itemcf/core"
)

type appendNode struct {
	id  string
	err error
}

func (n *appendNode) Name() string { return "test.append" }
func (n *appendNode) Kind() Kind   { return KindRecall }

func (n *appendNode) Process(_ context.Context, _ *core.RecommendContext, items []*core.Item) ([]*core.Item, error) {
	if n.err != nil {
		return nil, n.err
	}
	return append(items, core.NewItem(n.id)), nil
}

func TestPipeline_Run(t *testing.T) {
	p := &Pipeline{Nodes: []Node{&appendNode{id: "a"}, &appendNode{id: "b"}}}
	out, err := p.Run(context.Background(), &core.RecommendContext{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].ID != "a" || out[1].ID != "b" {
		t.Errorf("Run() = %v", out)
	}

	boom := errors.New("boom")
	p = &Pipeline{Nodes: []Node{&appendNode{id: "a"}, &appendNode{err: boom}}}
	if _, err := p.Run(context.Background(), nil, nil); !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want wrapping boom", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := (&Pipeline{Nodes: []Node{&appendNode{id: "a"}}}).Run(ctx, nil, nil); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() on cancelled context error = %v", err)
	}
}

type countingObserver struct {
	calls  int
	errors int
}

func (o *countingObserver) ObserveNode(node, kind string, _ time.Duration, err error) {
	o.calls++
	if err != nil {
		o.errors++
	}
}

func TestPipeline_Observer(t *testing.T) {
	obs := &countingObserver{}
	p := &Pipeline{
		Nodes:    []Node{&appendNode{id: "a"}, &appendNode{err: errors.New("boom")}, &appendNode{id: "c"}},
		Observer: obs,
	}
	if _, err := p.Run(context.Background(), nil, nil); err == nil {
		t.Fatal("Run() error = nil")
	}
	if obs.calls != 2 || obs.errors != 1 {
		t.Errorf("observer calls = %d errors = %d, want 2 and 1", obs.calls, obs.errors)
	}
}

func TestConfig_BuildPipeline(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "p.yaml")
	jsonPath := filepath.Join(dir, "p.json")
	_ = os.WriteFile(yamlPath, []byte("pipeline:\n  name: y\n  nodes:\n    - type: test.append\n      config:\n        id: x\n"), 0o600)
	_ = os.WriteFile(jsonPath, []byte(`{"pipeline":{"name":"j","nodes":[{"type":"test.append","config":{"id":"x"}},{"type":"unknown"}]}}`), 0o600)

	f := NewNodeFactory()
	f.Register("test.append", func(cfg map[string]any) (Node, error) {
		id, _ := cfg["id"].(string)
		return &appendNode{id: id}, nil
	})
	if got := f.Types(); len(got) != 1 || got[0] != "test.append" {
		t.Errorf("Types() = %v", got)
	}

	cfg, err := LoadConfig(yamlPath)
	if err != nil {
		t.Fatal(err)
	}
	p, err := cfg.BuildPipeline(f)
	if err != nil {
		t.Fatal(err)
	}
	out, err := p.Run(context.Background(), nil, nil)
	if err != nil || len(out) != 1 || out[0].ID != "x" {
		t.Errorf("Run() = %v, %v", out, err)
	}

	cfg, err = LoadConfig(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Pipeline.Name != "j" {
		t.Errorf("Name = %q", cfg.Pipeline.Name)
	}
	if _, err := cfg.BuildPipeline(f); err == nil {
		t.Error("BuildPipeline() with unknown node type should fail")
	}
	if _, err := LoadConfig(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("LoadConfig(missing) should fail")
	}
}
