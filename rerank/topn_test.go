package rerank

import (
	"context"
	"testing"

	"github.com/rushteam/itemcf/core"
)

func TestTopNNode_Process(t *testing.T) {
	build := func() []*core.Item {
		scores := map[string]float64{"d": 0.5, "a": 0.9, "c": 0.9, "b": 0.1}
		out := make([]*core.Item, 0, len(scores))
		for _, id := range []string{"d", "c", "b", "a"} {
			it := core.NewItem(id)
			it.Score = scores[id]
			out = append(out, it)
		}
		return out
	}

	tests := []struct {
		name string
		n    int
		want []string
	}{
		{"truncate", 2, []string{"a", "c"}},
		{"no truncate", 0, []string{"a", "c", "d", "b"}},
		{"n larger than input", 10, []string{"a", "c", "d", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := (&TopNNode{N: tt.n}).Process(context.Background(), nil, build())
			if err != nil {
				t.Fatal(err)
			}
			if len(out) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(out), len(tt.want))
			}
			for i, id := range tt.want {
				if out[i].ID != id {
					t.Errorf("out[%d] = %s, want %s", i, out[i].ID, id)
				}
			}
		})
	}
}

func TestTopNNode_Empty(t *testing.T) {
	out, err := (&TopNNode{N: 3}).Process(context.Background(), nil, nil)
	if err != nil || len(out) != 0 {
		t.Errorf("Process(nil) = %v, %v", out, err)
	}
}
