package filter

import (
	"context"
	"errors"
	"testing"

	"github.com/rushteam/itemcf/core"
	"github.com/rushteam/itemcf/pkg/utils"
	"github.com/rushteam/itemcf/store"
)

func items(ids ...string) []*core.Item {
	out := make([]*core.Item, len(ids))
	for i, id := range ids {
		out[i] = core.NewItem(id)
		out[i].Score = float64(len(ids) - i)
	}
	return out
}

func ids(items []*core.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

type errFilter struct{}

func (errFilter) Name() string { return "filter.err" }

func (errFilter) ShouldFilter(context.Context, *core.RecommendContext, *core.Item) (bool, error) {
	return true, errors.New("boom")
}

func TestFilterNode_Process(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	defer s.Close()
	if err := s.Set(ctx, "blacklist", []byte(`["d"]`)); err != nil {
		t.Fatal(err)
	}

	expr, err := NewExprFilter(`item.score < 2.0`)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		filters []Filter
		rctx    *core.RecommendContext
		want    []string
	}{
		{
			name: "no filters",
			want: []string{"a", "b", "c", "d", "e"},
		},
		{
			name:    "history and seed",
			filters: []Filter{&HistoryFilter{}},
			rctx: &core.RecommendContext{
				History: map[string]float64{"a": 5},
				Params:  map[string]any{core.ParamItemID: "c"},
			},
			want: []string{"b", "d", "e"},
		},
		{
			name:    "history without context",
			filters: []Filter{&HistoryFilter{}},
			want:    []string{"a", "b", "c", "d", "e"},
		},
		{
			name:    "blacklist memory and store",
			filters: []Filter{NewBlacklistFilter([]string{"b"}, s, "blacklist")},
			want:    []string{"a", "c", "e"},
		},
		{
			name:    "blacklist missing store key",
			filters: []Filter{NewBlacklistFilter(nil, s, "nope")},
			want:    []string{"a", "b", "c", "d", "e"},
		},
		{
			name:    "expression",
			filters: []Filter{expr},
			want:    []string{"a", "b", "c", "d"},
		},
		{
			name:    "failing filter keeps item",
			filters: []Filter{errFilter{}},
			want:    []string{"a", "b", "c", "d", "e"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &FilterNode{Filters: tt.filters}
			out, err := n.Process(ctx, tt.rctx, items("a", "b", "c", "d", "e"))
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if got := ids(out); !equal(got, tt.want) {
				t.Errorf("Process() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBlacklistFilter_CorruptStore(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	defer s.Close()
	_ = s.Set(ctx, "blacklist", []byte("{"))

	f := NewBlacklistFilter(nil, s, "blacklist")
	if _, err := f.ShouldFilter(ctx, nil, core.NewItem("a")); err == nil {
		t.Error("ShouldFilter() with corrupt blacklist should fail")
	}
}

type countingStore struct {
	core.Store
	gets int
}

func (s *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.gets++
	return s.Store.Get(ctx, key)
}

func TestFilterNode_LoadsBlacklistOncePerRequest(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	defer mem.Close()
	if err := mem.Set(ctx, "blacklist", []byte(`["b","d"]`)); err != nil {
		t.Fatal(err)
	}
	s := &countingStore{Store: mem}
	n := &FilterNode{Filters: []Filter{NewBlacklistFilter([]string{"e"}, s, "blacklist")}}

	for round := 1; round <= 2; round++ {
		out, err := n.Process(ctx, nil, items("a", "b", "c", "d", "e"))
		if err != nil {
			t.Fatalf("Process() error = %v", err)
		}
		if got, want := ids(out), []string{"a", "c"}; !equal(got, want) {
			t.Errorf("Process() = %v, want %v", got, want)
		}
		if s.gets != round {
			t.Errorf("store gets after %d requests = %d, want %d", round, s.gets, round)
		}
	}

	if err := mem.Set(ctx, "blacklist", []byte("{")); err != nil {
		t.Fatal(err)
	}
	out, err := n.Process(ctx, nil, items("a", "e"))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if got, want := ids(out), []string{"a", "e"}; !equal(got, want) {
		t.Errorf("Process() with corrupt blacklist = %v, want %v", got, want)
	}
}

func TestExprFilter(t *testing.T) {
	if _, err := NewExprFilter(`item.score >`); err == nil {
		t.Error("NewExprFilter() with syntax error should fail")
	}

	f, err := NewExprFilter(`label.recall_source == "store_i2i"`)
	if err != nil {
		t.Fatal(err)
	}
	it := core.NewItem("a")
	it.PutLabel("recall_source", utils.Label{Value: "store_i2i", Source: "recall"})
	got, err := f.ShouldFilter(context.Background(), nil, it)
	if err != nil || !got {
		t.Errorf("ShouldFilter() = %v, %v, want true", got, err)
	}

	empty, err := NewExprFilter("")
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := empty.ShouldFilter(context.Background(), nil, it); got {
		t.Error("empty expression should keep the item")
	}
}
