package recall

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rushteam/itemcf/core"
	"github.com/rushteam/itemcf/model"
	"github.com/rushteam/itemcf/store"
)

// a=(5,4,0) b=(3,0,1) c=(0,2,5)，按用户 u1/u2/u3
func trainedEngine(t *testing.T) *model.ItemCF {
	t.Helper()
	e := model.NewItemCF()
	rows := core.Interactions{
		{UserID: "u1", ItemID: "a", Rating: 5, Label: "Alpha"},
		{UserID: "u1", ItemID: "b", Rating: 3, Label: "Beta"},
		{UserID: "u2", ItemID: "a", Rating: 4},
		{UserID: "u2", ItemID: "c", Rating: 2, Label: "Gamma"},
		{UserID: "u3", ItemID: "b", Rating: 1},
		{UserID: "u3", ItemID: "c", Rating: 5},
	}
	if err := e.Prepare(rows); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if err := e.Train(); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	return e
}

func ids(items []*core.Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
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

func TestI2I_Recall(t *testing.T) {
	e := trainedEngine(t)
	simAB := 15 / math.Sqrt(410)
	simAC := 8 / math.Sqrt(1189)
	simBC := 5 / math.Sqrt(290)

	tests := []struct {
		name       string
		rctx       *core.RecommendContext
		limit      int
		wantIDs    []string
		wantScores []float64
	}{
		{
			name:       "single history seed",
			rctx:       &core.RecommendContext{History: map[string]float64{"a": 1}},
			wantIDs:    []string{"b", "c"},
			wantScores: []float64{simAB, simAC},
		},
		{
			name:       "seed from params weighted by one",
			rctx:       &core.RecommendContext{Params: map[string]any{core.ParamItemID: "c"}},
			wantIDs:    []string{"b", "a"},
			wantScores: []float64{simBC, simAC},
		},
		{
			name:       "ratings weight the seeds",
			rctx:       &core.RecommendContext{History: map[string]float64{"a": 2, "b": 1}},
			wantIDs:    []string{"b", "c", "a"},
			wantScores: []float64{2 * simAB, 2*simAC + simBC, simAB},
		},
		{
			name:    "limit",
			rctx:    &core.RecommendContext{History: map[string]float64{"a": 1}},
			limit:   1,
			wantIDs: []string{"b"},
		},
		{
			name:    "unknown seed is ignored",
			rctx:    &core.RecommendContext{History: map[string]float64{"zzz": 5}},
			wantIDs: []string{},
		},
		{
			name:    "no context",
			rctx:    nil,
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &I2I{Engine: e, Limit: tt.limit}
			items, err := r.Recall(context.Background(), tt.rctx)
			if err != nil {
				t.Fatalf("Recall() error = %v", err)
			}
			if got := ids(items); !equalIDs(got, tt.wantIDs) {
				t.Fatalf("Recall() ids = %v, want %v", got, tt.wantIDs)
			}
			for i, want := range tt.wantScores {
				if math.Abs(items[i].Score-want) > 1e-12 {
					t.Errorf("items[%d].Score = %v, want %v", i, items[i].Score, want)
				}
			}
		})
	}
}

func TestI2I_RecallOrdering(t *testing.T) {
	// a 与 b 的分数都等于 sim(a,b)，相似度矩阵对称，按 ID 升序
	e := trainedEngine(t)
	r := &I2I{Engine: e}
	items, err := r.Recall(context.Background(), &core.RecommendContext{History: map[string]float64{"a": 1, "b": 1}})
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(items); !equalIDs(got, []string{"a", "b", "c"}) {
		t.Errorf("ids = %v, want [a b c]", got)
	}
	if items[0].Title != "Alpha" {
		t.Errorf("Title = %q, want Alpha", items[0].Title)
	}
}

func TestI2I_NotTrained(t *testing.T) {
	e := model.NewItemCF()
	_ = e.Prepare(core.Interactions{{UserID: "u", ItemID: "a", Rating: 1}})
	r := &I2I{Engine: e}
	_, err := r.Recall(context.Background(), &core.RecommendContext{History: map[string]float64{"a": 1}})
	if !core.IsNotTrained(err) {
		t.Errorf("Recall() error = %v, want not trained", err)
	}
}

func TestI2I_ProcessLabels(t *testing.T) {
	r := &I2I{Engine: trainedEngine(t)}
	items, err := r.Process(context.Background(), &core.RecommendContext{History: map[string]float64{"a": 1}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range items {
		if it.Labels["recall_source"].Value != "i2i" {
			t.Errorf("%s recall_source = %+v", it.ID, it.Labels["recall_source"])
		}
	}
}

func TestPublishAndStoreI2I(t *testing.T) {
	ctx := context.Background()
	e := trainedEngine(t)
	s := store.NewMemoryStore()
	defer s.Close()

	p := &Publisher{Store: s, KeyPrefix: "test", BatchSize: 2}
	n, err := p.Publish(ctx, e)
	if err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if n != 3 || s.Len() != 3 {
		t.Fatalf("Publish() wrote %d keys, store has %d, want 3", n, s.Len())
	}
	if _, err := s.Get(ctx, "test:a"); err != nil {
		t.Fatalf("Get(test:a) error = %v", err)
	}

	rctx := &core.RecommendContext{History: map[string]float64{"a": 2, "b": 1}}
	online, err := (&I2I{Engine: e}).Recall(ctx, rctx)
	if err != nil {
		t.Fatal(err)
	}
	stored, err := (&StoreI2I{Store: s, KeyPrefix: "test"}).Recall(ctx, rctx)
	if err != nil {
		t.Fatal(err)
	}
	if !equalIDs(ids(online), ids(stored)) {
		t.Fatalf("store recall %v, engine recall %v", ids(stored), ids(online))
	}
	for i := range online {
		if online[i].Score != stored[i].Score || online[i].Title != stored[i].Title {
			t.Errorf("[%d] store %+v, engine %+v", i, stored[i], online[i])
		}
	}
}

func TestStoreI2I_Errors(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	defer s.Close()
	_ = s.Set(ctx, ItemKey("", "a"), []byte("not json"))

	r := &StoreI2I{Store: s}
	if _, err := r.Recall(ctx, &core.RecommendContext{History: map[string]float64{"a": 1}}); err == nil {
		t.Error("Recall() with corrupt payload should fail")
	}
	items, err := r.Recall(ctx, &core.RecommendContext{History: map[string]float64{"missing": 1}})
	if err != nil || len(items) != 0 {
		t.Errorf("Recall(missing) = %v, %v", items, err)
	}
}

func TestPublish_NoStore(t *testing.T) {
	if _, err := (&Publisher{}).Publish(context.Background(), trainedEngine(t)); err == nil {
		t.Error("Publish() without store should fail")
	}
}

type staticSource struct {
	name  string
	items []string
	score float64
	err   error
	delay time.Duration
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) Recall(ctx context.Context, _ *core.RecommendContext) ([]*core.Item, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*core.Item, len(s.items))
	for i, id := range s.items {
		out[i] = core.NewItem(id)
		out[i].Score = s.score
	}
	return out, nil
}

func TestFanout_Process(t *testing.T) {
	sources := func() []Source {
		return []Source{
			&staticSource{name: "slow", items: []string{"x", "y"}, score: 1, delay: 20 * time.Millisecond},
			&staticSource{name: "fast", items: []string{"y", "z"}, score: 2},
			&staticSource{name: "broken", err: errors.New("boom")},
		}
	}

	tests := []struct {
		name     string
		fanout   *Fanout
		wantIDs  []string
		wantYSum float64
	}{
		{
			name:     "first keeps source order",
			fanout:   &Fanout{Dedup: true},
			wantIDs:  []string{"x", "y", "z"},
			wantYSum: 1,
		},
		{
			name:     "priority sums duplicate scores",
			fanout:   &Fanout{Dedup: true, MergeStrategy: MergePriority, MaxConcurrent: 1},
			wantIDs:  []string{"x", "y", "z"},
			wantYSum: 3,
		},
		{
			name:     "union keeps duplicates",
			fanout:   &Fanout{MergeStrategy: MergeUnion},
			wantIDs:  []string{"x", "y", "y", "z"},
			wantYSum: 1,
		},
		{
			name:     "timeout drops slow source",
			fanout:   &Fanout{Dedup: true, Timeout: time.Millisecond},
			wantIDs:  []string{"y", "z"},
			wantYSum: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fanout.Sources = sources()
			items, err := tt.fanout.Process(context.Background(), &core.RecommendContext{}, nil)
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if got := ids(items); !equalIDs(got, tt.wantIDs) {
				t.Fatalf("ids = %v, want %v", got, tt.wantIDs)
			}
			for _, it := range items {
				if it.ID == "y" {
					if it.Score != tt.wantYSum {
						t.Errorf("y.Score = %v, want %v", it.Score, tt.wantYSum)
					}
					break
				}
			}
		})
	}
}

func TestFanout_Labels(t *testing.T) {
	f := &Fanout{
		Dedup: true,
		Sources: []Source{
			&staticSource{name: "s0", items: []string{"y"}},
			&staticSource{name: "s1", items: []string{"y"}},
		},
	}
	items, err := f.Process(context.Background(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 {
		t.Fatalf("len = %d", len(items))
	}
	lbl := items[0].Labels["recall_source"]
	if lbl.Value != "s0|s1" || lbl.Source != "recall" {
		t.Errorf("recall_source = %+v", lbl)
	}
}

func TestHot(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	defer s.Close()

	fallback := &Hot{Store: s, IDs: []string{"p", "q", "r"}, Limit: 2}
	items, err := fallback.Recall(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(items); !equalIDs(got, []string{"p", "q"}) || items[0].Score != 3 {
		t.Fatalf("fallback Recall() = %v (score %v)", got, items[0].Score)
	}

	p := &Publisher{Store: s}
	if err := p.PublishHot(ctx, trainedEngine(t), "", 3); err != nil {
		t.Fatalf("PublishHot() error = %v", err)
	}
	items, err = (&Hot{Store: s}).Process(ctx, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	// 每个物品都有 2 个评分用户，按下标升序
	if got := ids(items); !equalIDs(got, []string{"a", "b", "c"}) {
		t.Errorf("Recall() = %v, want [a b c]", got)
	}
	if items[0].Title != "Alpha" || items[0].Score != 2 || items[0].Labels["recall_source"].Value != "hot" {
		t.Errorf("items[0] = %+v", items[0])
	}

	_ = s.Set(ctx, DefaultHotKey, []byte("oops"))
	if _, err := (&Hot{Store: s}).Recall(ctx, nil); err == nil {
		t.Error("Recall() with corrupt payload should fail")
	}
}

func TestI2I_SkipsZeroScorePadding(t *testing.T) {
	ctx := context.Background()
	e := model.NewItemCF()
	rows := core.Interactions{
		{UserID: "u1", ItemID: "x", Rating: 4},
		{UserID: "u1", ItemID: "y", Rating: 2},
		{UserID: "u2", ItemID: "p", Rating: 5},
		{UserID: "u3", ItemID: "q", Rating: 3},
		{UserID: "u4", ItemID: "r", Rating: 1},
	}
	if err := e.Prepare(rows); err != nil {
		t.Fatal(err)
	}
	if err := e.Train(); err != nil {
		t.Fatal(err)
	}
	// 引擎本身仍按条数补齐
	nbs, _, err := e.Neighbors("x", 4)
	if err != nil || len(nbs) != 4 {
		t.Fatalf("Neighbors() = %v, %v; want 4 entries", nbs, err)
	}

	rctx := &core.RecommendContext{Params: map[string]any{core.ParamItemID: "x"}}
	online, err := (&I2I{Engine: e, TopN: 4}).Recall(ctx, rctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(online); !equalIDs(got, []string{"y"}) {
		t.Errorf("I2I.Recall() = %v, want [y]", got)
	}

	s := store.NewMemoryStore()
	defer s.Close()
	if _, err := (&Publisher{Store: s, TopN: 4}).Publish(ctx, e); err != nil {
		t.Fatal(err)
	}
	raw, err := s.Get(ctx, ItemKey("", "p"))
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "[]" {
		t.Errorf("published list for p = %s, want []", raw)
	}
	stored, err := (&StoreI2I{Store: s}).Recall(ctx, rctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(stored); !equalIDs(got, []string{"y"}) {
		t.Errorf("StoreI2I.Recall() = %v, want [y]", got)
	}
}
