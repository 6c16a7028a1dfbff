package recall

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rushteam/itemcf/core"
	"github.com/rushteam/itemcf/model"
	"github.com/rushteam/itemcf/pipeline"
	"github.com/rushteam/itemcf/pkg/utils"
)

// DefaultHotKey 是热门列表在 Store 中的默认 key。
const DefaultHotKey = "hot:items"

// Hot 是热门召回源，用于冷启动（用户无历史或种子物品未知）。
//   - Store 中 Key 存在时读取 Publisher.PublishHot 写入的 JSON 列表
//   - 否则使用内存中的 IDs 作为 fallback，分数按位置递减
//
// Hot 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用
type Hot struct {
	Store core.Store
	Key   string   // 默认 DefaultHotKey
	IDs   []string // fallback 内存列表
	Limit int      // 0 表示不限
}

func (r *Hot) Name() string        { return "recall.hot" }
func (r *Hot) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *Hot) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	items, err := r.Recall(ctx, rctx)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		it.PutLabel("recall_source", utils.Label{Value: "hot", Source: "recall"})
	}
	return items, nil
}

// Recall 实现 Source 接口
func (r *Hot) Recall(
	ctx context.Context,
	_ *core.RecommendContext,
) ([]*core.Item, error) {
	records, err := r.load(ctx)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = make([]NeighborRecord, len(r.IDs))
		for i, id := range r.IDs {
			records[i] = NeighborRecord{ItemID: id, Score: float64(len(r.IDs) - i)}
		}
	}
	if r.Limit > 0 && len(records) > r.Limit {
		records = records[:r.Limit]
	}

	out := make([]*core.Item, 0, len(records))
	for _, rec := range records {
		it := core.NewItem(rec.ItemID)
		it.Title = rec.Label
		it.Score = rec.Score
		out = append(out, it)
	}
	return out, nil
}

func (r *Hot) key() string {
	if r.Key == "" {
		return DefaultHotKey
	}
	return r.Key
}

// load 读取存储中的热门列表；key 不存在返回 nil。
func (r *Hot) load(ctx context.Context) ([]NeighborRecord, error) {
	if r.Store == nil {
		return nil, nil
	}
	raw, err := r.Store.Get(ctx, r.key())
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var records []NeighborRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", r.key(), err)
	}
	return records, nil
}

// PopularIndex 是发布热门列表所需的引擎能力，model.ItemCF 实现了它。
type PopularIndex interface {
	Popular(n int) ([]model.Neighbor, error)
}

// PublishHot 把引擎统计的前 n 个热门物品写入 key（为空时 DefaultHotKey）。
func (p *Publisher) PublishHot(ctx context.Context, engine PopularIndex, key string, n int) error {
	if p.Store == nil {
		return fmt.Errorf("publish hot: store not set")
	}
	if key == "" {
		key = DefaultHotKey
	}
	popular, err := engine.Popular(n)
	if err != nil {
		return fmt.Errorf("publish hot: %w", err)
	}
	payload, err := json.Marshal(toRecords(popular))
	if err != nil {
		return fmt.Errorf("marshal hot: %w", err)
	}
	return p.Store.Set(ctx, key, payload, p.TTL)
}
