package recall

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rushteam/itemcf/core"
	"github.com/rushteam/itemcf/pipeline"
	"github.com/rushteam/itemcf/pkg/utils"
)

// StoreI2I 从 Store 读取 Publisher 发布的 i2i 列表做召回，打分方式与 I2I 相同。
// 在线服务只需读取存储，不需要加载训练数据。
type StoreI2I struct {
	Store     core.Store
	KeyPrefix string // 默认 DefaultKeyPrefix
	TopN      int    // 每个种子取的邻居数，0 表示取已发布的全部
	Limit     int    // 返回候选上限，0 表示不限
}

func (r *StoreI2I) Name() string        { return "recall.store_i2i" }
func (r *StoreI2I) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *StoreI2I) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	ss := seeds(rctx)
	if len(ss) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ss))
	for i, s := range ss {
		keys[i] = ItemKey(r.KeyPrefix, s.itemID)
	}
	values, err := r.Store.BatchGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("%s batch get: %w", r.Store.Name(), err)
	}

	acc := newAccumulator()
	for i, s := range ss {
		raw, ok := values[keys[i]]
		if !ok {
			continue
		}
		var records []NeighborRecord
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("decode %s: %w", keys[i], err)
		}
		if r.TopN > 0 && len(records) > r.TopN {
			records = records[:r.TopN]
		}
		for _, rec := range records {
			if rec.Score <= 0 {
				continue
			}
			acc.add(rec.ItemID, rec.Label, s.weight*rec.Score)
		}
	}
	return acc.items(r.Limit), nil
}

func (r *StoreI2I) Process(ctx context.Context, rctx *core.RecommendContext, _ []*core.Item) ([]*core.Item, error) {
	items, err := r.Recall(ctx, rctx)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		it.PutLabel("recall_source", utils.Label{Value: "store_i2i", Source: "recall"})
	}
	return items, nil
}
