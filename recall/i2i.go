package recall

import (
	"cmp"
	"context"
	"slices"

	"github.com/rushteam/itemcf/core"
	"github.com/rushteam/itemcf/model"
	"github.com/rushteam/itemcf/pipeline"
	"github.com/rushteam/itemcf/pkg/conv"
	"github.com/rushteam/itemcf/pkg/utils"
)

// NeighborFinder 是 i2i 召回依赖的相似邻居查询，model.ItemCF 实现了它。
type NeighborFinder interface {
	Neighbors(itemID string, topN int) ([]model.Neighbor, bool, error)
}

// I2I 以用户历史（以及 Params[core.ParamItemID]）中的物品为种子，
// 取每个种子的 TopN 相似物品，按 Σ 种子评分 × 相似度 聚合打分。
//
// 种子权重：历史物品取其评分，Params["item_id"] 取 1。
// 未知的种子物品被忽略；相似度 <= 0 的邻居不作为候选；引擎未训练时返回错误。
type I2I struct {
	Engine NeighborFinder
	TopN   int // 每个种子取的邻居数，<= 0 时使用 model.DefaultTopN
	Limit  int // 返回候选上限，0 表示不限
}

func (r *I2I) Name() string        { return "recall.i2i" }
func (r *I2I) Kind() pipeline.Kind { return pipeline.KindRecall }

func (r *I2I) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	acc := newAccumulator()
	for _, s := range seeds(rctx) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		neighbors, found, err := r.Engine.Neighbors(s.itemID, r.TopN)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		for _, nb := range neighbors {
			// 0 分项只是为凑足条数的补齐，与种子无共现
			if nb.Score <= 0 {
				continue
			}
			acc.add(nb.ItemID, nb.Label, s.weight*nb.Score)
		}
	}
	return acc.items(r.Limit), nil
}

// Process 使 I2I 可以直接作为 Pipeline 的召回节点使用。
func (r *I2I) Process(ctx context.Context, rctx *core.RecommendContext, _ []*core.Item) ([]*core.Item, error) {
	items, err := r.Recall(ctx, rctx)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		it.PutLabel("recall_source", utils.Label{Value: "i2i", Source: "recall"})
	}
	return items, nil
}

type seed struct {
	itemID string
	weight float64
}

// seeds 按物品标识排序，保证聚合顺序（进而浮点结果）确定。
func seeds(rctx *core.RecommendContext) []seed {
	if rctx == nil {
		return nil
	}
	weights := make(map[string]float64, len(rctx.History)+1)
	for id, rating := range rctx.History {
		weights[id] += rating
	}
	if id := conv.ConfigGet(rctx.Params, core.ParamItemID, ""); id != "" {
		weights[id]++
	}
	out := make([]seed, 0, len(weights))
	for id, w := range weights {
		out = append(out, seed{itemID: id, weight: w})
	}
	slices.SortFunc(out, func(a, b seed) int { return cmp.Compare(a.itemID, b.itemID) })
	return out
}

type candidate struct {
	title string
	score float64
}

// accumulator 按物品聚合分数。
type accumulator struct {
	byID map[string]*candidate
}

func newAccumulator() *accumulator {
	return &accumulator{byID: make(map[string]*candidate)}
}

func (a *accumulator) add(itemID, title string, score float64) {
	c, ok := a.byID[itemID]
	if !ok {
		c = &candidate{title: title}
		a.byID[itemID] = c
	}
	c.score += score
}

// items 按分数降序、标识升序输出。
func (a *accumulator) items(limit int) []*core.Item {
	out := make([]*core.Item, 0, len(a.byID))
	for id, c := range a.byID {
		it := core.NewItem(id)
		it.Title = c.title
		it.Score = c.score
		out = append(out, it)
	}
	core.SortByScore(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
