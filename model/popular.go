package model

import (
	"fmt"
	"slices"

	"github.com/rushteam/itemcf/core"
)

// Popular 返回评分用户数最多的 n 个物品，同数按下标升序；Neighbor.Score 为评分用户数。
// 用作新用户、未知种子物品的冷启动候选。n <= 0 时使用 DefaultTopN。
func (e *ItemCF) Popular(n int) ([]Neighbor, error) {
	if !e.prepared {
		return nil, fmt.Errorf("popular: %w", core.ErrNotPrepared)
	}
	if n <= 0 {
		n = DefaultTopN
	}

	byItem := e.interactions.Transpose()
	out := make([]Neighbor, e.items.Len())
	for j := range out {
		out[j] = Neighbor{Index: j, Score: float64(byItem.RowNNZ(j))}
	}
	slices.SortFunc(out, byScoreThenIndex)
	out = out[:min(n, len(out))]
	for i := range out {
		out[i].ItemID, _ = e.items.ID(out[i].Index)
		out[i].Label, _ = e.labels.Label(out[i].Index)
	}
	return out, nil
}
