package filter

import (
	"context"

	"github.com/rushteam/itemcf/core"
)

// HistoryFilter 过滤用户已经交互过的物品（RecommendContext.History），
// 以及请求参数 core.ParamItemID 指定的种子物品本身。
type HistoryFilter struct{}

func (f *HistoryFilter) Name() string {
	return "filter.history"
}

func (f *HistoryFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}
	if rctx.Seen(item.ID) {
		return true, nil
	}
	if rctx != nil {
		if seed, ok := rctx.Params[core.ParamItemID].(string); ok && seed == item.ID {
			return true, nil
		}
	}
	return false, nil
}
