package filter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rushteam/itemcf/core"
	"github.com/rushteam/itemcf/pipeline"
)

// FilterNode 是过滤 Node，可以组合多个过滤器进行过滤。
// 如果任何一个过滤器返回 true，该物品就会被过滤掉。
// 过滤器出错时记录日志并视为不过滤。
type FilterNode struct {
	Filters []Filter
	Logger  zerolog.Logger
}

func (n *FilterNode) Name() string {
	return "filter"
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(n.Filters) == 0 || len(items) == 0 {
		return items, nil
	}

	filters := n.prepare(ctx, rctx)
	out := make([]*core.Item, 0, len(items))
	filtered := make(map[string]int, len(filters))

	for _, item := range items {
		if item == nil {
			continue
		}

		reason := ""
		for _, f := range filters {
			ok, err := f.ShouldFilter(ctx, rctx, item)
			if err != nil {
				n.Logger.Warn().Err(err).Str("filter", f.Name()).Str("item", item.ID).Msg("filter failed")
				continue
			}
			if ok {
				reason = f.Name()
				break
			}
		}

		if reason != "" {
			filtered[reason]++
			continue
		}
		out = append(out, item)
	}

	if len(filtered) > 0 {
		ev := n.Logger.Debug().Int("in", len(items)).Int("out", len(out))
		for name, count := range filtered {
			ev = ev.Int(name, count)
		}
		ev.Msg("items filtered")
	}
	return out, nil
}

// prepare 为本次请求准备过滤器；准备失败的过滤器本次不参与过滤。
func (n *FilterNode) prepare(ctx context.Context, rctx *core.RecommendContext) []Filter {
	filters := make([]Filter, 0, len(n.Filters))
	for _, f := range n.Filters {
		if p, ok := f.(Preparer); ok {
			prepared, err := p.Prepare(ctx, rctx)
			if err != nil {
				n.Logger.Warn().Err(err).Str("filter", f.Name()).Msg("filter prepare failed")
				continue
			}
			f = prepared
		}
		filters = append(filters, f)
	}
	return filters
}
