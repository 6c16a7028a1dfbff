// Package filter 在召回之后剔除不应推荐的候选：用户已交互过的物品、黑名单、
// 以及按 CEL 表达式定义的业务规则。
package filter

import (
	"context"

	"github.com/rushteam/itemcf/core"
)

// Filter 是过滤器的抽象接口，用于判断一个 Item 是否应该被过滤掉。
// 返回 true 表示应该过滤（移除），false 表示保留。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// ShouldFilter 判断 item 是否应该被过滤
	ShouldFilter(ctx context.Context, rctx *core.RecommendContext, item *core.Item) (bool, error)
}

// Preparer 由需要按请求加载外部数据的过滤器实现。
// FilterNode 每次 Process 先调用一次 Prepare，再用返回的过滤器逐个判断物品。
type Preparer interface {
	Prepare(ctx context.Context, rctx *core.RecommendContext) (Filter, error)
}
