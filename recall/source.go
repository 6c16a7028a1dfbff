// Package recall 负责候选生成：基于 ItemCF 相似度的 i2i 召回、读取已发布 i2i 列表的存储召回，
// 以及并发合并多个召回源的 Fanout。
package recall

import (
	"context"

	"github.com/rushteam/itemcf/core"
)

// Source 表示一个可复用的召回源。
// 你可以把它理解为“可并发 fan-out 的策略单元”。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}
