// Package rerank 对候选做最终排序与截断。
package rerank

import (
	"context"

	"github.com/rushteam/itemcf/core"
	"github.com/rushteam/itemcf/pipeline"
)

// TopNNode 按分数降序（同分按 ID 升序）排序后截取前 N 个物品，
// 使 Pipeline 输出与召回源的合并顺序无关。
//
// 示例：
//
//	pipeline := &pipeline.Pipeline{
//	    Nodes: []pipeline.Node{
//	        &recall.I2I{Engine: engine},     // 召回
//	        &filter.FilterNode{...},         // 过滤
//	        &rerank.TopNNode{N: 10},         // 截取 Top 10
//	    },
//	}
type TopNNode struct {
	// N 要保留的物品数量（Top N）
	// 如果 N <= 0，则只排序不截断
	N int
}

func (n *TopNNode) Name() string {
	return "rerank.topn"
}

func (n *TopNNode) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *TopNNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	core.SortByScore(items)
	if n.N <= 0 || len(items) <= n.N {
		return items, nil
	}
	return items[:n.N], nil
}
