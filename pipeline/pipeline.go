package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/itemcf/core"
)

// Observer 接收每个节点的执行结果，用于指标采集。
type Observer interface {
	ObserveNode(node, kind string, elapsed time.Duration, err error)
}

// Pipeline 把推荐逻辑拆成可组合的 Node 链：召回 -> 过滤 -> 重排。
type Pipeline struct {
	Name     string
	Nodes    []Node
	Logger   zerolog.Logger
	Observer Observer // 可选
}

func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		next, err := node.Process(ctx, rctx, cur)
		if p.Observer != nil {
			p.Observer.ObserveNode(node.Name(), string(node.Kind()), time.Since(start), err)
		}
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.Name(), err)
		}
		p.Logger.Debug().
			Str("node", node.Name()).
			Str("kind", string(node.Kind())).
			Int("in", len(cur)).
			Int("out", len(next)).
			Dur("elapsed", time.Since(start)).
			Msg("node processed")
		cur = next
	}
	return cur, nil
}
