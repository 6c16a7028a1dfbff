package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/itemcf/core"
	"github.com/rushteam/itemcf/filter"
	"github.com/rushteam/itemcf/pipeline"
	"github.com/rushteam/itemcf/pkg/conv"
	"github.com/rushteam/itemcf/recall"
	"github.com/rushteam/itemcf/rerank"
)

// Deps 是构建内置 Node 所需的运行期依赖。
// Engine 为空时 recall.i2i 不可用；Store 为空时 recall.store_i2i 不可用。
type Deps struct {
	Engine recall.NeighborFinder // 通常为 *model.ItemCF
	Store  core.Store
	Logger zerolog.Logger
}

// NewFactory 返回包含内置 Node 与所有 Register 注册的自定义 Node 的工厂。
//
// 内置类型：
//   - recall.i2i        基于引擎相似度的 i2i 召回
//   - recall.store_i2i  读取已发布 i2i 列表的召回
//   - recall.hot        热门召回（冷启动）
//   - recall.fanout     并发合并多个召回源
//   - filter            history / blacklist / expr 过滤
//   - rerank.topn       排序并截断
func NewFactory(deps Deps) *pipeline.NodeFactory {
	b := &builders{deps: deps}
	f := pipeline.NewNodeFactory()
	f.Register("recall.i2i", b.nodeOf(b.i2i))
	f.Register("recall.store_i2i", b.nodeOf(b.storeI2I))
	f.Register("recall.hot", b.nodeOf(b.hot))
	f.Register("recall.fanout", b.fanout)
	f.Register("filter", b.filter)
	f.Register("rerank.topn", b.topN)
	registerCustom(f)
	return f
}

type builders struct {
	deps Deps
}

// sourceNode 是同时实现 Source 与 Node 的召回源。
type sourceNode interface {
	recall.Source
	pipeline.Node
}

func (b *builders) nodeOf(build func(map[string]any) (sourceNode, error)) NodeBuilder {
	return func(cfg map[string]any) (pipeline.Node, error) {
		return build(cfg)
	}
}

func (b *builders) i2i(cfg map[string]any) (sourceNode, error) {
	if b.deps.Engine == nil {
		return nil, fmt.Errorf("recall.i2i: engine not provided")
	}
	return &recall.I2I{
		Engine: b.deps.Engine,
		TopN:   int(conv.ConfigGetInt64(cfg, "top_n", 0)),
		Limit:  int(conv.ConfigGetInt64(cfg, "limit", 0)),
	}, nil
}

func (b *builders) storeI2I(cfg map[string]any) (sourceNode, error) {
	if b.deps.Store == nil {
		return nil, fmt.Errorf("recall.store_i2i: store not provided")
	}
	return &recall.StoreI2I{
		Store:     b.deps.Store,
		KeyPrefix: conv.ConfigGet(cfg, "key_prefix", recall.DefaultKeyPrefix),
		TopN:      int(conv.ConfigGetInt64(cfg, "top_n", 0)),
		Limit:     int(conv.ConfigGetInt64(cfg, "limit", 0)),
	}, nil
}

func (b *builders) hot(cfg map[string]any) (sourceNode, error) {
	return &recall.Hot{
		Store: b.deps.Store,
		Key:   conv.ConfigGet(cfg, "key", recall.DefaultHotKey),
		IDs:   conv.SliceAnyToString(cfg["ids"]),
		Limit: int(conv.ConfigGetInt64(cfg, "limit", 0)),
	}, nil
}

func (b *builders) fanout(cfg map[string]any) (pipeline.Node, error) {
	sourcesConfig, ok := cfg["sources"].([]any)
	if !ok || len(sourcesConfig) == 0 {
		return nil, fmt.Errorf("recall.fanout: sources not found or invalid")
	}
	sources := make([]recall.Source, 0, len(sourcesConfig))
	for i, sc := range sourcesConfig {
		sourceMap, ok := sc.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("recall.fanout: sources[%d] is not a map", i)
		}
		var (
			src sourceNode
			err error
		)
		switch sourceType := conv.ConfigGet(sourceMap, "type", ""); sourceType {
		case "i2i":
			src, err = b.i2i(sourceMap)
		case "store_i2i":
			src, err = b.storeI2I(sourceMap)
		case "hot":
			src, err = b.hot(sourceMap)
		default:
			return nil, fmt.Errorf("recall.fanout: unknown source type: %q", sourceType)
		}
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}

	fanout := &recall.Fanout{
		Sources: sources,
		Dedup:   conv.ConfigGet(cfg, "dedup", true),
		Logger:  b.deps.Logger,
	}
	if ms := conv.ConfigGetInt64(cfg, "timeout_ms", 0); ms > 0 {
		fanout.Timeout = time.Duration(ms) * time.Millisecond
	}
	if n := conv.ConfigGetInt64(cfg, "max_concurrent", 0); n > 0 {
		fanout.MaxConcurrent = int(n)
	}
	switch strategy := conv.ConfigGet(cfg, "merge_strategy", recall.MergeFirst); strategy {
	case recall.MergeFirst, recall.MergeUnion, recall.MergePriority:
		fanout.MergeStrategy = strategy
	default:
		return nil, fmt.Errorf("recall.fanout: unknown merge strategy: %q", strategy)
	}
	return fanout, nil
}

func (b *builders) filter(cfg map[string]any) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]any)
	if !ok {
		return nil, fmt.Errorf("filter: filters not found or invalid")
	}
	filters := make([]filter.Filter, 0, len(filtersConfig))
	for i, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("filter: filters[%d] is not a map", i)
		}
		switch filterType := conv.ConfigGet(filterMap, "type", ""); filterType {
		case "history":
			filters = append(filters, &filter.HistoryFilter{})
		case "blacklist":
			ids := conv.SliceAnyToString(filterMap["item_ids"])
			key := conv.ConfigGet(filterMap, "key", "")
			filters = append(filters, filter.NewBlacklistFilter(ids, b.deps.Store, key))
		case "expr":
			f, err := filter.NewExprFilter(conv.ConfigGet(filterMap, "expr", ""))
			if err != nil {
				return nil, fmt.Errorf("filter: filters[%d]: %w", i, err)
			}
			filters = append(filters, f)
		default:
			return nil, fmt.Errorf("filter: unknown filter type: %q", filterType)
		}
	}
	return &filter.FilterNode{Filters: filters, Logger: b.deps.Logger}, nil
}

func (b *builders) topN(cfg map[string]any) (pipeline.Node, error) {
	n := conv.ConfigGetInt64(cfg, "n", 0)
	if n < 0 {
		return nil, fmt.Errorf("rerank.topn: n must be >= 0, got %d", n)
	}
	return &rerank.TopNNode{N: int(n)}, nil
}
