package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/itemcf/pipeline"
)

// NodeBuilder 与 pipeline.NodeBuilder 一致：根据 config 构建 Node。
// 自定义组件在 init 中调用 Register(typeName, builder) 即可被配置驱动；
// 内置 Node 需要引擎/存储依赖，由 NewFactory(deps) 注册。
type NodeBuilder = pipeline.NodeBuilder

var (
	customBuilders   = make(map[string]NodeBuilder)
	customBuildersMu sync.RWMutex
)

// Register 注册一种自定义 Node 的构建逻辑，NewFactory 会把它们合并进工厂。
// 与内置类型同名时覆盖内置类型。
func Register(typeName string, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	customBuildersMu.Lock()
	defer customBuildersMu.Unlock()
	customBuilders[typeName] = builder
}

func registerCustom(f *pipeline.NodeFactory) {
	customBuildersMu.RLock()
	defer customBuildersMu.RUnlock()
	for typeName, builder := range customBuilders {
		f.Register(typeName, builder)
	}
}

// ValidatePipelineConfig 校验 pipeline 配置中所有 node 类型均已在 factory 中注册；
// 若有未支持类型则返回包含已支持列表的错误。
func ValidatePipelineConfig(cfg *pipeline.Config, factory *pipeline.NodeFactory) error {
	if cfg == nil {
		return nil
	}
	if len(cfg.Pipeline.Nodes) == 0 {
		return fmt.Errorf("pipeline %q has no nodes", cfg.Pipeline.Name)
	}
	for i, nc := range cfg.Pipeline.Nodes {
		if nc.Type == "" {
			return fmt.Errorf("node[%d]: type is empty", i)
		}
		if !factory.Has(nc.Type) {
			types := factory.Types()
			sort.Strings(types)
			return fmt.Errorf("unsupported node type %q (supported: %v)", nc.Type, types)
		}
	}
	return nil
}
