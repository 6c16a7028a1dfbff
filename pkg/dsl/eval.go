// Package dsl 提供基于 CEL 的物品过滤表达式。
package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/itemcf/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("item", cel.DynType),
			cel.Variable("label", cel.DynType),
			cel.Variable("rctx", cel.DynType),
		)
	})
	return celEnv, celEnvErr
}

// Eval 是 Label DSL 解释器，使用 CEL (Common Expression Language) 实现。
//
// 表达式语法（CEL 标准语法）：
//   - 基础：label.recall_source == "i2i"
//   - 数值：item.score > 0.7
//   - 逻辑：label.recall_source == "i2i" && item.score > 0.8
//   - 存在性："recall_source" in label
//   - 元数据：item.title.startsWith("Harry")
//   - 用户标签：rctx.labels.segment == "new"
//
// 表达式在 NewEval 时编译一次，Evaluate 可并发调用。
type Eval struct {
	expr string
	prg  cel.Program
}

// NewEval 编译表达式。空表达式恒为 true。
func NewEval(expr string) (*Eval, error) {
	e := &Eval{expr: expr}
	if expr == "" {
		return e, nil
	}
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must return boolean, got %s", out)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	e.prg = prg
	return e, nil
}

// String 返回原始表达式。
func (e *Eval) String() string { return e.expr }

// Evaluate 对单个物品求值。
// 访问不存在的 key 会返回错误，应先用 "key" in label 判断存在性。
func (e *Eval) Evaluate(item *core.Item, rctx *core.RecommendContext) (bool, error) {
	if e.prg == nil {
		return true, nil
	}
	out, _, err := e.prg.Eval(buildInput(item, rctx))
	if err != nil {
		return false, fmt.Errorf("eval error: %w", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

func buildInput(item *core.Item, rctx *core.RecommendContext) map[string]any {
	labels := make(map[string]any)
	labelValues := make(map[string]any)
	itemMap := map[string]any{}
	if item != nil {
		for k, v := range item.Labels {
			labels[k] = map[string]any{
				"value":  v.Value,
				"source": v.Source,
			}
			labelValues[k] = v.Value
		}
		meta := item.Meta
		if meta == nil {
			meta = map[string]any{}
		}
		itemMap = map[string]any{
			"id":     item.ID,
			"title":  item.Title,
			"score":  item.Score,
			"meta":   meta,
			"labels": labels,
		}
	}

	rctxMap := map[string]any{}
	if rctx != nil {
		params := rctx.Params
		if params == nil {
			params = map[string]any{}
		}
		history := make(map[string]any, len(rctx.History))
		for k, v := range rctx.History {
			history[k] = v
		}
		userLabels := make(map[string]any, len(rctx.Labels))
		for k, v := range rctx.Labels {
			userLabels[k] = v.Value
		}
		rctxMap = map[string]any{
			"user_id": rctx.UserID,
			"scene":   rctx.Scene,
			"history": history,
			"params":  params,
			"labels":  userLabels,
		}
	}

	// label.xxx 直接访问 value
	return map[string]any{
		"item":  itemMap,
		"label": labelValues,
		"rctx":  rctxMap,
	}
}
