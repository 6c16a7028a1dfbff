package filter

import (
	"context"

	"github.com/rushteam/itemcf/core"
	"github.com/rushteam/itemcf/pkg/dsl"
)

// ExprFilter 用 CEL 表达式描述的业务规则过滤，表达式为 true 时过滤。
//
//	item.score <= 0.0
//	label.recall_source == "store_i2i" && item.title == "Unknown Title"
type ExprFilter struct {
	eval *dsl.Eval
}

// NewExprFilter 编译表达式；语法错误或非布尔表达式在此处返回。
func NewExprFilter(expr string) (*ExprFilter, error) {
	eval, err := dsl.NewEval(expr)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{eval: eval}, nil
}

func (f *ExprFilter) Name() string {
	return "filter.expr"
}

func (f *ExprFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if f.eval.String() == "" {
		return false, nil
	}
	return f.eval.Evaluate(item, rctx)
}
