package filter

import (
	"context"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pkg/dsl"
)

// RuleFilter 是 CEL 表达式驱动的业务规则过滤器。
// 表达式返回 true 表示命中规则、需要过滤，例如：
//   - `item.price > 9999.0`（高价商品不进入推荐流）
//   - `label.recall_source.contains("similar") && item.score < 0.2`
//
// 运营侧改规则无须改代码，配合 config 包可从 YAML 下发。
type RuleFilter struct {
	// Expr 是 CEL 表达式；空表达式不过滤任何商品
	Expr string
}

func (f *RuleFilter) Name() string {
	return "filter.rule"
}

func (f *RuleFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if f.Expr == "" || item == nil {
		return false, nil
	}
	hit, err := dsl.NewEval(item, rctx).Evaluate(f.Expr)
	if err != nil {
		// 规则写错不应影响线上结果，跳过该规则
		return false, nil
	}
	return hit, nil
}
