package recall

import (
	"context"

	"github.com/rushteam/shoprec/core"
)

// Source 是候选商品的召回源：热门、趋势、个性化、相似各实现一种策略。
// Fanout 并发执行多个 Source 后按分数与来源优先级合并，单个 Source
// 失败不影响其他来源（见 Fanout 的约定）。
type Source interface {
	Name() string
	Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error)
}
