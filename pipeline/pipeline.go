package pipeline

import (
	"context"

	"github.com/rushteam/shoprec/core"
)

// Pipeline 把一次推荐请求拆成可组合的 Node 链：
// 召回（fan-out 各来源）→ 过滤（已购/不可售/已下发）→ 排序 → 重排截断。
// 聚合层可以直接编排这些阶段，也可以经 config 包由 YAML 装配。
type Pipeline struct {
	Nodes []Node
}

// Run 依次执行各 Node，任一 Node 出错即中止并上抛。
func (p *Pipeline) Run(
	ctx context.Context,
	rctx *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	cur := items
	for _, node := range p.Nodes {
		next, err := node.Process(ctx, rctx, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}
