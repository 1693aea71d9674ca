package rank

import (
	"context"
	"sort"
	"time"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pipeline"
	"github.com/rushteam/shoprec/pkg/utils"
)

// PopularityNode 是使用 PopularityScorer 的排序 Node。
// - 按 SignalStore 的实时计数重新打分（计数是事实来源，缓存只是优化）
// - 更新 item.Score 并按分数降序稳定排序
// - 写入 labels：rank_model
type PopularityNode struct {
	Scorer  *PopularityScorer
	Signals core.SignalStore

	// Now 用于测试注入时钟；为 nil 时使用 time.Now
	Now func() time.Time
}

func (n *PopularityNode) Name() string        { return "rank.popularity" }
func (n *PopularityNode) Kind() pipeline.Kind { return pipeline.KindRank }

func (n *PopularityNode) Process(
	ctx context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if n.Scorer == nil || n.Signals == nil || len(items) == 0 {
		return items, nil
	}

	now := time.Now()
	if n.Now != nil {
		now = n.Now()
	}

	for _, it := range items {
		if it == nil {
			continue
		}
		sig, err := n.Signals.GetProductSignal(ctx, it.ID)
		if err != nil {
			// 缺失信号的商品保持原分数，不中断整批
			continue
		}
		it.Score = n.Scorer.Score(sig, now)
		it.PutLabel("rank_model", utils.Label{Value: "popularity", Source: "rank"})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i] == nil {
			return false
		}
		if items[j] == nil {
			return true
		}
		return items[i].Score > items[j].Score
	})
	return items, nil
}
