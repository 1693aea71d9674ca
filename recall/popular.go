package recall

import (
	"context"
	"sort"
	"time"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pipeline"
	"github.com/rushteam/shoprec/pkg/utils"
	"github.com/rushteam/shoprec/rank"
)

// Popular 是全局热门召回源：对所有在售商品按实时计数打分取 TopK。
// 与身份无关，游客与登录用户看到同样的热门榜。
// Popular 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type Popular struct {
	Signals core.SignalStore
	Scorer  *rank.PopularityScorer

	// TopK 返回 TopK 个商品；<= 0 表示不截断
	TopK int

	// Now 用于测试注入时钟；为 nil 时使用 time.Now
	Now func() time.Time
}

func (r *Popular) Name() string        { return "recall.popular" }
func (r *Popular) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall。
func (r *Popular) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口。
func (r *Popular) Recall(
	ctx context.Context,
	_ *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Signals == nil {
		return nil, nil
	}

	scorer := r.Scorer
	if scorer == nil {
		scorer = rank.NewPopularityScorer()
	}

	sigs, err := r.Signals.ListActiveProductSignals(ctx)
	if err != nil {
		return nil, core.NewDomainError(core.ModuleRecall, core.ErrorCodeUnavailable, "list product signals: "+err.Error())
	}

	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}

	out := make([]*core.Item, 0, len(sigs))
	for _, sig := range sigs {
		if sig == nil || !sig.IsActive {
			continue
		}
		it := core.NewItem(sig.ProductID)
		it.Score = scorer.Score(sig, now)
		it.Reason = core.ReasonPopular
		it.PutLabel("recall_source", utils.Label{Value: r.Name(), Source: "recall"})
		out = append(out, it)
	}

	// 同分时按 ID 排序，保证跨请求结果确定
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})

	if r.TopK > 0 && len(out) > r.TopK {
		out = out[:r.TopK]
	}
	return out, nil
}
