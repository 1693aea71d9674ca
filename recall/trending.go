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

// Trending 是趋势召回源：统计尾随时间窗口内的行为事件数取 TopK。
//
// 语义约定：
//   - 窗口内零事件的商品被排除而不是计零分，列表可以合法地短于 TopK 甚至为空
//   - 同事件数时用热度分做第二排序键，保证跨请求结果确定
//   - 聚合查询失败时降级为空列表而不是上抛——趋势是 nice to have，
//     不能拖垮整个响应
type Trending struct {
	Activities core.ActivityStore
	Signals    core.SignalStore
	Scorer     *rank.PopularityScorer

	// WindowDays 是尾随时间窗口（天），<= 0 时取默认 7 天
	WindowDays int

	// TopK 返回 TopK 个商品；<= 0 表示不截断
	TopK int

	// Now 用于测试注入时钟；为 nil 时使用 time.Now
	Now func() time.Time
}

// DefaultWindowDays 是趋势统计的默认时间窗口。
const DefaultWindowDays = 7

func (r *Trending) Name() string        { return "recall.trending" }
func (r *Trending) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall。
func (r *Trending) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口。
func (r *Trending) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Activities == nil {
		return nil, nil
	}

	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}

	since := now.AddDate(0, 0, -r.EffectiveWindowDays(rctx))

	counts, err := r.Activities.CountEventsByProduct(ctx, since)
	if err != nil {
		// 降级：空趋势列表，不上抛
		return nil, nil
	}
	if len(counts) == 0 {
		return nil, nil
	}

	scorer := r.Scorer
	if scorer == nil {
		scorer = rank.NewPopularityScorer()
	}

	out := make([]*core.Item, 0, len(counts))
	tieBreak := make(map[string]float64, len(counts))
	for productID, count := range counts {
		if count <= 0 {
			continue
		}
		it := core.NewItem(productID)
		it.Score = float64(count)
		it.Reason = core.ReasonTrending
		it.PutLabel("recall_source", utils.Label{Value: r.Name(), Source: "recall"})
		tieBreak[productID] = r.popularityOf(ctx, scorer, productID, now)
		out = append(out, it)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if tieBreak[out[i].ID] != tieBreak[out[j].ID] {
			return tieBreak[out[i].ID] > tieBreak[out[j].ID]
		}
		return out[i].ID < out[j].ID
	})

	if r.TopK > 0 && len(out) > r.TopK {
		out = out[:r.TopK]
	}
	return out, nil
}

// EffectiveWindowDays 返回本次请求实际生效的窗口天数：
// 请求级 window_days 参数优先，其次结构体配置，最后默认 7 天。
// 缓存层用它区分不同窗口的结果，窗口不同的请求不得共享缓存条目。
func (r *Trending) EffectiveWindowDays(rctx *core.RecommendContext) int {
	windowDays := r.WindowDays
	if wd, ok := windowDaysFromParams(rctx); ok {
		windowDays = wd
	}
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	return windowDays
}

// popularityOf 读取商品热度分做第二排序键；读不到时记 0，不影响主序。
func (r *Trending) popularityOf(ctx context.Context, scorer *rank.PopularityScorer, productID string, now time.Time) float64 {
	if r.Signals == nil {
		return 0
	}
	sig, err := r.Signals.GetProductSignal(ctx, productID)
	if err != nil {
		return 0
	}
	return scorer.Score(sig, now)
}

func windowDaysFromParams(rctx *core.RecommendContext) (int, bool) {
	if rctx == nil || rctx.Params == nil {
		return 0, false
	}
	switch v := rctx.Params["window_days"].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
