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

// InterestProvider 提供用户的长期兴趣画像。
// key 使用 feature 形式（"category:books" / "tag:sale"），与行为亲和度同一空间。
// 可选依赖：feast 包提供基于 Feature Store 的实现。
type InterestProvider interface {
	GetInterests(ctx context.Context, userID string) (map[string]float64, error)
}

// Personalized 是个性化召回源：从用户自身的行为历史推导类目/标签亲和度，
// 叠加热度先验解决冷启动，排除已购买与不可售商品。
//
// 降级约定（刻意设计，不是疏漏）：任何内部失败——历史缺失、存储错误、
// 身份异常——都不会以错误形态离开本组件，而是静默退化为热度榜并保持
// reason=personalized 的接口形状。推荐质量降级永远好于页面报错。
type Personalized struct {
	Activities core.ActivityStore
	Signals    core.SignalStore
	Catalog    core.ProductCatalog
	Scorer     *rank.PopularityScorer

	// Interests 可选：外部兴趣画像（例如 Feast 在线特征），与行为亲和度叠加
	Interests InterestProvider

	// TopK 返回 TopK 个商品；<= 0 表示不截断
	TopK int

	// HistoryWindowDays 是行为历史的回看窗口（天），<= 0 时取默认 30 天
	HistoryWindowDays int

	// Now 用于测试注入时钟；为 nil 时使用 time.Now
	Now func() time.Time
}

func (r *Personalized) Name() string        { return "recall.personalized" }
func (r *Personalized) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall。
func (r *Personalized) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口。游客身份按约定不应到达这里，防御性地走兜底。
func (r *Personalized) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if rctx.IsGuest() {
		return r.fallback(ctx, rctx, "guest")
	}

	items, err := r.recommend(ctx, rctx)
	if err != nil {
		return r.fallback(ctx, rctx, "error")
	}
	return items, nil
}

func (r *Personalized) recommend(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Activities == nil || r.Signals == nil {
		return nil, core.NewDomainError(core.ModuleRecall, core.ErrorCodeUnavailable, "personalized: stores not configured")
	}

	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}

	windowDays := r.HistoryWindowDays
	if windowDays <= 0 {
		windowDays = 30
	}
	since := now.AddDate(0, 0, -windowDays)

	// 已购集合与亲和度窗口解耦：买过就是买过，窗口外的旧购买同样不再推荐
	purchased, err := r.purchasedSet(ctx, rctx.UserID)
	if err != nil {
		return nil, err
	}

	events, err := r.Activities.ListEventsForSubject(ctx, rctx.UserID, since)
	if err != nil {
		return nil, err
	}

	affinity, err := r.buildAffinity(ctx, events)
	if err != nil {
		return nil, err
	}

	// 叠加外部兴趣画像；画像不可用时不致命，继续用行为亲和度
	if r.Interests != nil {
		if interests, err := r.Interests.GetInterests(ctx, rctx.UserID); err == nil {
			for k, w := range interests {
				affinity[k] += w
			}
		}
	}

	sigs, err := r.Signals.ListActiveProductSignals(ctx)
	if err != nil {
		return nil, err
	}

	scorer := r.Scorer
	if scorer == nil {
		scorer = rank.NewPopularityScorer()
	}

	// 候选集：在售、未购买
	candidates := make([]*core.ProductSignal, 0, len(sigs))
	maxPop := 0.0
	popScores := make(map[string]float64, len(sigs))
	for _, sig := range sigs {
		if sig == nil || !sig.IsActive || purchased[sig.ProductID] {
			continue
		}
		pop := scorer.Score(sig, now)
		popScores[sig.ProductID] = pop
		if pop > maxPop {
			maxPop = pop
		}
		candidates = append(candidates, sig)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	features := r.candidateFeatures(ctx, candidates)

	out := make([]*core.Item, 0, len(candidates))
	for _, sig := range candidates {
		// 亲和度为主，热度先验兜底冷启动：历史越薄，排序越接近热门榜
		score := matchAffinity(affinity, features[sig.ProductID])
		if maxPop > 0 {
			score += popScores[sig.ProductID] / maxPop
		}

		it := core.NewItem(sig.ProductID)
		it.Score = score
		it.Reason = core.ReasonPersonalized
		it.PutLabel("recall_source", utils.Label{Value: r.Name(), Source: "recall"})
		out = append(out, it)
	}

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

// purchasedSet 收集用户的全部购买记录，回看不受亲和度窗口限制，
// 与 filter.PurchasedFilter 使用同一份零值 since 合约。
func (r *Personalized) purchasedSet(ctx context.Context, userID string) (map[string]bool, error) {
	events, err := r.Activities.ListEventsForSubject(ctx, userID, time.Time{})
	if err != nil {
		return nil, err
	}
	purchased := make(map[string]bool)
	for _, ev := range events {
		if ev != nil && ev.Type == core.ActivityPurchase {
			purchased[ev.ProductID] = true
		}
	}
	return purchased, nil
}

// buildAffinity 从窗口内的行为历史构建 feature 亲和度。
// feature 维度为商品类目与标签；权重按行为意图强度累加。
func (r *Personalized) buildAffinity(
	ctx context.Context,
	events []*core.ActivityEvent,
) (map[string]float64, error) {
	affinity := make(map[string]float64)
	if len(events) == 0 {
		return affinity, nil
	}

	eventWeights := make(map[string]float64, len(events))
	for _, ev := range events {
		if ev == nil {
			continue
		}
		eventWeights[ev.ProductID] += activityWeight(ev.Type)
	}

	if r.Catalog == nil {
		return affinity, nil
	}

	ids := make([]string, 0, len(eventWeights))
	for id := range eventWeights {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	products, err := r.Catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		if p == nil {
			continue
		}
		w := eventWeights[p.ID]
		for _, f := range productFeatures(p) {
			affinity[f] += w
		}
	}
	return affinity, nil
}

// candidateFeatures 批量解析候选商品的 feature；目录不可用时返回空特征，
// 此时排序退化为纯热度先验。
func (r *Personalized) candidateFeatures(
	ctx context.Context,
	candidates []*core.ProductSignal,
) map[string][]string {
	features := make(map[string][]string, len(candidates))
	if r.Catalog == nil {
		return features
	}
	ids := make([]string, 0, len(candidates))
	for _, sig := range candidates {
		ids = append(ids, sig.ProductID)
	}
	products, err := r.Catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		return features
	}
	for _, p := range products {
		if p == nil {
			continue
		}
		features[p.ID] = productFeatures(p)
	}
	return features
}

// fallback 退化为热度榜，保持 reason=personalized 的接口形状。
func (r *Personalized) fallback(
	ctx context.Context,
	rctx *core.RecommendContext,
	cause string,
) ([]*core.Item, error) {
	popular := &Popular{
		Signals: r.Signals,
		Scorer:  r.Scorer,
		TopK:    r.TopK,
		Now:     r.Now,
	}
	items, err := popular.Recall(ctx, rctx)
	if err != nil {
		// 兜底也失败：返回空列表，交给聚合层判断是否整体失败
		return nil, nil
	}
	for _, it := range items {
		it.Reason = core.ReasonPersonalized
		it.PutLabel("fallback", utils.Label{Value: cause, Source: "recall"})
	}
	return items, nil
}

// activityWeight 与 PopularityScorer 的意图强度保持同一量纲。
func activityWeight(t core.ActivityType) float64 {
	switch t {
	case core.ActivityPurchase:
		return 10
	case core.ActivityFavorite:
		return 5
	case core.ActivityCartAdd:
		return 3
	case core.ActivityView:
		return 1
	default:
		return 0
	}
}

func productFeatures(p *core.Product) []string {
	if p == nil {
		return nil
	}
	features := make([]string, 0, 1+len(p.Tags))
	if p.Category != "" {
		features = append(features, "category:"+p.Category)
	}
	for _, tag := range p.Tags {
		if tag != "" {
			features = append(features, "tag:"+tag)
		}
	}
	return features
}

// matchAffinity 返回候选 feature 命中的亲和度之和。
func matchAffinity(affinity map[string]float64, features []string) float64 {
	if len(affinity) == 0 || len(features) == 0 {
		return 0
	}
	sum := 0.0
	for _, f := range features {
		sum += affinity[f]
	}
	return sum
}
