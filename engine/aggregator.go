package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/filter"
	"github.com/rushteam/shoprec/pkg/utils"
	"github.com/rushteam/shoprec/rank"
	"github.com/rushteam/shoprec/recall"
	"github.com/rushteam/shoprec/rerank"
)

// Limits 是组合请求的每类目条数。
type Limits struct {
	Personalized int
	Popular      int
	Trending     int
}

// Bundle 是组合请求的结果：三份列表相互独立，无顺序依赖。
type Bundle struct {
	Personalized []*core.Item
	Popular      []*core.Item
	Trending     []*core.Item
}

// Aggregator 是推荐聚合器：并发编排各召回源、执行身份兜底决策树、
// 产出单类目列表与分页去重的混合流。
//
// 依赖全部通过构造注入的抽象接口（core 包），不触碰任何具体存储实现，
// 单测用假实现即可覆盖。
type Aggregator struct {
	Signals    core.SignalStore
	Activities core.ActivityStore
	Catalog    core.ProductCatalog

	// Scorer 为 nil 时使用默认权重
	Scorer *rank.PopularityScorer

	// Interests 可选：个性化召回的外部兴趣画像（例如 feast 包）
	Interests recall.InterestProvider

	// Cache 可选：单类目结果的 TTL 缓存
	Cache *ResultCache

	// Seen 可选：混合流分页去重的记账存储；不配置时跨页不相交不保证
	Seen       filter.SeenStore
	SeenPrefix string
	SeenTTL    int

	// Rules 可选：混合流的 CEL 业务规则（命中即过滤）
	Rules []string

	// MaxPerCategory 可选：混合流的类目多样性上限，<= 0 不限制
	MaxPerCategory int

	// Config 为 nil 时使用 core.DefaultRecommendConfig
	Config core.RecommendConfig

	// SourceTimeout 是混合流 fan-out 中单个召回源的超时
	SourceTimeout time.Duration

	// Now 用于测试注入时钟；为 nil 时使用 time.Now
	Now func() time.Time
}

// 单类目标识，同时用作缓存 key 的 kind 段。
const (
	KindPersonalized = "personalized"
	KindPopular      = "popular"
	KindTrending     = "trending"
	KindSimilar      = "similar"
)

// overfetch 是 join 前的过量拉取倍数：join 会丢弃下架/缺货商品，
// 召回多拉一些保证截断后仍能凑满 limit。
const overfetch = 3

func (a *Aggregator) config() core.RecommendConfig {
	if a.Config != nil {
		return a.Config
	}
	return &core.DefaultRecommendConfig{}
}

// ClampLimit 把请求 limit 收敛到 [1, MaxLimit]；非法值取默认而不是报错。
func (a *Aggregator) ClampLimit(limit int) int {
	cfg := a.config()
	if limit <= 0 {
		return cfg.DefaultLimit()
	}
	if limit > cfg.MaxLimit() {
		return cfg.MaxLimit()
	}
	return limit
}

// GetAll 并发计算三份列表。三个来源相互独立、无共享可变状态，
// 失败的类目降级为空列表；仅当所有来源同时失败且一无所获时返回错误。
func (a *Aggregator) GetAll(ctx context.Context, rctx *core.RecommendContext, limits Limits) (*Bundle, error) {
	bundle := &Bundle{}
	errs := make([]error, 3)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		bundle.Personalized, errs[0] = a.GetCategory(egCtx, rctx, KindPersonalized, limits.Personalized)
		return nil
	})
	eg.Go(func() error {
		bundle.Popular, errs[1] = a.GetCategory(egCtx, rctx, KindPopular, limits.Popular)
		return nil
	})
	eg.Go(func() error {
		bundle.Trending, errs[2] = a.GetCategory(egCtx, rctx, KindTrending, limits.Trending)
		return nil
	})
	_ = eg.Wait()

	// 单类目失败降级为空列表；全军覆没才是服务级错误
	failed := 0
	for i, err := range errs {
		if err == nil {
			continue
		}
		failed++
		switch i {
		case 0:
			bundle.Personalized = nil
		case 1:
			bundle.Popular = nil
		case 2:
			bundle.Trending = nil
		}
	}
	// 个性化来源内部兜底、从不报错，单看 errs 识别不出全军覆没；
	// 三份列表都空时再探测一次存储可达性
	if len(bundle.Personalized) == 0 && len(bundle.Popular) == 0 && len(bundle.Trending) == 0 {
		if failed == len(errs) || a.allSourcesDown(ctx) {
			return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInternalError, "all recommendation sources failed")
		}
	}
	return bundle, nil
}

// GetCategory 计算单类目列表：缓存优先，miss 时召回、join、截断、回填缓存。
//
// 身份兜底决策树：
//  1. 游客 → personalized = 热度榜（保持 reason=personalized 的接口形状）
//  2. 已登录 → PersonalizationEngine，内部失败静默退化为热度榜
//  3. popular/trending 与身份无关，算法恒定
func (a *Aggregator) GetCategory(ctx context.Context, rctx *core.RecommendContext, kind string, limit int) ([]*core.Item, error) {
	limit = a.ClampLimit(limit)

	key := CacheKey(kind, a.cacheSubject(rctx, kind), limit)
	if items, ok := a.Cache.Get(ctx, key); ok {
		return items, nil
	}

	src, err := a.source(rctx, kind, limit*overfetch)
	if err != nil {
		return nil, err
	}

	items, err := src.Recall(ctx, rctx)
	if err != nil {
		return nil, err
	}

	items = fetchAndJoin(ctx, a.Catalog, items)
	if len(items) > limit {
		items = items[:limit]
	}

	a.Cache.Set(ctx, key, items)
	return items, nil
}

// GetMixed 产出混合流的一页：并发 fan-out 全部来源，按单项分数去重合并，
// 过滤业务约束，分页并记账保证连续两页不相交。
//
// offset 归零视为新的翻页会话，记账随之重置；offset 必须是 limit 的
// 整数倍语义（page = offset/limit + 1），非法值收敛到起始页。
func (a *Aggregator) GetMixed(ctx context.Context, rctx *core.RecommendContext, limit, offset int) (*core.Page, error) {
	limit = a.ClampLimit(limit)
	if offset < 0 {
		offset = 0
	}
	page := offset/limit + 1

	fanout := &recall.Fanout{
		Sources:       a.mixedSources(rctx),
		Dedup:         true,
		Timeout:       a.SourceTimeout,
		MergeStrategy: "best",
	}
	merged, err := fanout.Process(ctx, rctx, nil)
	if err != nil {
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInternalError, "mixed feed fan-out: "+err.Error())
	}

	// 排序：分数降序；同分按来源具体程度，再按 ID 保证确定性
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		if pi, pj := merged[i].Reason.Priority(), merged[j].Reason.Priority(); pi != pj {
			return pi < pj
		}
		return merged[i].ID < merged[j].ID
	})

	merged = fetchAndJoin(ctx, a.Catalog, merged)
	merged = a.applyFilters(ctx, rctx, merged)

	if a.MaxPerCategory > 0 {
		diversity := &rerank.Diversity{MaxPerCategory: a.MaxPerCategory}
		if out, err := diversity.Process(ctx, rctx, merged); err == nil {
			merged = out
		}
	}

	if len(merged) == 0 && offset == 0 {
		// 无候选且是首页：区分"目录为空"与"全部来源失败"
		if a.allSourcesDown(ctx) {
			return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInternalError, "all recommendation sources failed")
		}
	}

	seen := &filter.SeenFilter{Store: a.Seen, KeyPrefix: a.SeenPrefix, TTL: a.seenTTL()}
	if offset == 0 {
		_ = seen.Reset(ctx, rctx)
	}

	total := len(merged)
	pageItems := make([]*core.Item, 0, limit)
	for _, it := range merged {
		if len(pageItems) >= limit {
			break
		}
		hit, err := seen.ShouldFilter(ctx, rctx, it)
		if err != nil || hit {
			continue
		}
		pageItems = append(pageItems, it)
	}
	_ = seen.Mark(ctx, rctx, pageItems)

	return core.NewPage(pageItems, page, limit, total), nil
}

// GetSimilar 是详情页的相似推荐：无候选时返回空列表而不是错误。
func (a *Aggregator) GetSimilar(ctx context.Context, rctx *core.RecommendContext, limit int) ([]*core.Item, error) {
	limit = a.ClampLimit(limit)

	key := CacheKey(KindSimilar, rctx.ProductID, limit)
	if items, ok := a.Cache.Get(ctx, key); ok {
		return items, nil
	}

	src := &recall.Similar{Signals: a.Signals, Catalog: a.Catalog, TopK: limit * overfetch}
	items, err := src.Recall(ctx, rctx)
	if err != nil {
		return nil, nil
	}
	items = fetchAndJoin(ctx, a.Catalog, items)
	if len(items) > limit {
		items = items[:limit]
	}

	a.Cache.Set(ctx, key, items)
	return items, nil
}

// source 按类目构造召回源并执行身份路由。
func (a *Aggregator) source(rctx *core.RecommendContext, kind string, topK int) (recall.Source, error) {
	switch kind {
	case KindPopular:
		return &recall.Popular{Signals: a.Signals, Scorer: a.Scorer, TopK: topK, Now: a.Now}, nil
	case KindTrending:
		return &recall.Trending{Activities: a.Activities, Signals: a.Signals, Scorer: a.Scorer, TopK: topK, Now: a.Now}, nil
	case KindPersonalized:
		// 游客在这里拦截路由，不进入 PersonalizationEngine
		if rctx.IsGuest() {
			return &retagSource{
				inner:  &recall.Popular{Signals: a.Signals, Scorer: a.Scorer, TopK: topK, Now: a.Now},
				reason: core.ReasonPersonalized,
				cause:  "guest",
			}, nil
		}
		return &recall.Personalized{
			Activities: a.Activities,
			Signals:    a.Signals,
			Catalog:    a.Catalog,
			Scorer:     a.Scorer,
			Interests:  a.Interests,
			TopK:       topK,
			Now:        a.Now,
		}, nil
	default:
		return nil, core.NewDomainError(core.ModuleEngine, core.ErrorCodeInvalidInput, "unknown category: "+kind)
	}
}

// mixedSources 返回混合流的全部来源；相似来源只在有上下文商品时加入。
func (a *Aggregator) mixedSources(rctx *core.RecommendContext) []recall.Source {
	cfg := a.config()
	topK := cfg.MaxLimit() * overfetch

	sources := make([]recall.Source, 0, 4)
	if rctx != nil && rctx.ProductID != "" {
		sources = append(sources, &recall.Similar{Signals: a.Signals, Catalog: a.Catalog, TopK: topK})
	}
	personalized, _ := a.source(rctx, KindPersonalized, topK)
	sources = append(sources,
		personalized,
		&recall.Trending{Activities: a.Activities, Signals: a.Signals, Scorer: a.Scorer, TopK: topK, Now: a.Now},
		&recall.Popular{Signals: a.Signals, Scorer: a.Scorer, TopK: topK, Now: a.Now},
	)
	return sources
}

// applyFilters 执行业务约束过滤：已购买、不可售、运营规则。
func (a *Aggregator) applyFilters(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) []*core.Item {
	filters := []filter.Filter{
		&filter.PurchasedFilter{Activities: a.Activities},
		&filter.SellableFilter{Catalog: a.Catalog},
	}
	for _, expr := range a.Rules {
		filters = append(filters, &filter.RuleFilter{Expr: expr})
	}

	node := &filter.FilterNode{Filters: filters}
	out, err := node.Process(ctx, rctx, items)
	if err != nil {
		return items
	}
	return out
}

// allSourcesDown 探测信号与行为存储是否同时不可达（TotalFailure 判定）。
func (a *Aggregator) allSourcesDown(ctx context.Context) bool {
	if a.Signals != nil {
		if _, err := a.Signals.ListActiveProductSignals(ctx); err == nil {
			return false
		}
	}
	if a.Activities != nil {
		if _, err := a.Activities.CountEventsByProduct(ctx, a.now().AddDate(0, 0, -1)); err == nil {
			return false
		}
	}
	return a.Signals != nil || a.Activities != nil
}

func (a *Aggregator) cacheSubject(rctx *core.RecommendContext, kind string) string {
	// popular/trending 与身份无关，共享缓存条目
	switch kind {
	case KindPopular:
		return "global"
	case KindTrending:
		// 趋势结果随生效窗口变化，窗口折入 key，避免窄窗口条目污染宽窗口请求
		window := (&recall.Trending{}).EffectiveWindowDays(rctx)
		return fmt.Sprintf("global:w%d", window)
	}
	if rctx.IsGuest() {
		return "guest"
	}
	return rctx.UserID
}

func (a *Aggregator) seenTTL() int {
	if a.SeenTTL > 0 {
		return a.SeenTTL
	}
	return filter.DefaultSeenTTL
}

func (a *Aggregator) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// retagSource 把内层来源的结果改标为指定 reason（游客兜底的接口形状兼容）。
type retagSource struct {
	inner  recall.Source
	reason core.Reason
	cause  string
}

func (s *retagSource) Name() string { return s.inner.Name() + ".retag" }

func (s *retagSource) Recall(ctx context.Context, rctx *core.RecommendContext) ([]*core.Item, error) {
	items, err := s.inner.Recall(ctx, rctx)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		it.Reason = s.reason
		it.PutLabel("fallback", utils.Label{Value: s.cause, Source: "engine"})
	}
	return items, nil
}
