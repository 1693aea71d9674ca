// Package builders 注册内置 Node 的配置构建器。
//
// 召回源依赖存储（信号、行为、商品目录），这些依赖无法从 YAML 表达，
// 由入口在加载配置前调用 SetDeps 注入；配置只描述拓扑与参数。
package builders

import (
	"fmt"
	"sync"
	"time"

	"github.com/rushteam/shoprec/config"
	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/filter"
	"github.com/rushteam/shoprec/pipeline"
	"github.com/rushteam/shoprec/pkg/conv"
	"github.com/rushteam/shoprec/rank"
	"github.com/rushteam/shoprec/recall"
	"github.com/rushteam/shoprec/rerank"
)

func init() {
	config.Register("recall.fanout", BuildFanoutNode)
	config.Register("recall.popular", BuildPopularNode)
	config.Register("recall.trending", BuildTrendingNode)
	config.Register("recall.personalized", BuildPersonalizedNode)
	config.Register("recall.similar", BuildSimilarNode)
	config.Register("rank.popularity", BuildPopularityNode)
	config.Register("rerank.topn", BuildTopNNode)
	config.Register("rerank.diversity", BuildDiversityNode)
	config.Register("filter", BuildFilterNode)
}

// Deps 是配置驱动 Node 所需的运行时依赖。
type Deps struct {
	Signals    core.SignalStore
	Activities core.ActivityStore
	Catalog    core.ProductCatalog
	Interests  recall.InterestProvider
	Seen       filter.SeenStore
	Scorer     *rank.PopularityScorer
}

var (
	deps   Deps
	depsMu sync.RWMutex
)

// SetDeps 注入存储依赖。需在 BuildPipeline 之前调用，否则依赖存储的
// Node 构建时报错。
func SetDeps(d Deps) {
	depsMu.Lock()
	defer depsMu.Unlock()
	deps = d
}

func currentDeps() Deps {
	depsMu.RLock()
	defer depsMu.RUnlock()
	d := deps
	if d.Scorer == nil {
		d.Scorer = rank.NewPopularityScorer()
	}
	return d
}

func BuildFanoutNode(cfg map[string]interface{}) (pipeline.Node, error) {
	sourcesConfig, ok := cfg["sources"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("sources not found or invalid")
	}
	sources := make([]recall.Source, 0, len(sourcesConfig))
	for _, sc := range sourcesConfig {
		sourceMap, ok := sc.(map[string]interface{})
		if !ok {
			continue
		}
		src, err := buildSource(sourceMap)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	fanout := &recall.Fanout{
		Sources:       sources,
		Dedup:         conv.ConfigGet(cfg, "dedup", true),
		MergeStrategy: conv.ConfigGet(cfg, "merge_strategy", "best"),
	}
	if sec := conv.ConfigGetInt64(cfg, "timeout", 0); sec > 0 {
		fanout.Timeout = time.Duration(sec) * time.Second
	}
	if n := conv.ConfigGetInt64(cfg, "max_concurrent", 0); n > 0 {
		fanout.MaxConcurrent = int(n)
	}
	return fanout, nil
}

func buildSource(cfg map[string]interface{}) (recall.Source, error) {
	d := currentDeps()
	topK := int(conv.ConfigGetInt64(cfg, "top_k", 0))
	switch sourceType := conv.ConfigGet(cfg, "type", ""); sourceType {
	case "popular":
		if d.Signals == nil {
			return nil, fmt.Errorf("popular source requires signal store (call builders.SetDeps)")
		}
		return &recall.Popular{Signals: d.Signals, Scorer: d.Scorer, TopK: topK}, nil
	case "trending":
		if d.Signals == nil || d.Activities == nil {
			return nil, fmt.Errorf("trending source requires signal and activity stores (call builders.SetDeps)")
		}
		return &recall.Trending{
			Activities: d.Activities,
			Signals:    d.Signals,
			Scorer:     d.Scorer,
			WindowDays: int(conv.ConfigGetInt64(cfg, "window_days", 0)),
			TopK:       topK,
		}, nil
	case "personalized":
		if d.Signals == nil || d.Activities == nil || d.Catalog == nil {
			return nil, fmt.Errorf("personalized source requires signal, activity and catalog stores (call builders.SetDeps)")
		}
		return &recall.Personalized{
			Activities:        d.Activities,
			Signals:           d.Signals,
			Catalog:           d.Catalog,
			Scorer:            d.Scorer,
			Interests:         d.Interests,
			TopK:              topK,
			HistoryWindowDays: int(conv.ConfigGetInt64(cfg, "history_window_days", 0)),
		}, nil
	case "similar":
		if d.Signals == nil || d.Catalog == nil {
			return nil, fmt.Errorf("similar source requires signal and catalog stores (call builders.SetDeps)")
		}
		return &recall.Similar{Signals: d.Signals, Catalog: d.Catalog, TopK: topK}, nil
	default:
		return nil, fmt.Errorf("unknown source type: %s", sourceType)
	}
}

func BuildPopularNode(cfg map[string]interface{}) (pipeline.Node, error) {
	src, err := buildSource(withType(cfg, "popular"))
	if err != nil {
		return nil, err
	}
	return src.(*recall.Popular), nil
}

func BuildTrendingNode(cfg map[string]interface{}) (pipeline.Node, error) {
	src, err := buildSource(withType(cfg, "trending"))
	if err != nil {
		return nil, err
	}
	return src.(*recall.Trending), nil
}

func BuildPersonalizedNode(cfg map[string]interface{}) (pipeline.Node, error) {
	src, err := buildSource(withType(cfg, "personalized"))
	if err != nil {
		return nil, err
	}
	return src.(*recall.Personalized), nil
}

func BuildSimilarNode(cfg map[string]interface{}) (pipeline.Node, error) {
	src, err := buildSource(withType(cfg, "similar"))
	if err != nil {
		return nil, err
	}
	return src.(*recall.Similar), nil
}

func BuildPopularityNode(cfg map[string]interface{}) (pipeline.Node, error) {
	d := currentDeps()
	if d.Signals == nil {
		return nil, fmt.Errorf("rank.popularity requires signal store (call builders.SetDeps)")
	}
	return &rank.PopularityNode{Scorer: d.Scorer, Signals: d.Signals}, nil
}

func BuildTopNNode(cfg map[string]interface{}) (pipeline.Node, error) {
	n := int(conv.ConfigGetInt64(cfg, "n", 0))
	if n <= 0 {
		return nil, fmt.Errorf("n must be positive")
	}
	return &rerank.TopNNode{N: n}, nil
}

func BuildDiversityNode(cfg map[string]interface{}) (pipeline.Node, error) {
	return &rerank.Diversity{
		MaxPerCategory: int(conv.ConfigGetInt64(cfg, "max_per_category", 0)),
	}, nil
}

func BuildFilterNode(cfg map[string]interface{}) (pipeline.Node, error) {
	filtersConfig, ok := cfg["filters"].([]interface{})
	if !ok {
		return nil, fmt.Errorf("filters not found or invalid")
	}
	d := currentDeps()
	filters := make([]filter.Filter, 0, len(filtersConfig))
	for _, fc := range filtersConfig {
		filterMap, ok := fc.(map[string]interface{})
		if !ok {
			continue
		}
		switch filterType := conv.ConfigGet(filterMap, "type", ""); filterType {
		case "purchased":
			if d.Activities == nil {
				return nil, fmt.Errorf("purchased filter requires activity store (call builders.SetDeps)")
			}
			filters = append(filters, &filter.PurchasedFilter{Activities: d.Activities})
		case "sellable":
			filters = append(filters, &filter.SellableFilter{Catalog: d.Catalog})
		case "seen":
			if d.Seen == nil {
				return nil, fmt.Errorf("seen filter requires seen store (call builders.SetDeps)")
			}
			filters = append(filters, &filter.SeenFilter{
				Store:     d.Seen,
				KeyPrefix: conv.ConfigGet(filterMap, "key_prefix", ""),
				TTL:       int(conv.ConfigGetInt64(filterMap, "ttl", 0)),
			})
		case "rule":
			filters = append(filters, &filter.RuleFilter{
				Expr: conv.ConfigGet(filterMap, "expr", ""),
			})
		default:
			return nil, fmt.Errorf("unknown filter type: %s", filterType)
		}
	}
	return &filter.FilterNode{Filters: filters}, nil
}

func withType(cfg map[string]interface{}, sourceType string) map[string]interface{} {
	out := make(map[string]interface{}, len(cfg)+1)
	for k, v := range cfg {
		out[k] = v
	}
	out["type"] = sourceType
	return out
}
