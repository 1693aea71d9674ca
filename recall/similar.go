package recall

import (
	"context"
	"math"
	"sort"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pipeline"
	"github.com/rushteam/shoprec/pkg/utils"
)

// Similar 是相似商品召回源（Content-Based）：以上下文商品的类目/标签
// 特征为查询向量，对候选商品做余弦相似度排序。
//
// 核心思想："用户正在看具有某些特征的商品，推荐具有相似特征的其他商品"。
// 没有上下文商品（rctx.ProductID 为空）或任何读取失败时降级为空列表。
type Similar struct {
	Signals core.SignalStore
	Catalog core.ProductCatalog

	// TopK 返回 TopK 个商品；<= 0 表示不截断
	TopK int
}

func (r *Similar) Name() string        { return "recall.similar" }
func (r *Similar) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall。
func (r *Similar) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口。
func (r *Similar) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Signals == nil || r.Catalog == nil || rctx == nil || rctx.ProductID == "" {
		return nil, nil
	}

	anchor, err := r.loadFeatures(ctx, rctx.ProductID)
	if err != nil || len(anchor) == 0 {
		return nil, nil
	}

	sigs, err := r.Signals.ListActiveProductSignals(ctx)
	if err != nil {
		return nil, nil
	}

	ids := make([]string, 0, len(sigs))
	for _, sig := range sigs {
		if sig == nil || !sig.IsActive || sig.ProductID == rctx.ProductID {
			continue
		}
		ids = append(ids, sig.ProductID)
	}

	products, err := r.Catalog.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, nil
	}

	out := make([]*core.Item, 0, len(products))
	for _, p := range products {
		if !p.Sellable() {
			continue
		}
		sim := cosine(anchor, featureVector(p))
		if sim <= 0 {
			continue
		}
		it := core.NewItem(p.ID)
		it.Score = sim
		it.Reason = core.ReasonSimilar
		it.Product = p
		it.PutLabel("recall_source", utils.Label{Value: r.Name(), Source: "recall"})
		it.PutLabel("similar_to", utils.Label{Value: rctx.ProductID, Source: "recall"})
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

func (r *Similar) loadFeatures(ctx context.Context, productID string) (map[string]float64, error) {
	products, err := r.Catalog.GetProductsByIDs(ctx, []string{productID})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 || products[0] == nil {
		return nil, core.ErrStoreNotFound
	}
	return featureVector(products[0]), nil
}

// featureVector 把商品的类目/标签展开为 0/1 特征向量。
func featureVector(p *core.Product) map[string]float64 {
	features := productFeatures(p)
	vec := make(map[string]float64, len(features))
	for _, f := range features {
		vec[f] = 1
	}
	return vec
}

// cosine 计算两个稀疏特征向量的余弦相似度。
func cosine(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for k, va := range a {
		normA += va * va
		if vb, ok := b[k]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if dot == 0 || normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
