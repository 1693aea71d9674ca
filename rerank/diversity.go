package rerank

import (
	"context"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pipeline"
)

// Diversity 是类目多样性重排：限制同一类目在结果里的最大条数，
// 避免混合流整页都是同一类商品。MaxPerCategory <= 0 时不限制。
// 类目来源优先级：item.Product.Category，其次 label["category"]。
type Diversity struct {
	MaxPerCategory int
}

func (n *Diversity) Name() string {
	return "rerank.diversity"
}

func (n *Diversity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 || n.MaxPerCategory <= 0 {
		return items, nil
	}

	counts := make(map[string]int, 32)
	out := make([]*core.Item, 0, len(items))

	for _, it := range items {
		if it == nil {
			continue
		}

		cate := ""
		if it.Product != nil {
			cate = it.Product.Category
		}
		if cate == "" && it.Labels != nil {
			if lbl, ok := it.Labels["category"]; ok {
				cate = lbl.Value
			}
		}

		if cate == "" {
			out = append(out, it)
			continue
		}
		if counts[cate] >= n.MaxPerCategory {
			continue
		}
		counts[cate]++
		out = append(out, it)
	}
	return out, nil
}
