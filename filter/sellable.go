package filter

import (
	"context"

	"github.com/rushteam/shoprec/core"
)

// SellableFilter 过滤掉下架或零库存的商品。
// 优先使用 item.Product（join 之后的链路）；未 join 时通过 Catalog 查询。
type SellableFilter struct {
	Catalog core.ProductCatalog
}

func (f *SellableFilter) Name() string {
	return "filter.sellable"
}

func (f *SellableFilter) ShouldFilter(
	ctx context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return false, nil
	}
	if item.Product != nil {
		return !item.Product.Sellable(), nil
	}
	if f.Catalog == nil {
		return false, nil
	}
	products, err := f.Catalog.GetProductsByIDs(ctx, []string{item.ID})
	if err != nil {
		return false, err
	}
	if len(products) == 0 || products[0] == nil {
		// 目录里不存在的商品不可展示
		return true, nil
	}
	return !products[0].Sellable(), nil
}
