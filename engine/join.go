package engine

import (
	"context"

	"github.com/rushteam/shoprec/core"
)

// JoinProducts 是分数与商品详情的显式 join 契约：
// 任何商品缺失、下架或零库存的分数条目都被丢弃，从不以 nil 占位。
// 纯函数，入参不被修改（Item 上就地挂 Product 除外）。
func JoinProducts(items []*core.Item, products []*core.Product) []*core.Item {
	if len(items) == 0 {
		return nil
	}
	byID := make(map[string]*core.Product, len(products))
	for _, p := range products {
		if p != nil {
			byID[p.ID] = p
		}
	}

	out := make([]*core.Item, 0, len(items))
	for _, it := range items {
		if it == nil {
			continue
		}
		p, ok := byID[it.ID]
		if !ok || !p.Sellable() {
			continue
		}
		it.Product = p
		out = append(out, it)
	}
	return out
}

// fetchAndJoin 拉取商品详情后执行 JoinProducts。
// 目录不可用时返回原始条目而不是失败——详情缺失可以降级展示，
// 整页报错不可以。已有 Product 的条目不会重复拉取。
func fetchAndJoin(ctx context.Context, catalog core.ProductCatalog, items []*core.Item) []*core.Item {
	if len(items) == 0 {
		return nil
	}
	if catalog == nil {
		return items
	}

	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it != nil && it.Product == nil {
			ids = append(ids, it.ID)
		}
	}

	products := make([]*core.Product, 0, len(items))
	for _, it := range items {
		if it != nil && it.Product != nil {
			products = append(products, it.Product)
		}
	}
	if len(ids) > 0 {
		fetched, err := catalog.GetProductsByIDs(ctx, ids)
		if err != nil {
			return items
		}
		products = append(products, fetched...)
	}
	return JoinProducts(items, products)
}
