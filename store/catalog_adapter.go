package store

import (
	"context"
	"encoding/json"

	"github.com/rushteam/shoprec/core"
)

// CatalogAdapter 将 core.Store 适配为 ProductCatalog。
//
// 存储布局：
//   - product:{productID} -> JSON 序列化的 Product
//
// 缺失的 ID 直接缺席于结果，从不以 nil 占位。
type CatalogAdapter struct {
	store core.Store
}

// NewCatalogAdapter 创建一个 KV 后端的 ProductCatalog。
func NewCatalogAdapter(s core.Store) *CatalogAdapter {
	return &CatalogAdapter{store: s}
}

var _ core.ProductCatalog = (*CatalogAdapter)(nil)

const productKeyPrefix = "product:"

// GetProductsByIDs 批量读取商品详情，保持入参顺序。
func (a *CatalogAdapter) GetProductsByIDs(ctx context.Context, ids []string) ([]*core.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, productKeyPrefix+id)
	}
	kvs, err := a.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	out := make([]*core.Product, 0, len(ids))
	for _, id := range ids {
		data, ok := kvs[productKeyPrefix+id]
		if !ok {
			continue
		}
		var p core.Product
		if err := json.Unmarshal(data, &p); err != nil {
			continue
		}
		out = append(out, &p)
	}
	return out, nil
}

// PutProduct 写入商品详情（演示/测试用）。
func (a *CatalogAdapter) PutProduct(ctx context.Context, p *core.Product) error {
	if p == nil || p.ID == "" {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return a.store.Set(ctx, productKeyPrefix+p.ID, data)
}
