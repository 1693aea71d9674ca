package filter

import (
	"context"

	"github.com/rushteam/shoprec/core"
)

// StoreAdapter 将 core.KeyValueStore 适配为 SeenStore。
// 已下发集合使用 Set 结构存储，天然去重；TTL 由底层 SAdd 统一处理。
type StoreAdapter struct {
	store core.KeyValueStore
}

// NewStoreAdapter 创建一个 core.KeyValueStore 适配器。
func NewStoreAdapter(s core.KeyValueStore) *StoreAdapter {
	return &StoreAdapter{store: s}
}

// GetSeen 读取某身份已下发的商品 ID 集合。
func (a *StoreAdapter) GetSeen(ctx context.Context, subject, keyPrefix string) ([]string, error) {
	if a.store == nil {
		return nil, nil
	}
	members, err := a.store.SMembers(ctx, keyPrefix+":"+subject)
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return members, nil
}

// MarkSeen 记录某身份新下发的商品 ID。
func (a *StoreAdapter) MarkSeen(ctx context.Context, subject, keyPrefix string, productIDs []string, ttl int) error {
	if a.store == nil || len(productIDs) == 0 {
		return nil
	}
	return a.store.SAdd(ctx, keyPrefix+":"+subject, productIDs, ttl)
}

// ClearSeen 清空某身份的记账。
func (a *StoreAdapter) ClearSeen(ctx context.Context, subject, keyPrefix string) error {
	if a.store == nil {
		return nil
	}
	return a.store.Delete(ctx, keyPrefix+":"+subject)
}

var _ SeenStore = (*StoreAdapter)(nil)
