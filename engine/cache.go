package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rushteam/shoprec/core"
)

// ResultCache 是显式注入的结果缓存，替代进程级单例：
// 单测可以对每个 case 注入独立实例，状态不跨用例泄漏。
//
// 一致性约定：条目整体写入、整体读出；读到的要么是完整条目要么是 miss，
// 不可能观察到半写。过期走惰性失效（读时 miss），不做后台刷新。
type ResultCache struct {
	store core.Store
	ttl   time.Duration

	// Now 用于测试注入时钟；为 nil 时使用 time.Now
	Now func() time.Time
}

// NewResultCache 创建一个 TTL 结果缓存。ttl <= 0 时缓存被禁用。
func NewResultCache(store core.Store, ttl time.Duration) *ResultCache {
	return &ResultCache{store: store, ttl: ttl}
}

const cacheKeyPrefix = "reccache:"

// CacheKey 按 (类目, 身份, limit) 构造缓存 key。
func CacheKey(kind, subject string, limit int) string {
	if subject == "" {
		subject = "guest"
	}
	return fmt.Sprintf("%s%s:%s:%d", cacheKeyPrefix, kind, subject, limit)
}

// Get 读取缓存条目；miss 或缓存未启用时返回 (nil, false)。
func (c *ResultCache) Get(ctx context.Context, key string) ([]*core.Item, bool) {
	if c == nil || c.store == nil || c.ttl <= 0 {
		return nil, false
	}
	data, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var items []*core.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, false
	}
	return items, true
}

// Set 整体写入缓存条目；序列化失败时放弃写入，不影响调用方。
func (c *ResultCache) Set(ctx context.Context, key string, items []*core.Item) {
	if c == nil || c.store == nil || c.ttl <= 0 {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	_ = c.store.Set(ctx, key, data, int(c.ttl/time.Second))
}

// InvalidatePrefix 按前缀失效缓存（例如商品批量下架后清掉所有热门榜）。
func (c *ResultCache) InvalidatePrefix(ctx context.Context, kind string) error {
	if c == nil || c.store == nil {
		return nil
	}
	return c.store.DeletePrefix(ctx, cacheKeyPrefix+kind)
}
