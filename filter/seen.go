package filter

import (
	"context"
	"sync"

	"github.com/rushteam/shoprec/core"
)

// SeenFilter 是分页会话的去重过滤器：过滤掉本次翻页会话中已经下发过的商品。
// 混合流的"连续两页不相交"约束由它保证——记账归聚合层所有，调用方无须参与。
//
// 已下发集合按请求惰性加载一次并缓存在过滤器实例内，
// 因此 SeenFilter 是请求级对象，不要跨请求复用。
//
// 记账 key 按身份隔离：{KeyPrefix}:{subject}。条目带 TTL，翻页会话
// 自然过期后用户可以重新看到旧商品。
type SeenFilter struct {
	// Store 用于读写已下发商品集合
	Store SeenStore

	// KeyPrefix 是 Store 中的 key 前缀，实际 key 为 {KeyPrefix}:{subject}
	KeyPrefix string

	// TTL 是记账条目的生存时间（秒），<= 0 时取默认 30 分钟
	TTL int

	once sync.Once
	seen map[string]bool
}

// SeenStore 是已下发记账的存储接口。
type SeenStore interface {
	// GetSeen 获取某身份已下发的商品 ID 集合
	GetSeen(ctx context.Context, subject, keyPrefix string) ([]string, error)

	// MarkSeen 记录某身份新下发的商品 ID，ttl 单位为秒
	MarkSeen(ctx context.Context, subject, keyPrefix string, productIDs []string, ttl int) error

	// ClearSeen 清空某身份的记账（新的翻页会话从头开始）
	ClearSeen(ctx context.Context, subject, keyPrefix string) error
}

// DefaultSeenTTL 是分页会话记账的默认生存时间（秒）。
const DefaultSeenTTL = 30 * 60

func (f *SeenFilter) Name() string {
	return "filter.seen"
}

func (f *SeenFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || f.Store == nil {
		return false, nil
	}
	subject := rctx.Subject()
	if subject == "" {
		return false, nil
	}

	f.once.Do(func() {
		f.seen = make(map[string]bool)
		ids, err := f.Store.GetSeen(ctx, subject, f.keyPrefix())
		if err != nil {
			// 记账读不到时放行，宁可重复也不清空页面
			return
		}
		for _, id := range ids {
			f.seen[id] = true
		}
	})
	return f.seen[item.ID], nil
}

// Mark 记录一页下发的商品。聚合层在组完一页后调用。
func (f *SeenFilter) Mark(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) error {
	if f.Store == nil || len(items) == 0 {
		return nil
	}
	subject := rctx.Subject()
	if subject == "" {
		return nil
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it != nil {
			ids = append(ids, it.ID)
		}
	}
	ttl := f.TTL
	if ttl <= 0 {
		ttl = DefaultSeenTTL
	}
	return f.Store.MarkSeen(ctx, subject, f.keyPrefix(), ids, ttl)
}

// Reset 清空记账，开始新的翻页会话（offset 归零时由聚合层调用）。
func (f *SeenFilter) Reset(ctx context.Context, rctx *core.RecommendContext) error {
	if f.Store == nil {
		return nil
	}
	subject := rctx.Subject()
	if subject == "" {
		return nil
	}
	return f.Store.ClearSeen(ctx, subject, f.keyPrefix())
}

func (f *SeenFilter) keyPrefix() string {
	if f.KeyPrefix == "" {
		return "feed:seen"
	}
	return f.KeyPrefix
}
