package filter

import (
	"context"
	"sync"
	"time"

	"github.com/rushteam/shoprec/core"
)

// PurchasedFilter 过滤掉用户已经购买过的商品。
// 业务规则在这里强制执行，不依赖调用方自觉。
//
// 购买集合按请求惰性加载一次并缓存在过滤器实例内，
// 因此 PurchasedFilter 是请求级对象，不要跨请求复用。
type PurchasedFilter struct {
	Activities core.ActivityStore

	once      sync.Once
	purchased map[string]bool
	loadErr   error
}

func (f *PurchasedFilter) Name() string {
	return "filter.purchased"
}

func (f *PurchasedFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || rctx == nil || rctx.UserID == "" || f.Activities == nil {
		return false, nil
	}

	f.once.Do(func() {
		f.purchased = make(map[string]bool)
		events, err := f.Activities.ListEventsForSubject(ctx, rctx.UserID, time.Time{})
		if err != nil {
			f.loadErr = err
			return
		}
		for _, ev := range events {
			if ev != nil && ev.Type == core.ActivityPurchase {
				f.purchased[ev.ProductID] = true
			}
		}
	})
	if f.loadErr != nil {
		// 历史读不到时放行：漏过滤好于整页失败
		return false, nil
	}
	return f.purchased[item.ID], nil
}
