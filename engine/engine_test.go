package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rushteam/shoprec/core"
)

// 测试公用的假存储实现，带调用计数用于断言缓存行为。

var errStoreDown = errors.New("store down")

type fakeSignals struct {
	sigs  []*core.ProductSignal
	err   error
	calls int64
}

func (f *fakeSignals) ListActiveProductSignals(_ context.Context) ([]*core.ProductSignal, error) {
	atomic.AddInt64(&f.calls, 1)
	if f.err != nil {
		return nil, f.err
	}
	return f.sigs, nil
}

func (f *fakeSignals) GetProductSignal(_ context.Context, productID string) (*core.ProductSignal, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, sig := range f.sigs {
		if sig.ProductID == productID {
			return sig, nil
		}
	}
	return nil, core.ErrStoreNotFound
}

type fakeActivities struct {
	counts map[string]int64
	events []*core.ActivityEvent
	err    error

	// countsFn 非 nil 时按 since 计算聚合结果，模拟窗口相关的趋势数据
	countsFn func(since time.Time) map[string]int64
}

func (f *fakeActivities) CountEventsByProduct(_ context.Context, since time.Time) (map[string]int64, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.countsFn != nil {
		return f.countsFn(since), nil
	}
	return f.counts, nil
}

func (f *fakeActivities) ListEventsForSubject(_ context.Context, subjectID string, since time.Time) ([]*core.ActivityEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*core.ActivityEvent, 0, len(f.events))
	for _, ev := range f.events {
		if ev.SubjectID == subjectID && !ev.Timestamp.Before(since) {
			out = append(out, ev)
		}
	}
	return out, nil
}

type fakeCatalog struct {
	products map[string]*core.Product
	err      error
}

func (f *fakeCatalog) GetProductsByIDs(_ context.Context, ids []string) ([]*core.Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*core.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func itemIDs(items []*core.Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// testFixture 构造 n 个在售商品的完整环境，p1 热度最高依次递减。
func testFixture(n int, now time.Time) (*fakeSignals, *fakeActivities, *fakeCatalog) {
	old := now.AddDate(-1, 0, 0)
	signals := &fakeSignals{}
	catalog := &fakeCatalog{products: make(map[string]*core.Product, n)}
	for i := 0; i < n; i++ {
		id := productID(i)
		signals.sigs = append(signals.sigs, &core.ProductSignal{
			ProductID: id,
			ViewCount: int64(1000 - i),
			CreatedAt: old,
			IsActive:  true,
		})
		category := "electronics"
		if i%2 == 1 {
			category = "home"
		}
		catalog.products[id] = &core.Product{
			ID:       id,
			Category: category,
			Stock:    10,
			IsActive: true,
		}
	}
	activities := &fakeActivities{counts: map[string]int64{}}
	return signals, activities, catalog
}

func productID(i int) string {
	// p00, p01 ... 保证字典序与数值序一致
	return "p" + string(rune('0'+i/10)) + string(rune('0'+i%10))
}
