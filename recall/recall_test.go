package recall

import (
	"context"
	"errors"
	"time"

	"github.com/rushteam/shoprec/core"
)

// 测试公用的假存储实现。

type fakeSignals struct {
	sigs []*core.ProductSignal
	err  error
}

func (f *fakeSignals) ListActiveProductSignals(_ context.Context) ([]*core.ProductSignal, error) {
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

	gotSince time.Time
}

func (f *fakeActivities) CountEventsByProduct(_ context.Context, since time.Time) (map[string]int64, error) {
	f.gotSince = since
	if f.err != nil {
		return nil, f.err
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

var errStoreDown = errors.New("store down")

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
