package filter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rushteam/shoprec/core"
)

var errStoreDown = errors.New("store down")

type fakeActivities struct {
	events []*core.ActivityEvent
	err    error
}

func (f *fakeActivities) CountEventsByProduct(_ context.Context, _ time.Time) (map[string]int64, error) {
	return nil, nil
}

func (f *fakeActivities) ListEventsForSubject(_ context.Context, subjectID string, _ time.Time) ([]*core.ActivityEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*core.ActivityEvent, 0, len(f.events))
	for _, ev := range f.events {
		if ev.SubjectID == subjectID {
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

func TestPurchasedFilter(t *testing.T) {
	activities := &fakeActivities{events: []*core.ActivityEvent{
		{SubjectID: "u1", ProductID: "p1", Type: core.ActivityPurchase},
		{SubjectID: "u1", ProductID: "p2", Type: core.ActivityView},
		{SubjectID: "u2", ProductID: "p3", Type: core.ActivityPurchase},
	}}

	tests := []struct {
		name   string
		rctx   *core.RecommendContext
		itemID string
		want   bool
	}{
		{"purchased product filtered", &core.RecommendContext{UserID: "u1"}, "p1", true},
		{"viewed-only product passes", &core.RecommendContext{UserID: "u1"}, "p2", false},
		{"other user's purchase passes", &core.RecommendContext{UserID: "u1"}, "p3", false},
		{"guest never filtered", &core.RecommendContext{SessionID: "s1"}, "p1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &PurchasedFilter{Activities: activities}
			got, err := f.ShouldFilter(context.Background(), tt.rctx, core.NewItem(tt.itemID))
			if err != nil {
				t.Fatalf("ShouldFilter() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ShouldFilter(%s) = %v, want %v", tt.itemID, got, tt.want)
			}
		})
	}
}

// A broken history store must not blank the page.
func TestPurchasedFilter_LoadErrorPassesThrough(t *testing.T) {
	f := &PurchasedFilter{Activities: &fakeActivities{err: errStoreDown}}
	got, err := f.ShouldFilter(context.Background(), &core.RecommendContext{UserID: "u1"}, core.NewItem("p1"))
	if err != nil || got {
		t.Errorf("ShouldFilter() = (%v, %v), want pass-through on load error", got, err)
	}
}

func TestSellableFilter(t *testing.T) {
	catalog := &fakeCatalog{products: map[string]*core.Product{
		"ok":       {ID: "ok", Stock: 5, IsActive: true},
		"inactive": {ID: "inactive", Stock: 5, IsActive: false},
		"soldout":  {ID: "soldout", Stock: 0, IsActive: true},
	}}
	f := &SellableFilter{Catalog: catalog}
	ctx := context.Background()

	tests := []struct {
		name string
		item *core.Item
		want bool
	}{
		{"sellable passes", core.NewItem("ok"), false},
		{"inactive filtered", core.NewItem("inactive"), true},
		{"sold out filtered", core.NewItem("soldout"), true},
		{"missing from catalog filtered", core.NewItem("ghost"), true},
		{
			name: "joined product short-circuits catalog",
			item: &core.Item{ID: "x", Product: &core.Product{ID: "x", Stock: 1, IsActive: true}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.ShouldFilter(ctx, &core.RecommendContext{}, tt.item)
			if err != nil {
				t.Fatalf("ShouldFilter() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ShouldFilter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterNode_Process(t *testing.T) {
	catalog := &fakeCatalog{products: map[string]*core.Product{
		"keep": {ID: "keep", Stock: 1, IsActive: true},
		"drop": {ID: "drop", Stock: 0, IsActive: true},
	}}
	node := &FilterNode{Filters: []Filter{&SellableFilter{Catalog: catalog}}}

	items, err := node.Process(context.Background(), &core.RecommendContext{}, []*core.Item{
		core.NewItem("keep"),
		core.NewItem("drop"),
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(items) != 1 || items[0].ID != "keep" {
		t.Errorf("Process() kept %v, want [keep]", items)
	}
}
