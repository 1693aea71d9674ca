package engine

import (
	"context"
	"testing"

	"github.com/rushteam/shoprec/core"
)

func TestJoinProducts(t *testing.T) {
	items := []*core.Item{
		{ID: "ok", Score: 3},
		{ID: "missing", Score: 2},
		{ID: "inactive", Score: 1},
		{ID: "soldout", Score: 0.5},
	}
	products := []*core.Product{
		{ID: "ok", Stock: 5, IsActive: true},
		{ID: "inactive", Stock: 5, IsActive: false},
		{ID: "soldout", Stock: 0, IsActive: true},
	}

	got := JoinProducts(items, products)
	if len(got) != 1 || got[0].ID != "ok" {
		t.Fatalf("JoinProducts() = %v, want only [ok]", itemIDs(got))
	}
	if got[0].Product == nil || got[0].Product.ID != "ok" {
		t.Error("surviving item not joined with its product")
	}
}

func TestJoinProducts_Empty(t *testing.T) {
	if got := JoinProducts(nil, nil); got != nil {
		t.Errorf("JoinProducts(nil) = %v, want nil", got)
	}
}

// Catalog outage degrades to unjoined items instead of dropping the page.
func TestFetchAndJoin_CatalogDownDegrades(t *testing.T) {
	items := []*core.Item{{ID: "p1", Score: 1}}
	got := fetchAndJoin(context.Background(), &fakeCatalog{err: errStoreDown}, items)
	if len(got) != 1 || got[0].Product != nil {
		t.Errorf("fetchAndJoin() = %v, want original unjoined items", got)
	}
}

func TestFetchAndJoin_SkipsAlreadyJoined(t *testing.T) {
	joined := &core.Item{ID: "p1", Product: &core.Product{ID: "p1", Stock: 1, IsActive: true}}
	catalog := &fakeCatalog{products: map[string]*core.Product{
		"p2": {ID: "p2", Stock: 1, IsActive: true},
	}}

	got := fetchAndJoin(context.Background(), catalog, []*core.Item{joined, {ID: "p2"}})
	if len(got) != 2 {
		t.Fatalf("fetchAndJoin() len = %d, want 2", len(got))
	}
	if got[0].Product != joined.Product {
		t.Error("already joined product was replaced")
	}
}
