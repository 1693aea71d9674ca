package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/engine"
	"github.com/rushteam/shoprec/filter"
	"github.com/rushteam/shoprec/store"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := store.NewMemoryStore()
	t.Cleanup(func() { mem.Close() })

	signals := store.NewSignalAdapter(mem)
	activities := store.NewActivityAdapter(mem)
	catalog := store.NewCatalogAdapter(mem)

	ctx := context.Background()
	now := time.Now()
	for i, id := range []string{"p1", "p2", "p3", "p4", "p5"} {
		_ = catalog.PutProduct(ctx, &core.Product{
			ID: id, Name: id, Category: "electronics", Stock: 10, IsActive: true,
		})
		_ = signals.PutSignal(ctx, &core.ProductSignal{
			ProductID: id,
			ViewCount: int64(100 - i*10),
			CreatedAt: now.AddDate(0, -6, 0),
			IsActive:  true,
		})
	}
	_ = activities.RecordEvent(ctx, &core.ActivityEvent{
		SubjectID: "u1", ProductID: "p2", Type: core.ActivityView, Timestamp: now.Add(-time.Hour),
	})

	agg := &engine.Aggregator{
		Signals:    signals,
		Activities: activities,
		Catalog:    catalog,
		Seen:       filter.NewStoreAdapter(mem),
	}
	return New(agg, Options{}).Router()
}

type envelope struct {
	Success bool             `json:"success"`
	Data    []*core.Item     `json:"data"`
	Count   int              `json:"count"`
	RawPage *json.RawMessage `json:"pagination"`
	Error   string           `json:"error"`
}

func doGet(t *testing.T, r *gin.Engine, path string, headers map[string]string) (*httptest.ResponseRecorder, *envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("bad response body %q: %v", w.Body.String(), err)
	}
	return w, &env
}

func TestServer_PopularEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w, env := doGet(t, r, "/api/v1/recommendations/popular?limit=3", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !env.Success || env.Count != 3 || len(env.Data) != 3 {
		t.Errorf("envelope = success:%v count:%d len:%d", env.Success, env.Count, len(env.Data))
	}
	if env.Data[0].ID != "p1" {
		t.Errorf("top popular = %s, want p1", env.Data[0].ID)
	}
	cc := w.Header().Get("Cache-Control")
	if !strings.Contains(cc, "max-age=30") || !strings.Contains(cc, "stale-while-revalidate=300") {
		t.Errorf("Cache-Control = %q", cc)
	}
}

// Oversized limits are clamped to the maximum, not rejected.
func TestServer_LimitClamped(t *testing.T) {
	r := newTestRouter(t)

	w, env := doGet(t, r, "/api/v1/recommendations/popular?limit=500", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	// Only 5 products exist; the point is that 500 did not 4xx.
	if !env.Success || env.Count != 5 {
		t.Errorf("envelope = success:%v count:%d", env.Success, env.Count)
	}
}

func TestServer_PersonalizedIdentity(t *testing.T) {
	r := newTestRouter(t)

	// Guest: no identity headers at all.
	w, env := doGet(t, r, "/api/v1/recommendations/personalized?limit=3", nil)
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("guest request failed: %d %q", w.Code, env.Error)
	}
	for _, it := range env.Data {
		if it.Reason != core.ReasonPersonalized {
			t.Errorf("guest item %s reason = %q, want personalized", it.ID, it.Reason)
		}
	}

	// Logged-in user.
	w, env = doGet(t, r, "/api/v1/recommendations/personalized?limit=3",
		map[string]string{"X-User-ID": "u1"})
	if w.Code != http.StatusOK || !env.Success || len(env.Data) == 0 {
		t.Fatalf("user request failed: %d %q", w.Code, env.Error)
	}
}

func TestServer_MixedFeedPagination(t *testing.T) {
	r := newTestRouter(t)
	headers := map[string]string{"X-Session-ID": "sess-1"}

	w, env := doGet(t, r, "/api/v1/recommendations?limit=2&page=1", headers)
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("page 1 failed: %d %q", w.Code, env.Error)
	}
	if len(env.Data) != 2 {
		t.Fatalf("page 1 len = %d, want 2", len(env.Data))
	}
	if env.RawPage == nil {
		t.Fatal("pagination block missing")
	}
	var page core.Page
	if err := json.Unmarshal(*env.RawPage, &page); err != nil {
		t.Fatalf("bad pagination: %v", err)
	}
	if page.Page != 1 || page.Limit != 2 {
		t.Errorf("pagination = %+v", page)
	}

	first := map[string]bool{}
	for _, it := range env.Data {
		first[it.ID] = true
	}

	_, env2 := doGet(t, r, "/api/v1/recommendations?limit=2&page=2", headers)
	for _, it := range env2.Data {
		if first[it.ID] {
			t.Errorf("product %s repeated on page 2", it.ID)
		}
	}
}

func TestServer_SimilarEndpoint(t *testing.T) {
	r := newTestRouter(t)

	w, env := doGet(t, r, "/api/v1/products/p1/similar?limit=3", nil)
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("similar failed: %d %q", w.Code, env.Error)
	}
	for _, it := range env.Data {
		if it.ID == "p1" {
			t.Error("anchor returned as its own similar product")
		}
		if it.Reason != core.ReasonSimilar {
			t.Errorf("item %s reason = %q, want similar", it.ID, it.Reason)
		}
	}

	// Unknown product: empty success, not an error.
	w, env = doGet(t, r, "/api/v1/products/ghost/similar", nil)
	if w.Code != http.StatusOK || !env.Success || env.Count != 0 {
		t.Errorf("ghost similar = %d success:%v count:%d, want empty 200", w.Code, env.Success, env.Count)
	}
}

func TestServer_Health(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("health = %d, want 200", w.Code)
	}
}
