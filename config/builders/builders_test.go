package builders

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/shoprec/config"
	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/recall"
	"github.com/rushteam/shoprec/rerank"
)

type fakeSignals struct{ sigs []*core.ProductSignal }

func (f *fakeSignals) ListActiveProductSignals(_ context.Context) ([]*core.ProductSignal, error) {
	return f.sigs, nil
}

func (f *fakeSignals) GetProductSignal(_ context.Context, productID string) (*core.ProductSignal, error) {
	for _, sig := range f.sigs {
		if sig.ProductID == productID {
			return sig, nil
		}
	}
	return nil, core.ErrStoreNotFound
}

type fakeActivities struct{}

func (f *fakeActivities) CountEventsByProduct(_ context.Context, _ time.Time) (map[string]int64, error) {
	return nil, nil
}

func (f *fakeActivities) ListEventsForSubject(_ context.Context, _ string, _ time.Time) ([]*core.ActivityEvent, error) {
	return nil, nil
}

func TestBuildersRegistered(t *testing.T) {
	want := []string{
		"filter",
		"rank.popularity",
		"recall.fanout",
		"recall.personalized",
		"recall.popular",
		"recall.similar",
		"recall.trending",
		"rerank.diversity",
		"rerank.topn",
	}
	got := config.SupportedTypes()
	for _, typeName := range want {
		found := false
		for _, g := range got {
			if g == typeName {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("builder %q not registered (got %v)", typeName, got)
		}
	}
}

func TestBuildTopNNode(t *testing.T) {
	node, err := BuildTopNNode(map[string]interface{}{"n": 5})
	if err != nil {
		t.Fatalf("BuildTopNNode() error = %v", err)
	}
	if topn, ok := node.(*rerank.TopNNode); !ok || topn.N != 5 {
		t.Errorf("BuildTopNNode() = %+v, want TopNNode{N:5}", node)
	}

	if _, err := BuildTopNNode(map[string]interface{}{}); err == nil {
		t.Error("BuildTopNNode() without n should fail")
	}
}

func TestBuildDiversityNode(t *testing.T) {
	node, err := BuildDiversityNode(map[string]interface{}{"max_per_category": 3})
	if err != nil {
		t.Fatalf("BuildDiversityNode() error = %v", err)
	}
	if d, ok := node.(*rerank.Diversity); !ok || d.MaxPerCategory != 3 {
		t.Errorf("BuildDiversityNode() = %+v", node)
	}
}

func TestBuildFilterNode_RuleOnly(t *testing.T) {
	node, err := BuildFilterNode(map[string]interface{}{
		"filters": []interface{}{
			map[string]interface{}{"type": "rule", "expr": "item.score < 0.1"},
			map[string]interface{}{"type": "sellable"},
		},
	})
	if err != nil {
		t.Fatalf("BuildFilterNode() error = %v", err)
	}
	if node == nil {
		t.Fatal("BuildFilterNode() returned nil node")
	}

	if _, err := BuildFilterNode(map[string]interface{}{
		"filters": []interface{}{map[string]interface{}{"type": "bogus"}},
	}); err == nil {
		t.Error("unknown filter type should fail")
	}
}

func TestBuildFanoutNode_WithDeps(t *testing.T) {
	SetDeps(Deps{
		Signals:    &fakeSignals{},
		Activities: &fakeActivities{},
	})
	defer SetDeps(Deps{})

	node, err := BuildFanoutNode(map[string]interface{}{
		"dedup":          true,
		"timeout":        2,
		"merge_strategy": "best",
		"sources": []interface{}{
			map[string]interface{}{"type": "popular", "top_k": 10},
			map[string]interface{}{"type": "trending", "window_days": 3},
		},
	})
	if err != nil {
		t.Fatalf("BuildFanoutNode() error = %v", err)
	}
	fanout, ok := node.(*recall.Fanout)
	if !ok {
		t.Fatalf("BuildFanoutNode() = %T, want *recall.Fanout", node)
	}
	if len(fanout.Sources) != 2 || fanout.Timeout != 2*time.Second {
		t.Errorf("fanout = %+v", fanout)
	}
}

// Source builders must fail loudly when their stores were never injected.
func TestBuildSourceWithoutDepsFails(t *testing.T) {
	SetDeps(Deps{})

	if _, err := BuildPopularNode(map[string]interface{}{}); err == nil {
		t.Error("BuildPopularNode() without deps should fail")
	}
	if _, err := BuildFanoutNode(map[string]interface{}{
		"sources": []interface{}{map[string]interface{}{"type": "trending"}},
	}); err == nil {
		t.Error("trending source without deps should fail")
	}
}
