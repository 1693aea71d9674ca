package dsl

import (
	"testing"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pkg/utils"
)

func TestEval_Evaluate(t *testing.T) {
	it := core.NewItem("p1")
	it.Score = 0.8
	it.Reason = core.ReasonTrending
	it.Product = &core.Product{ID: "p1", Category: "books", Price: 49.9, Stock: 3}
	it.PutLabel("recall_source", utils.Label{Value: "recall.trending", Source: "recall"})

	rctx := &core.RecommendContext{UserID: "u1", Scene: "home_feed"}

	tests := []struct {
		name    string
		expr    string
		want    bool
		wantErr bool
	}{
		{"empty expression is true", "", true, false},
		{"score comparison", "item.score > 0.7", true, false},
		{"price comparison", "item.price >= 100.0", false, false},
		{"category equality", `item.category == "books"`, true, false},
		{"reason check", `item.reason == "trending"`, true, false},
		{"label contains", `label.recall_source.contains("trending")`, true, false},
		{"logical and", `item.category == "books" && item.score > 0.9`, false, false},
		{"rctx scene", `rctx.scene == "home_feed" && !rctx.is_guest`, true, false},
		{"compile error", "item.score >", false, true},
		{"non-boolean result", "item.score", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewEval(it, rctx).Evaluate(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Evaluate(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEval_GuestContext(t *testing.T) {
	it := core.NewItem("p1")
	guest := &core.RecommendContext{SessionID: "sess-1"}

	got, err := NewEval(it, guest).Evaluate("rctx.is_guest")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !got {
		t.Error("session-only context not treated as guest")
	}
}
