package recall

import (
	"context"
	"testing"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pkg/utils"
)

type stubSource struct {
	name  string
	items []*core.Item
	err   error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Recall(_ context.Context, _ *core.RecommendContext) ([]*core.Item, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

func newItem(id string, score float64, reason core.Reason) *core.Item {
	it := core.NewItem(id)
	it.Score = score
	it.Reason = reason
	return it
}

func TestFanout_FailedSourceDoesNotBreakOthers(t *testing.T) {
	fanout := &Fanout{
		Sources: []Source{
			&stubSource{name: "ok", items: []*core.Item{newItem("p1", 1, core.ReasonPopular)}},
			&stubSource{name: "down", err: errStoreDown},
		},
		Dedup: true,
	}

	items, err := fanout.Process(context.Background(), &core.RecommendContext{}, nil)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !equalIDs(itemIDs(items), []string{"p1"}) {
		t.Errorf("Process() = %v, want [p1]", itemIDs(items))
	}
}

func TestMergeBest(t *testing.T) {
	tests := []struct {
		name      string
		all       []*core.Item
		wantIDs   []string
		wantScore map[string]float64
	}{
		{
			name: "higher score wins for duplicate ID",
			all: []*core.Item{
				newItem("p1", 1.0, core.ReasonPopular),
				newItem("p2", 3.0, core.ReasonTrending),
				newItem("p1", 2.0, core.ReasonTrending),
			},
			wantIDs:   []string{"p1", "p2"},
			wantScore: map[string]float64{"p1": 2.0},
		},
		{
			name: "equal score resolved by reason priority",
			all: []*core.Item{
				newItem("p1", 2.0, core.ReasonPopular),
				newItem("p1", 2.0, core.ReasonPersonalized),
			},
			wantIDs: []string{"p1"},
		},
		{
			name: "first-seen slot kept on replacement",
			all: []*core.Item{
				newItem("p1", 1.0, core.ReasonPopular),
				newItem("p2", 5.0, core.ReasonPopular),
				newItem("p1", 9.0, core.ReasonPersonalized),
			},
			wantIDs:   []string{"p1", "p2"},
			wantScore: map[string]float64{"p1": 9.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeBest(tt.all, true)
			if !equalIDs(itemIDs(got), tt.wantIDs) {
				t.Fatalf("MergeBest() = %v, want %v", itemIDs(got), tt.wantIDs)
			}
			for id, want := range tt.wantScore {
				for _, it := range got {
					if it.ID == id && it.Score != want {
						t.Errorf("item %s score = %v, want %v", id, it.Score, want)
					}
				}
			}
		})
	}
}

func TestMergeBest_ReasonPriorityOnTie(t *testing.T) {
	a := newItem("p1", 2.0, core.ReasonPopular)
	b := newItem("p1", 2.0, core.ReasonPersonalized)

	got := MergeBest([]*core.Item{a, b}, true)
	if len(got) != 1 || got[0].Reason != core.ReasonPersonalized {
		t.Fatalf("MergeBest() kept %v, want personalized", got[0].Reason)
	}

	// Similar loses to everything on tie.
	c := newItem("p2", 1.0, core.ReasonSimilar)
	d := newItem("p2", 1.0, core.ReasonPopular)
	got = MergeBest([]*core.Item{c, d}, true)
	if got[0].Reason != core.ReasonPopular {
		t.Errorf("MergeBest() kept %v, want popular over similar", got[0].Reason)
	}
}

// Labels from the merged-away duplicate accumulate onto the survivor.
func TestMergeBest_LabelAccumulation(t *testing.T) {
	a := newItem("p1", 1.0, core.ReasonPopular)
	a.PutLabel("recall_source", utils.Label{Value: "recall.popular", Source: "recall"})
	b := newItem("p1", 2.0, core.ReasonPersonalized)
	b.PutLabel("recall_source", utils.Label{Value: "recall.personalized", Source: "recall"})

	got := MergeBest([]*core.Item{a, b}, true)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	lbl := got[0].Labels["recall_source"]
	if lbl.Value != "recall.personalized|recall.popular" {
		t.Errorf("merged label = %q, want both sources accumulated", lbl.Value)
	}
}

func TestMergeBest_NoDedupPassthrough(t *testing.T) {
	all := []*core.Item{
		newItem("p1", 1.0, core.ReasonPopular),
		newItem("p1", 2.0, core.ReasonTrending),
	}
	if got := MergeBest(all, false); len(got) != 2 {
		t.Errorf("dedup disabled: len = %d, want 2", len(got))
	}
}
