package retriever

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookwise/internal/domain"
	"bookwise/internal/retry"
)

func newTestAggregator(search *fakeSearch) *Aggregator {
	policy := retry.Policy{Attempts: 1}
	return NewAggregator(&fakeEmbedder{dimension: 4}, search, policy, nil)
}

func TestAggregateDedupsByChunkID(t *testing.T) {
	shared := candidate("shared", "shared text", 0.9, nil)
	search := &fakeSearch{batches: [][]domain.RetrievedCandidate{
		{candidate("a1", "t", 0.8, nil), shared},
		{candidate("b1", "t", 0.7, nil), shared},
		{candidate("c1", "t", 0.6, nil), candidate("c2", "t", 0.5, nil)},
	}}
	agg := newTestAggregator(search)

	plan := domain.QueryPlan{
		Original: "q",
		Queries:  []string{"q", "q variant one", "q variant two"},
	}
	merged, err := agg.Aggregate(context.Background(), plan, AggregateOptions{TopK: 6})
	if err != nil {
		t.Fatal(err)
	}

	if len(merged) != 5 {
		t.Fatalf("expected 5 unique candidates, got %d", len(merged))
	}
	seen := make(map[string]int)
	for _, c := range merged {
		seen[c.ChunkID]++
	}
	for id, count := range seen {
		if count > 1 {
			t.Errorf("chunk %s appears %d times", id, count)
		}
	}
}

func TestAggregateSynthesisTopsUp(t *testing.T) {
	search := &fakeSearch{batches: [][]domain.RetrievedCandidate{
		{candidate("a1", "t", 0.8, nil)},
		{candidate("s1", "t", 0.5, nil), candidate("s2", "t", 0.4, nil)},
	}}
	agg := newTestAggregator(search)

	plan := domain.QueryPlan{
		Original:  "q",
		Queries:   []string{"q"},
		Synthesis: "overview of q",
	}
	merged, err := agg.Aggregate(context.Background(), plan, AggregateOptions{TopK: 5})
	if err != nil {
		t.Fatal(err)
	}

	if len(merged) != 3 {
		t.Fatalf("expected synthesis results merged in, got %d candidates", len(merged))
	}
	if merged[0].ChunkID != "a1" {
		t.Error("fan-out results must come before synthesis results")
	}
}

func TestAggregateSynthesisSkippedWhenSatisfied(t *testing.T) {
	search := &fakeSearch{batches: [][]domain.RetrievedCandidate{
		{candidate("a1", "t", 0.9, nil), candidate("a2", "t", 0.8, nil)},
	}}
	agg := newTestAggregator(search)

	plan := domain.QueryPlan{
		Original:  "q",
		Queries:   []string{"q"},
		Synthesis: "overview of q",
	}
	merged, err := agg.Aggregate(context.Background(), plan, AggregateOptions{TopK: 2})
	if err != nil {
		t.Fatal(err)
	}

	if len(merged) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(merged))
	}
	if search.calls != 1 {
		t.Errorf("synthesis query should not run when topK is met, calls=%d", search.calls)
	}
}

func TestAggregateSearchFailureDegradesToEmpty(t *testing.T) {
	search := &fakeSearch{err: errors.New("search backend down")}
	agg := newTestAggregator(search)

	plan := domain.QueryPlan{Original: "q", Queries: []string{"q"}}
	merged, err := agg.Aggregate(context.Background(), plan, AggregateOptions{TopK: 3})
	if err != nil {
		t.Fatalf("collaborator failure must not abort aggregation: %v", err)
	}
	if len(merged) != 0 {
		t.Errorf("expected empty result, got %d", len(merged))
	}
}

func TestAggregateCancelled(t *testing.T) {
	search := &fakeSearch{}
	agg := newTestAggregator(search)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	plan := domain.QueryPlan{Original: "q", Queries: []string{"q"}}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := agg.Aggregate(ctx, plan, AggregateOptions{TopK: 3})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("aggregation did not observe cancellation")
	}
}

func TestFilterBySelectedDocuments(t *testing.T) {
	candidates := []domain.RetrievedCandidate{
		candidate("c1", "t", 0.9, map[string]string{"document_id": "study.pdf"}),
		candidate("c2", "t", 0.8, map[string]string{"source": "/var/tmp/tmp123abc.pdf"}),
		candidate("c3", "t", 0.7, map[string]string{"source": "/uploads/other-doc.pdf"}),
		candidate("c4", "t", 0.6, map[string]string{"document_id": "/data/in/report.pdf"}),
	}

	tests := []struct {
		name     string
		selected []string
		wantIDs  []string
	}{
		{"exact match", []string{"study.pdf"}, []string{"c1"}},
		{"substring tier tolerates temp paths", []string{"tmp123abc.pdf"}, []string{"c2"}},
		{"basename tier", []string{"/somewhere/else/report.pdf"}, []string{"c4"}},
		{"multiple selected ids", []string{"study.pdf", "tmp123abc.pdf"}, []string{"c1", "c2"}},
		{"no match filters all", []string{"missing.pdf"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := filterBySelectedDocuments(candidates, tt.selected)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("expected %d candidates, got %d", len(tt.wantIDs), len(got))
			}
			for i, want := range tt.wantIDs {
				if got[i].ChunkID != want {
					t.Errorf("candidate %d: expected %s, got %s", i, want, got[i].ChunkID)
				}
			}
		})
	}
}
