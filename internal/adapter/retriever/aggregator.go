package retriever

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"

	"bookwise/internal/domain"
	"bookwise/internal/port"
	"bookwise/internal/retry"
)

// AggregateOptions scope one aggregation request.
type AggregateOptions struct {
	TopK                int
	ProjectID           string
	SelectedDocumentIDs []string
}

// Aggregator fans the planned queries out to the vector-search
// collaborator, merges and dedups the results, and applies the
// document allow-list filter. Individual query failures degrade to an
// empty contribution; only caller cancellation aborts the whole
// aggregation.
type Aggregator struct {
	embedder port.Embedder
	search   port.VectorSearch
	retry    retry.Policy
	logger   *slog.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(embedder port.Embedder, search port.VectorSearch, policy retry.Policy, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		embedder: embedder,
		search:   search,
		retry:    policy,
		logger:   logger.With("component", "aggregator"),
	}
}

// Aggregate searches every planned query concurrently and merges the
// results in query submission order, deduping by chunk ID with first
// occurrence winning, so output is reproducible for a fixed request.
// When the fan-out under-delivers, the synthesis query tops the set up.
func (a *Aggregator) Aggregate(ctx context.Context, plan domain.QueryPlan, opts AggregateOptions) ([]domain.RetrievedCandidate, error) {
	queries := plan.Queries
	if len(queries) == 0 {
		queries = []string{plan.Original}
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = 5
	}
	perQuery := topK / len(queries)
	if perQuery < 2 {
		perQuery = 2
	}

	perQueryResults := make([][]domain.RetrievedCandidate, len(queries))
	var wg sync.WaitGroup
	for i, query := range queries {
		wg.Add(1)
		go func(slot int, q string) {
			defer wg.Done()
			results, err := a.searchOne(ctx, q, perQuery, opts.ProjectID)
			if err != nil {
				a.logger.Warn("search degraded to empty for query", "query", q, "error", err)
				return
			}
			perQueryResults[slot] = results
		}(i, query)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var merged []domain.RetrievedCandidate
	for _, results := range perQueryResults {
		merged = mergeCandidates(merged, results, seen)
	}

	if len(merged) < topK && plan.Synthesis != "" {
		results, err := a.searchOne(ctx, plan.Synthesis, topK-len(merged), opts.ProjectID)
		if err != nil {
			a.logger.Warn("synthesis search degraded to empty", "error", err)
		} else {
			merged = mergeCandidates(merged, results, seen)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	if len(opts.SelectedDocumentIDs) > 0 {
		merged = filterBySelectedDocuments(merged, opts.SelectedDocumentIDs)
	}

	a.logger.Debug("aggregated candidates", "count", len(merged), "queries", len(queries))
	return merged, nil
}

// searchOne embeds a query and runs one vector search, each with its
// own retry budget.
func (a *Aggregator) searchOne(ctx context.Context, query string, matchCount int, projectID string) ([]domain.RetrievedCandidate, error) {
	var vector []float32
	err := a.retry.Do(ctx, "embed query", func(ctx context.Context) error {
		vectors, err := a.embedder.Embed(ctx, []string{query})
		if err != nil {
			return err
		}
		if len(vectors) == 0 {
			return fmt.Errorf("embedder returned no vectors")
		}
		vector = vectors[0]
		return nil
	})
	if err != nil {
		return nil, err
	}

	var results []domain.RetrievedCandidate
	err = a.retry.Do(ctx, "vector search", func(ctx context.Context) error {
		var searchErr error
		results, searchErr = a.search.Search(ctx, port.SearchRequest{
			Vector:    vector,
			TopK:      matchCount,
			ProjectID: projectID,
		})
		return searchErr
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

func mergeCandidates(merged, incoming []domain.RetrievedCandidate, seen map[string]struct{}) []domain.RetrievedCandidate {
	for _, candidate := range incoming {
		if _, dup := seen[candidate.ChunkID]; dup {
			continue
		}
		seen[candidate.ChunkID] = struct{}{}
		merged = append(merged, candidate)
	}
	return merged
}

// filterBySelectedDocuments keeps candidates matching any selected
// document ID under a three-tier fuzzy policy: exact equality,
// substring containment in either direction, then basename equality.
// Stored identifiers are often transient upload paths, so exact
// matching alone drops valid documents; the tier ordering and basename
// fallback bound the false-positive risk of plain substring matching.
func filterBySelectedDocuments(candidates []domain.RetrievedCandidate, selectedIDs []string) []domain.RetrievedCandidate {
	filtered := make([]domain.RetrievedCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		if matchesAnySelected(candidate, selectedIDs) {
			filtered = append(filtered, candidate)
		}
	}
	return filtered
}

func matchesAnySelected(candidate domain.RetrievedCandidate, selectedIDs []string) bool {
	docID := candidate.Metadata["document_id"]
	source := candidate.Metadata["source"]

	for _, selected := range selectedIDs {
		if selected == "" {
			continue
		}
		if selected == docID || selected == source {
			return true
		}
		if containsEitherWay(docID, selected) || containsEitherWay(source, selected) {
			return true
		}
		if baseEqual(docID, selected) || baseEqual(source, selected) {
			return true
		}
	}
	return false
}

func containsEitherWay(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func baseEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return path.Base(a) == path.Base(b)
}
