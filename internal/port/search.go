package port

import (
	"context"

	"bookwise/internal/domain"
)

// SearchRequest asks the vector-search collaborator for the TopK
// nearest candidates to Vector, optionally scoped to one project.
type SearchRequest struct {
	Vector    []float32
	TopK      int
	ProjectID string
}

// VectorSearch finds stored chunks by vector similarity. The pipeline
// does not reimplement nearest-neighbor search; results arrive ranked
// by the collaborator's own similarity metric.
type VectorSearch interface {
	Search(ctx context.Context, req SearchRequest) ([]domain.RetrievedCandidate, error)
}
