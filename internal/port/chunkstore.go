package port

import "bookwise/internal/domain"

// ChunkItem is a chunk together with its embedding and the metadata
// stored alongside it for search-time filtering.
type ChunkItem struct {
	Chunk     domain.Chunk
	Embedding []float32
	Metadata  map[string]string
}

// ChunkStore persists chunks keyed by their stable chunk ID.
// Re-running the pipeline on the same document produces the same IDs,
// so upserts supersede rather than duplicate.
type ChunkStore interface {
	UpsertChunks(items []ChunkItem) error

	GetChunk(id string) (ChunkItem, error)

	DeleteDoc(docID string) error

	Stats() (domain.Stats, error)

	Close() error
}
