// Package memstore is an in-memory chunk store and vector search,
// used by tests and by runs that do not want persistence.
package memstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"bookwise/internal/domain"
	"bookwise/internal/port"
)

// MemoryStore implements port.ChunkStore and port.VectorSearch.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]port.ChunkItem
}

func New() *MemoryStore {
	return &MemoryStore{items: make(map[string]port.ChunkItem)}
}

func (m *MemoryStore) UpsertChunks(items []port.ChunkItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range items {
		m.items[item.Chunk.ID] = item
	}
	return nil
}

func (m *MemoryStore) GetChunk(id string) (port.ChunkItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return port.ChunkItem{}, fmt.Errorf("chunk not found: %s", id)
	}
	return item, nil
}

func (m *MemoryStore) DeleteDoc(docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, item := range m.items {
		if item.Chunk.DocID == docID {
			delete(m.items, id)
		}
	}
	return nil
}

func (m *MemoryStore) Stats() (domain.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	docs := make(map[string]struct{})
	for _, item := range m.items {
		docs[item.Chunk.DocID] = struct{}{}
	}
	return domain.Stats{TotalDocs: len(docs), TotalChunks: len(m.items)}, nil
}

func (m *MemoryStore) Search(ctx context.Context, req port.SearchRequest) ([]domain.RetrievedCandidate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type scored struct {
		id    string
		score float64
	}

	scores := make([]scored, 0, len(m.items))
	for id, item := range m.items {
		if req.ProjectID != "" && item.Metadata["project_id"] != req.ProjectID {
			continue
		}
		if len(item.Embedding) != len(req.Vector) {
			continue
		}
		scores = append(scores, scored{id: id, score: cosineSimilarity(req.Vector, item.Embedding)})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].id < scores[j].id
	})

	k := req.TopK
	if k <= 0 || k > len(scores) {
		k = len(scores)
	}

	results := make([]domain.RetrievedCandidate, 0, k)
	for _, sc := range scores[:k] {
		item := m.items[sc.id]
		results = append(results, domain.RetrievedCandidate{
			ChunkID:    sc.id,
			RawText:    item.Chunk.Text,
			Similarity: sc.score,
			Embedding:  item.Embedding,
			Metadata:   item.Metadata,
		})
	}
	return results, nil
}

func (m *MemoryStore) Close() error {
	return nil
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
