// Package store persists chunks and their embeddings in BoltDB and
// serves vector search over them. It is the local implementation of
// the chunk-persistence and vector-search collaborators; search is
// brute-force cosine over an in-memory cache, suitable for
// single-machine corpora.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"bookwise/internal/domain"
	"bookwise/internal/port"
)

var (
	bucketChunks    = []byte("chunks")
	bucketDocChunks = []byte("doc_chunks")
)

// BoltStore implements port.ChunkStore and port.VectorSearch.
type BoltStore struct {
	db *bbolt.DB

	mu      sync.RWMutex
	vectors map[string]vectorEntry
}

type vectorEntry struct {
	vector   []float32
	metadata map[string]string
}

type storedChunk struct {
	Chunk     domain.Chunk      `json:"chunk"`
	Embedding []float32         `json:"embedding,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Open opens (creating if needed) a store at path and loads the vector
// cache.
func Open(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketChunks, bucketDocChunks} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &BoltStore{db: db, vectors: make(map[string]vectorEntry)}
	if err := s.loadVectors(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}
	return s, nil
}

func (s *BoltStore) loadVectors() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketChunks).ForEach(func(k, v []byte) error {
			var stored storedChunk
			if err := json.Unmarshal(v, &stored); err != nil {
				return nil // skip corrupted entries
			}
			if len(stored.Embedding) == 0 {
				return nil
			}
			s.vectors[string(k)] = vectorEntry{
				vector:   stored.Embedding,
				metadata: stored.Metadata,
			}
			return nil
		})
	})
}

// UpsertChunks writes chunks keyed by their stable IDs. Re-ingesting a
// document writes the same keys, superseding the old records.
func (s *BoltStore) UpsertChunks(items []port.ChunkItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		chunks := tx.Bucket(bucketChunks)
		docChunks := tx.Bucket(bucketDocChunks)

		for _, item := range items {
			stored := storedChunk{
				Chunk:     item.Chunk,
				Embedding: item.Embedding,
				Metadata:  item.Metadata,
			}
			data, err := json.Marshal(stored)
			if err != nil {
				return err
			}
			if err := chunks.Put([]byte(item.Chunk.ID), data); err != nil {
				return err
			}

			if err := s.indexDocChunk(docChunks, item.Chunk.DocID, item.Chunk.ID); err != nil {
				return err
			}

			if len(item.Embedding) > 0 {
				s.vectors[item.Chunk.ID] = vectorEntry{
					vector:   item.Embedding,
					metadata: item.Metadata,
				}
			}
		}
		return nil
	})
}

func (s *BoltStore) indexDocChunk(bucket *bbolt.Bucket, docID, chunkID string) error {
	var ids []string
	if data := bucket.Get([]byte(docID)); data != nil {
		if err := json.Unmarshal(data, &ids); err != nil {
			ids = nil
		}
	}
	for _, existing := range ids {
		if existing == chunkID {
			return nil
		}
	}
	ids = append(ids, chunkID)
	data, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return bucket.Put([]byte(docID), data)
}

// GetChunk returns one stored chunk by ID.
func (s *BoltStore) GetChunk(id string) (port.ChunkItem, error) {
	var item port.ChunkItem
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketChunks).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("chunk not found: %s", id)
		}
		var stored storedChunk
		if err := json.Unmarshal(data, &stored); err != nil {
			return err
		}
		item = port.ChunkItem{
			Chunk:     stored.Chunk,
			Embedding: stored.Embedding,
			Metadata:  stored.Metadata,
		}
		return nil
	})
	return item, err
}

// DeleteDoc removes all chunks belonging to a document.
func (s *BoltStore) DeleteDoc(docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		chunks := tx.Bucket(bucketChunks)
		docChunks := tx.Bucket(bucketDocChunks)

		var ids []string
		if data := docChunks.Get([]byte(docID)); data != nil {
			if err := json.Unmarshal(data, &ids); err != nil {
				ids = nil
			}
		}
		for _, id := range ids {
			if err := chunks.Delete([]byte(id)); err != nil {
				return err
			}
			delete(s.vectors, id)
		}
		return docChunks.Delete([]byte(docID))
	})
}

// Stats reports store contents.
func (s *BoltStore) Stats() (domain.Stats, error) {
	var stats domain.Stats
	err := s.db.View(func(tx *bbolt.Tx) error {
		stats.TotalChunks = tx.Bucket(bucketChunks).Stats().KeyN
		stats.TotalDocs = tx.Bucket(bucketDocChunks).Stats().KeyN
		return nil
	})
	return stats, err
}

// Search finds the top-k stored chunks nearest to the query vector,
// optionally restricted to one project.
func (s *BoltStore) Search(ctx context.Context, req port.SearchRequest) ([]domain.RetrievedCandidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.vectors) == 0 {
		return nil, nil
	}

	type scored struct {
		id    string
		score float64
	}

	scores := make([]scored, 0, len(s.vectors))
	for id, entry := range s.vectors {
		if req.ProjectID != "" && entry.metadata["project_id"] != req.ProjectID {
			continue
		}
		if len(entry.vector) != len(req.Vector) {
			continue
		}
		scores = append(scores, scored{id: id, score: cosineSimilarity(req.Vector, entry.vector)})
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
		item, err := s.GetChunk(sc.id)
		if err != nil {
			continue
		}
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

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// cosineSimilarity calculates the cosine similarity between two
// equal-length vectors.
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
