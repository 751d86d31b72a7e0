package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
)

// MockEmbedder produces deterministic pseudo-embeddings from word
// hashes. Identical texts always embed identically and texts sharing
// words land near each other, which is enough for offline use and
// tests; it is not a semantic model.
type MockEmbedder struct {
	dimension int
}

// NewMockEmbedder creates a mock embedder with the given dimension
// (default 256).
func NewMockEmbedder(dimension int) *MockEmbedder {
	if dimension <= 0 {
		dimension = 256
	}
	return &MockEmbedder{dimension: dimension}
}

// Embed generates deterministic embeddings for the given texts.
func (e *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.embedOne(text)
	}
	return vectors, nil
}

func (e *MockEmbedder) embedOne(text string) []float32 {
	vector := make([]float32, e.dimension)

	for _, word := range strings.Fields(strings.ToLower(text)) {
		hash := sha256.Sum256([]byte(word))
		slot := int(binary.BigEndian.Uint32(hash[:4])) % e.dimension
		if slot < 0 {
			slot += e.dimension
		}
		sign := float32(1)
		if hash[4]%2 == 1 {
			sign = -1
		}
		vector[slot] += sign
	}

	// L2-normalize so cosine similarity behaves like the real thing.
	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vector {
			vector[i] *= scale
		}
	}

	return vector
}

// Dimension returns the embedding vector dimension.
func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

// ModelName returns the name of the embedding model.
func (e *MockEmbedder) ModelName() string {
	return "mock"
}
