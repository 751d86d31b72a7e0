package retriever

import (
	"context"
	"sync"

	"bookwise/internal/domain"
	"bookwise/internal/port"
)

type fakeGenerator struct {
	response string
	err      error
	prompts  []string
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.response, g.err
}

func (g *fakeGenerator) ModelName() string { return "fake" }

type fakeEmbedder struct {
	dimension int
	err       error
}

func (e *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	dim := e.dimension
	if dim == 0 {
		dim = 4
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, dim)
		for j, r := range text {
			v[j%dim] += float32(r) / 1000
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (e *fakeEmbedder) Dimension() int    { return e.dimension }
func (e *fakeEmbedder) ModelName() string { return "fake-embed" }

// fakeSearch returns canned result batches in call order.
type fakeSearch struct {
	mu      sync.Mutex
	batches [][]domain.RetrievedCandidate
	calls   int
	err     error
}

func (s *fakeSearch) Search(ctx context.Context, req port.SearchRequest) ([]domain.RetrievedCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	call := s.calls
	s.calls++
	if call >= len(s.batches) {
		return nil, nil
	}
	return s.batches[call], nil
}

func candidate(chunkID, text string, similarity float64, meta map[string]string) domain.RetrievedCandidate {
	return domain.RetrievedCandidate{
		ChunkID:    chunkID,
		RawText:    text,
		Similarity: similarity,
		Metadata:   meta,
	}
}
