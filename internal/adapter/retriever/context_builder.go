package retriever

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"strings"

	"bookwise/internal/domain"
	"bookwise/internal/port"
)

// lowConfidenceScore is assigned to candidates whose stored embedding
// cannot be compared to the query (missing or mismatched dimensions).
// Persisted embeddings may be malformed from prior pipeline versions;
// that is a low-confidence signal, not an error.
const lowConfidenceScore = 0.1

// ContextBuilder orders candidates by similarity and greedily selects
// a prefix that fits the token budget, then formats the context string
// handed to the generative model.
type ContextBuilder struct {
	embedder  port.Embedder
	tokenizer port.Tokenizer
	logger    *slog.Logger
}

// NewContextBuilder creates a ContextBuilder. The embedder is only
// consulted to re-score candidates that arrived without a similarity.
func NewContextBuilder(embedder port.Embedder, tokenizer port.Tokenizer, logger *slog.Logger) *ContextBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContextBuilder{
		embedder:  embedder,
		tokenizer: tokenizer,
		logger:    logger.With("component", "context-builder"),
	}
}

// Build ranks candidates and assembles the final context under
// maxTokens. A non-empty candidate list always yields at least one
// chunk, even when the single best candidate alone exceeds the budget.
func (b *ContextBuilder) Build(ctx context.Context, query string, candidates []domain.RetrievedCandidate, maxTokens int) domain.AssembledContext {
	if len(candidates) == 0 {
		return domain.AssembledContext{}
	}

	ranked := b.ensureSimilarity(ctx, query, candidates)

	// Stable sort: ties keep retrieval order, which is already
	// similarity-biased per source query.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})

	var blocks []string
	used := 0
	accepted := 0
	for _, candidate := range ranked {
		text := strings.TrimSpace(candidate.RawText)
		if text == "" {
			continue
		}

		tokens := b.tokenizer.CountTokens(text)
		if accepted > 0 && used+tokens > maxTokens {
			break
		}

		blocks = append(blocks, formatBlock(candidate, text))
		used += tokens
		accepted++

		if used >= maxTokens {
			break
		}
	}

	b.logger.Debug("assembled context", "chunks_used", accepted, "tokens_used", used, "budget", maxTokens)
	return domain.AssembledContext{
		Text:       strings.Join(blocks, "\n\n"),
		ChunksUsed: accepted,
		TokensUsed: used,
	}
}

// ensureSimilarity fills in missing similarity scores by comparing the
// query embedding against each candidate's stored embedding. The query
// is embedded at most once, and only when some candidate needs it.
func (b *ContextBuilder) ensureSimilarity(ctx context.Context, query string, candidates []domain.RetrievedCandidate) []domain.RetrievedCandidate {
	ranked := make([]domain.RetrievedCandidate, len(candidates))
	copy(ranked, candidates)

	var queryVector []float32
	queryEmbedded := false

	for i := range ranked {
		if ranked[i].Similarity != 0 {
			continue
		}

		if !queryEmbedded {
			queryEmbedded = true
			if b.embedder != nil {
				vectors, err := b.embedder.Embed(ctx, []string{query})
				if err != nil || len(vectors) == 0 {
					b.logger.Warn("query embedding for re-scoring failed", "error", err)
				} else {
					queryVector = vectors[0]
				}
			}
		}

		ranked[i].Similarity = scoreAgainst(queryVector, ranked[i].Embedding)
	}

	return ranked
}

// scoreAgainst computes cosine similarity, coercing unusable vectors
// to a fixed low score instead of failing.
func scoreAgainst(query, stored []float32) float64 {
	if len(query) == 0 || len(stored) == 0 {
		return lowConfidenceScore
	}
	if len(query) != len(stored) {
		return lowConfidenceScore
	}
	return cosineSimilarity(query, stored)
}

// cosineSimilarity calculates the cosine similarity between two
// equal-length vectors. Zero vectors score zero.
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

// formatBlock prefixes a chunk with its attribution header.
func formatBlock(candidate domain.RetrievedCandidate, text string) string {
	source := candidate.Metadata["source"]
	if source == "" {
		source = candidate.Metadata["document_id"]
	}
	if source == "" {
		source = candidate.ChunkID
	}
	return "--- From: " + source + " ---\n" + text
}
