// Package usecase wires the pipeline stages into the operations the
// CLI exposes.
package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"bookwise/internal/adapter/chunker"
	"bookwise/internal/adapter/segmenter"
	"bookwise/internal/domain"
	"bookwise/internal/port"
	"bookwise/internal/retry"
)

const defaultEmbedBatchSize = 100

// Ingestor turns parsed documents into embedded chunks in the store.
type Ingestor struct {
	segmenter *segmenter.Segmenter
	chunker   *chunker.Bounded
	embedder  port.Embedder
	store     port.ChunkStore
	retry     retry.Policy
	batchSize int
	logger    *slog.Logger
}

func NewIngestor(
	seg *segmenter.Segmenter,
	ch *chunker.Bounded,
	embedder port.Embedder,
	store port.ChunkStore,
	policy retry.Policy,
	batchSize int,
	logger *slog.Logger,
) *Ingestor {
	if batchSize <= 0 {
		batchSize = defaultEmbedBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{
		segmenter: seg,
		chunker:   ch,
		embedder:  embedder,
		store:     store,
		retry:     policy,
		batchSize: batchSize,
		logger:    logger.With("component", "ingestor"),
	}
}

// IngestDocument runs the whole pipeline for one document: join the
// page texts, find structural runs, chunk each run, bind tables and
// page spans, embed, and upsert. Chunk IDs are derived from document
// and span, so re-ingesting the same document supersedes its previous
// chunks instead of duplicating them. progress, if non-nil, is called
// after each embedding batch.
func (i *Ingestor) IngestDocument(ctx context.Context, doc domain.ParsedDocument, projectID string, progress func(done, total int)) (int, error) {
	fullText, indices := segmenter.Concat(doc.Pages)
	if fullText == "" {
		i.logger.Warn("document has no text", "doc_id", doc.Document.ID)
		return 0, nil
	}

	runs := i.segmenter.Segment(fullText)

	var chunks []domain.Chunk
	for _, run := range runs {
		chunks = append(chunks, i.chunker.Chunk(doc.Document.ID, run)...)
	}

	chunker.BindTables(doc.Pages, indices, chunks)
	chunker.AttachPageIDs(chunks, indices)

	i.logger.Info("document chunked",
		"doc_id", doc.Document.ID,
		"runs", len(runs),
		"chunks", len(chunks))

	items := make([]port.ChunkItem, 0, len(chunks))
	for start := 0; start < len(chunks); start += i.batchSize {
		end := start + i.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Text
		}

		var vectors [][]float32
		err := i.retry.Do(ctx, "embed chunks", func(ctx context.Context) error {
			var embedErr error
			vectors, embedErr = i.embedder.Embed(ctx, texts)
			return embedErr
		})
		if err != nil {
			return 0, fmt.Errorf("failed to embed chunks %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(batch) {
			return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
		}

		for j, c := range batch {
			items = append(items, port.ChunkItem{
				Chunk:     c,
				Embedding: vectors[j],
				Metadata:  chunkMetadata(doc, c, projectID),
			})
		}
		if progress != nil {
			progress(end, len(chunks))
		}
	}

	if err := i.store.UpsertChunks(items); err != nil {
		return 0, fmt.Errorf("failed to store chunks: %w", err)
	}

	i.logger.Info("document ingested", "doc_id", doc.Document.ID, "chunks", len(items))
	return len(items), nil
}

func chunkMetadata(doc domain.ParsedDocument, c domain.Chunk, projectID string) map[string]string {
	md := map[string]string{
		"document_id": doc.Document.ID,
		"source":      doc.Document.Filename,
	}
	if projectID != "" {
		md["project_id"] = projectID
	}
	if c.Part != "" {
		md["part"] = c.Part
	}
	if c.Chapter != "" {
		md["chapter"] = c.Chapter
	}
	if c.Section != "" {
		md["section"] = c.Section
	}
	return md
}
