package chunker

import (
	"fmt"
	"strings"
	"testing"

	"bookwise/internal/adapter/analyzer"
	"bookwise/internal/domain"
)

func newTestChunker(maxTokens, overlap int) *Bounded {
	return NewBounded(maxTokens, overlap, analyzer.NewTokenizer(), nil)
}

func makeRun(text string, start int) domain.StructuralRun {
	return domain.StructuralRun{
		Part:       "PART I TESTING",
		Chapter:    "CHAPTER 1 FIXTURES",
		Text:       text,
		StartIndex: start,
		EndIndex:   start + len(text),
	}
}

func TestChunkSmallParagraphs(t *testing.T) {
	c := newTestChunker(100, 0)

	text := "First paragraph with a few words.\n\nSecond paragraph, also short and sweet.\n"
	run := makeRun(text, 0)

	chunks := c.Chunk("doc1", run)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	for i, ch := range chunks {
		if ch.SubChunk != 0 {
			t.Errorf("chunk %d: whole paragraph must have SubChunk 0, got %d", i, ch.SubChunk)
		}
		if ch.Part != "PART I TESTING" || ch.Chapter != "CHAPTER 1 FIXTURES" {
			t.Errorf("chunk %d lost its structural labels", i)
		}
		if ch.ID == "" || ch.DocID != "doc1" {
			t.Errorf("chunk %d has bad identity: id=%q doc=%q", i, ch.ID, ch.DocID)
		}
		// The span must address the chunk's own text in the run.
		if text[ch.StartIndex:ch.EndIndex] != ch.Text {
			t.Errorf("chunk %d span does not address its text", i)
		}
	}
}

func TestChunkOffsetsWithNonzeroRunStart(t *testing.T) {
	c := newTestChunker(100, 0)

	text := "A paragraph inside a run that does not start at offset zero."
	run := makeRun(text, 500)

	chunks := c.Chunk("doc1", run)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].StartIndex != 500 {
		t.Errorf("expected absolute start 500, got %d", chunks[0].StartIndex)
	}
	if chunks[0].EndIndex != 500+len(text) {
		t.Errorf("expected absolute end %d, got %d", 500+len(text), chunks[0].EndIndex)
	}
}

func TestChunkRepeatedParagraphText(t *testing.T) {
	c := newTestChunker(100, 0)

	text := "same words here\n\nsame words here\n\nsame words here"
	run := makeRun(text, 0)

	chunks := c.Chunk("doc1", run)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].StartIndex <= chunks[i-1].StartIndex {
			t.Errorf("repeated paragraphs must advance: chunk %d start %d after %d",
				i, chunks[i].StartIndex, chunks[i-1].StartIndex)
		}
	}
}

func TestChunkSpansMonotonicNonOverlapping(t *testing.T) {
	c := newTestChunker(30, 5)

	var sentences []string
	for i := 0; i < 60; i++ {
		sentences = append(sentences, fmt.Sprintf("Sentence number %d has exactly seven words total.", i))
	}
	text := strings.Join(sentences, " ")
	run := makeRun(text, 0)

	chunks := c.Chunk("doc1", run)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, ch := range chunks {
		if ch.StartIndex >= ch.EndIndex {
			t.Errorf("chunk %d has invalid span [%d,%d)", i, ch.StartIndex, ch.EndIndex)
		}
		if i > 0 && ch.StartIndex < chunks[i-1].EndIndex {
			t.Errorf("chunk %d span overlaps previous: start %d < prev end %d",
				i, ch.StartIndex, chunks[i-1].EndIndex)
		}
	}
}

func TestChunkLongParagraphSubChunks(t *testing.T) {
	maxTokens := 300
	c := newTestChunker(maxTokens, 0)
	tok := analyzer.NewTokenizer()

	// Build a single paragraph of roughly 2000 tokens out of short
	// sentences.
	var b strings.Builder
	for tok.CountTokens(b.String()) < 2000 {
		b.WriteString("The quick brown fox jumps over the lazy dog near the river bank. ")
	}
	text := strings.TrimSpace(b.String())
	run := makeRun(text, 0)

	chunks := c.Chunk("doc1", run)
	if len(chunks) < 7 {
		t.Fatalf("expected at least 7 sub-chunks for a 2000-token paragraph at max 300, got %d", len(chunks))
	}

	for i, ch := range chunks {
		if got := tok.CountTokens(ch.Text); got > maxTokens {
			t.Errorf("chunk %d exceeds ceiling: %d > %d", i, got, maxTokens)
		}
		if ch.SubChunk != i+1 {
			t.Errorf("chunk %d: expected SubChunk %d, got %d", i, i+1, ch.SubChunk)
		}
	}
}

func TestChunkOversizedSentenceKeptWhole(t *testing.T) {
	c := newTestChunker(10, 0)

	// One sentence far over the ceiling, no sentence boundaries inside.
	long := strings.Repeat("word ", 50)
	text := strings.TrimSpace(long) + "."
	run := makeRun(text, 0)

	chunks := c.Chunk("doc1", run)
	if len(chunks) != 1 {
		t.Fatalf("oversized sentence must be emitted alone, got %d chunks", len(chunks))
	}
	if !strings.Contains(chunks[0].Text, "word word") {
		t.Error("oversized sentence text was lost")
	}
}

func TestChunkOverlapSeedsNextWindow(t *testing.T) {
	c := newTestChunker(30, 5)

	var sentences []string
	for i := 0; i < 20; i++ {
		sentences = append(sentences, fmt.Sprintf("This is test sentence number %d in the paragraph.", i))
	}
	text := strings.Join(sentences, " ")
	run := makeRun(text, 0)

	chunks := c.Chunk("doc1", run)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple windows, got %d", len(chunks))
	}

	// Each later chunk starts with trailing words of its predecessor's
	// canonical span.
	for i := 1; i < len(chunks); i++ {
		prevCanonical := text[chunks[i-1].StartIndex:chunks[i-1].EndIndex]
		words := strings.Fields(prevCanonical)
		if len(words) == 0 {
			continue
		}
		lastWord := words[len(words)-1]
		if !strings.Contains(chunks[i].Text, strings.TrimSuffix(lastWord, ".")) {
			t.Errorf("chunk %d does not carry overlap from its predecessor", i)
		}
		// Overlap must not extend the canonical span backwards.
		if chunks[i].StartIndex < chunks[i-1].EndIndex {
			t.Errorf("chunk %d canonical span includes overlap", i)
		}
	}
}

func TestChunkDeterministicIDs(t *testing.T) {
	c := newTestChunker(100, 0)

	text := "Stable paragraph one.\n\nStable paragraph two."
	run := makeRun(text, 0)

	first := c.Chunk("doc1", run)
	second := c.Chunk("doc1", run)
	if len(first) != len(second) {
		t.Fatalf("re-chunking changed chunk count: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("chunk %d ID not deterministic: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}

	other := c.Chunk("doc2", run)
	if other[0].ID == first[0].ID {
		t.Error("different documents must not share chunk IDs")
	}
}

func TestChunkEmptyRun(t *testing.T) {
	c := newTestChunker(100, 0)
	run := makeRun("   \n\n  ", 0)
	if chunks := c.Chunk("doc1", run); len(chunks) != 0 {
		t.Errorf("expected no chunks for blank run, got %d", len(chunks))
	}
}
