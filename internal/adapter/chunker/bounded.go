// Package chunker splits structural runs into token-bounded chunks and
// binds page-level tables to the chunks whose spans overlap them.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"bookwise/internal/adapter/analyzer"
	"bookwise/internal/domain"
)

var (
	paragraphSplit = regexp.MustCompile(`\n\n+`)
	sentenceEnd    = regexp.MustCompile(`([.!?])\s+`)
)

// Bounded splits runs into paragraph- and sentence-respecting chunks
// under a token ceiling, with optional trailing-token overlap carried
// into the next sentence window as leading context.
type Bounded struct {
	maxTokens     int
	overlapTokens int
	tokenizer     *analyzer.Tokenizer
	logger        *slog.Logger
}

// NewBounded creates a Bounded chunker.
func NewBounded(maxTokens, overlapTokens int, tokenizer *analyzer.Tokenizer, logger *slog.Logger) *Bounded {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bounded{
		maxTokens:     maxTokens,
		overlapTokens: overlapTokens,
		tokenizer:     tokenizer,
		logger:        logger.With("component", "chunker"),
	}
}

// Chunk splits one structural run into chunks. Sub-chunks of an
// oversized paragraph are numbered from 1; a paragraph that fits the
// ceiling keeps SubChunk 0. Chunk spans within the run are
// non-overlapping and monotonically increasing.
func (c *Bounded) Chunk(docID string, run domain.StructuralRun) []domain.Chunk {
	var chunks []domain.Chunk

	// cursor advances monotonically through the run text so repeated
	// paragraph text resolves to the correct occurrence and lookup
	// stays amortized linear.
	cursor := 0

	for _, paragraph := range paragraphSplit.Split(run.Text, -1) {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		rel := strings.Index(run.Text[cursor:], paragraph)
		if rel < 0 {
			// Paragraph text was altered by trimming in a way that
			// broke the search; skip rather than emit a bogus span.
			c.logger.Warn("paragraph not found in run text", "doc_id", docID, "prefix", head(paragraph, 40))
			continue
		}
		paraStart := run.StartIndex + cursor + rel
		paraEnd := paraStart + len(paragraph)
		cursor = cursor + rel + len(paragraph)

		if c.tokenizer.CountTokens(paragraph) <= c.maxTokens {
			chunks = append(chunks, c.newChunk(docID, run, paragraph, 0, paraStart, paraEnd))
			continue
		}

		chunks = append(chunks, c.splitParagraph(docID, run, paragraph, paraStart)...)
	}

	return chunks
}

// splitParagraph breaks an oversized paragraph into sentence windows.
// Each window stays under the ceiling including any seeded overlap; a
// single sentence over the ceiling is emitted whole rather than split.
func (c *Bounded) splitParagraph(docID string, run domain.StructuralRun, paragraph string, paraStart int) []domain.Chunk {
	sentences := splitSentences(paragraph)

	var chunks []domain.Chunk
	subChunk := 1

	// Window size is tracked in words and converted with the same
	// ratio CountTokens uses, so the joined chunk text never measures
	// over the ceiling even though sentences are counted one at a time.
	var window []string
	windowWords := 0
	windowStart := -1
	windowEnd := -1
	overlap := ""
	overlapWords := 0

	// sentence offsets are located with the same monotonic-cursor
	// search used for paragraphs.
	cursor := 0

	flush := func() {
		if len(window) == 0 {
			return
		}
		canonical := strings.Join(window, " ")
		text := canonical
		if overlap != "" {
			text = overlap + " " + canonical
		}
		chunks = append(chunks, c.newChunk(docID, run, text, subChunk, windowStart, windowEnd))
		subChunk++

		// Seed the next window with the trailing tokens of this one.
		// Overlap is context only; spans never include it.
		overlap = c.tokenizer.Tail(canonical, c.overlapTokens)
		overlapWords = len(c.tokenizer.Tokenize(overlap))
		window = nil
		windowWords = 0
		windowStart = -1
	}

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		rel := strings.Index(paragraph[cursor:], sentence)
		if rel < 0 {
			continue
		}
		sentStart := paraStart + cursor + rel
		sentEnd := sentStart + len(sentence)
		cursor = cursor + rel + len(sentence)

		words := len(c.tokenizer.Tokenize(sentence))

		if c.tokenizer.CountTokens(sentence) > c.maxTokens && len(window) == 0 {
			// Accepted edge case: an indivisible oversized sentence is
			// kept whole instead of being dropped or split mid-word.
			c.logger.Warn("sentence exceeds token ceiling, emitting whole",
				"doc_id", docID, "max_tokens", c.maxTokens)
			window = []string{sentence}
			windowStart = sentStart
			windowEnd = sentEnd
			flush()
			continue
		}

		if len(window) > 0 && wordsToTokens(overlapWords+windowWords+words) > c.maxTokens {
			flush()
		}

		if len(window) == 0 {
			windowStart = sentStart
		}
		window = append(window, sentence)
		windowWords += words
		windowEnd = sentEnd
	}

	flush()
	return chunks
}

func (c *Bounded) newChunk(docID string, run domain.StructuralRun, text string, subChunk, start, end int) domain.Chunk {
	return domain.Chunk{
		ID:         chunkID(docID, start, end),
		DocID:      docID,
		Text:       text,
		Part:       run.Part,
		Chapter:    run.Chapter,
		Section:    run.Section,
		SubChunk:   subChunk,
		StartIndex: start,
		EndIndex:   end,
		SourceKind: domain.SourceText,
	}
}

// wordsToTokens mirrors the analyzer's word-to-token ratio.
func wordsToTokens(words int) int {
	return int(float64(words) * 1.3)
}

// splitSentences splits on ./!/? followed by whitespace, keeping the
// terminator with its sentence.
func splitSentences(text string) []string {
	marked := sentenceEnd.ReplaceAllString(text, "$1\x00")
	return strings.Split(marked, "\x00")
}

// chunkID derives a stable ID from the document and the chunk's
// structural position, so re-ingesting a document upserts the same
// keys.
func chunkID(docID string, start, end int) string {
	data := fmt.Sprintf("%s:%d-%d", docID, start, end)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}

func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
