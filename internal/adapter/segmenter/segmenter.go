// Package segmenter turns parsed pages into labeled structural runs.
// It concatenates page text into a single absolute coordinate space and
// partitions it on Part/Chapter/Section boundaries.
package segmenter

import (
	"log/slog"
	"regexp"
	"strings"

	"bookwise/internal/domain"
)

// pageSeparator keeps paragraphs from adjacent pages apart and is part
// of the recorded page spans, so offsets stay exact downstream.
const pageSeparator = "\n\n"

// minSectionLength filters short ALL-CAPS lines (acronyms, labels) out
// of the section heuristic. The heuristic still misfires on long
// uppercase lines that are not headings; that is a known limitation of
// the pattern approach, inherited deliberately.
const minSectionLength = 10

var (
	partPattern    = regexp.MustCompile(`^PART [IVXLC]+ .+$`)
	chapterPattern = regexp.MustCompile(`^CHAPTER \d+ .+$`)
	sectionPattern = regexp.MustCompile(`^[A-Z\s\d.,:;!?()\-—–]+$`)
)

// Concat joins page texts in order with a separator, recording each
// page's [start, end) span in the concatenated text.
func Concat(pages []domain.Page) (string, []domain.PageIndex) {
	var full strings.Builder
	indices := make([]domain.PageIndex, 0, len(pages))

	offset := 0
	for _, page := range pages {
		pageText := page.Text + pageSeparator
		indices = append(indices, domain.PageIndex{
			PageID:     page.ID,
			StartIndex: offset,
			EndIndex:   offset + len(pageText),
		})
		full.WriteString(pageText)
		offset += len(pageText)
	}

	return full.String(), indices
}

// Segmenter scans concatenated document text for structural headings.
type Segmenter struct {
	logger *slog.Logger
}

// New creates a Segmenter. A nil logger falls back to slog.Default.
func New(logger *slog.Logger) *Segmenter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Segmenter{logger: logger.With("component", "segmenter")}
}

// Segment partitions fullText into structural runs. Runs are
// contiguous, non-overlapping, and cover the text exactly once; a
// document with no headings yields a single run with empty labels.
func (s *Segmenter) Segment(fullText string) []domain.StructuralRun {
	if fullText == "" {
		return nil
	}

	var runs []domain.StructuralRun

	var part, chapter, section string
	runStart := 0
	hasBody := false

	offset := 0
	for _, line := range splitLinesKeepEnds(fullText) {
		stripped := strings.TrimSpace(line)
		lineStart := offset
		offset += len(line)

		switch {
		case partPattern.MatchString(stripped):
			runStart, hasBody = s.closeRun(&runs, fullText, runStart, lineStart, hasBody, part, chapter, section)
			part = stripped
			chapter = ""
			section = ""

		case chapterPattern.MatchString(stripped):
			runStart, hasBody = s.closeRun(&runs, fullText, runStart, lineStart, hasBody, part, chapter, section)
			chapter = stripped
			section = ""

		case isSectionHeading(stripped):
			runStart, hasBody = s.closeRun(&runs, fullText, runStart, lineStart, hasBody, part, chapter, section)
			section = stripped

		default:
			if stripped != "" {
				hasBody = true
			}
		}
	}

	// Flush the final open run. Emitted even when it holds only
	// heading lines so the runs cover the whole text.
	if runStart < len(fullText) {
		runs = append(runs, domain.StructuralRun{
			Part:       part,
			Chapter:    chapter,
			Section:    section,
			Text:       fullText[runStart:],
			StartIndex: runStart,
			EndIndex:   len(fullText),
		})
	}

	s.logger.Debug("segmented document", "runs", len(runs), "chars", len(fullText))
	return runs
}

// closeRun emits the open run ending at lineStart if it accumulated
// body text. A run holding nothing but heading lines is not emitted;
// its span is folded into the next run so coverage stays exact and a
// heading immediately followed by another heading labels the same run.
func (s *Segmenter) closeRun(runs *[]domain.StructuralRun, fullText string, runStart, lineStart int, hasBody bool, part, chapter, section string) (int, bool) {
	if !hasBody {
		return runStart, false
	}
	*runs = append(*runs, domain.StructuralRun{
		Part:       part,
		Chapter:    chapter,
		Section:    section,
		Text:       fullText[runStart:lineStart],
		StartIndex: runStart,
		EndIndex:   lineStart,
	})
	return lineStart, false
}

// isSectionHeading applies the ALL-CAPS-like heuristic: an uppercase
// line longer than the minimum length that is not itself a PART header.
func isSectionHeading(stripped string) bool {
	if len(stripped) <= minSectionLength {
		return false
	}
	if strings.HasPrefix(stripped, "PART ") {
		return false
	}
	return sectionPattern.MatchString(stripped)
}

// splitLinesKeepEnds splits text into lines retaining terminators, so
// summing line lengths reproduces absolute offsets.
func splitLinesKeepEnds(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}
