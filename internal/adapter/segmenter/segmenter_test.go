package segmenter

import (
	"strings"
	"testing"

	"bookwise/internal/domain"
)

func TestConcatTracksPageSpans(t *testing.T) {
	pages := []domain.Page{
		{ID: "p1", Text: "first page"},
		{ID: "p2", Text: "second page"},
	}

	full, indices := Concat(pages)

	if len(indices) != 2 {
		t.Fatalf("expected 2 page indices, got %d", len(indices))
	}
	if indices[0].StartIndex != 0 {
		t.Errorf("first page should start at 0, got %d", indices[0].StartIndex)
	}
	if indices[0].EndIndex != indices[1].StartIndex {
		t.Errorf("page spans must be contiguous: %d != %d", indices[0].EndIndex, indices[1].StartIndex)
	}
	if indices[1].EndIndex != len(full) {
		t.Errorf("last page should end at %d, got %d", len(full), indices[1].EndIndex)
	}
	for _, idx := range indices {
		span := full[idx.StartIndex:idx.EndIndex]
		if !strings.Contains(span, "page") {
			t.Errorf("page span %q does not contain page text", span)
		}
	}
}

func TestSegmentNoHeadingsSingleRun(t *testing.T) {
	seg := New(nil)

	text := "just some ordinary prose\nacross a few lines\nwith no headings at all\n"
	runs := seg.Segment(text)

	if len(runs) != 1 {
		t.Fatalf("expected exactly one run, got %d", len(runs))
	}
	run := runs[0]
	if run.Part != "" || run.Chapter != "" || run.Section != "" {
		t.Errorf("expected empty labels, got part=%q chapter=%q section=%q", run.Part, run.Chapter, run.Section)
	}
	if run.StartIndex != 0 || run.EndIndex != len(text) {
		t.Errorf("run should span whole text: [%d,%d) vs len %d", run.StartIndex, run.EndIndex, len(text))
	}
	if run.Text != text {
		t.Error("run text should equal the full input")
	}
}

func TestSegmentPartAndChapterScenario(t *testing.T) {
	seg := New(nil)

	text := "PART I INTRO\nCHAPTER 1 BEGINNINGS\nHello world. This is a test."
	runs := seg.Segment(text)

	if len(runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runs))
	}
	run := runs[0]
	if run.Part != "PART I INTRO" {
		t.Errorf("expected part %q, got %q", "PART I INTRO", run.Part)
	}
	if run.Chapter != "CHAPTER 1 BEGINNINGS" {
		t.Errorf("expected chapter %q, got %q", "CHAPTER 1 BEGINNINGS", run.Chapter)
	}
	if run.Section != "" {
		t.Errorf("expected empty section, got %q", run.Section)
	}
}

func TestSegmentCoversTextExactly(t *testing.T) {
	seg := New(nil)

	text := "intro text before any heading\n" +
		"PART I FOUNDATIONS\n" +
		"CHAPTER 1 THE START\n" +
		"Some chapter body text here.\n" +
		"RESEARCH METHODS OVERVIEW\n" +
		"Section body follows the heading.\n" +
		"CHAPTER 2 THE MIDDLE\n" +
		"More body text in chapter two.\n"

	runs := seg.Segment(text)

	if len(runs) < 3 {
		t.Fatalf("expected several runs, got %d", len(runs))
	}

	// Runs must be contiguous, non-overlapping, and reconstruct the
	// input exactly.
	var rebuilt strings.Builder
	prevEnd := 0
	for i, run := range runs {
		if run.StartIndex != prevEnd {
			t.Errorf("run %d starts at %d, expected %d", i, run.StartIndex, prevEnd)
		}
		if run.EndIndex <= run.StartIndex {
			t.Errorf("run %d has invalid span [%d,%d)", i, run.StartIndex, run.EndIndex)
		}
		if run.Text != text[run.StartIndex:run.EndIndex] {
			t.Errorf("run %d text does not match its span", i)
		}
		rebuilt.WriteString(run.Text)
		prevEnd = run.EndIndex
	}
	if rebuilt.String() != text {
		t.Error("concatenated runs do not reconstruct the input")
	}
	if prevEnd != len(text) {
		t.Errorf("runs end at %d, expected %d", prevEnd, len(text))
	}
}

func TestSegmentLabelTransitions(t *testing.T) {
	seg := New(nil)

	text := "PART I OPENING\n" +
		"body in part one\n" +
		"RESEARCH DESIGN BASICS\n" +
		"body in the section\n" +
		"CHAPTER 3 SAMPLING\n" +
		"body in chapter three\n" +
		"PART II CLOSING\n" +
		"body in part two\n"

	runs := seg.Segment(text)
	if len(runs) != 4 {
		t.Fatalf("expected 4 runs, got %d", len(runs))
	}

	// Section set, part carried.
	if runs[1].Part != "PART I OPENING" || runs[1].Section != "RESEARCH DESIGN BASICS" {
		t.Errorf("run 1 labels wrong: %+v", runs[1])
	}
	// Chapter reset clears section, keeps part.
	if runs[2].Chapter != "CHAPTER 3 SAMPLING" || runs[2].Section != "" || runs[2].Part != "PART I OPENING" {
		t.Errorf("run 2 labels wrong: %+v", runs[2])
	}
	// Part reset clears chapter and section.
	if runs[3].Part != "PART II CLOSING" || runs[3].Chapter != "" || runs[3].Section != "" {
		t.Errorf("run 3 labels wrong: %+v", runs[3])
	}
}

func TestSectionHeuristicIgnoresShortAcronyms(t *testing.T) {
	seg := New(nil)

	text := "some body text first\nNASA\nmore body text after the acronym\n"
	runs := seg.Segment(text)

	if len(runs) != 1 {
		t.Fatalf("short uppercase line must not open a section, got %d runs", len(runs))
	}
	if runs[0].Section != "" {
		t.Errorf("expected no section, got %q", runs[0].Section)
	}
}

func TestSegmentEmptyInput(t *testing.T) {
	seg := New(nil)
	if runs := seg.Segment(""); runs != nil {
		t.Errorf("expected nil for empty input, got %v", runs)
	}
}
