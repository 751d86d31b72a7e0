package chunker

import (
	"strings"

	"bookwise/internal/domain"
)

// RenderTable formats a table as text: a "Table {id}:" header followed
// by pipe-joined rows.
func RenderTable(t domain.Table) string {
	var b strings.Builder
	b.WriteString("Table ")
	b.WriteString(t.ID)
	b.WriteString(":\n")
	for _, row := range t.Rows {
		b.WriteString(strings.Join(row, " | "))
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

// BindTables appends each page's rendered tables to every chunk whose
// span overlaps that page's span. A table can straddle a chunk boundary
// or sit on a page split across chunks, so appending to every
// overlapping chunk keeps it visible wherever it may be relevant; the
// duplication across chunks is intentional. The per-chunk TableIDs set
// makes binding idempotent.
func BindTables(pages []domain.Page, indices []domain.PageIndex, chunks []domain.Chunk) {
	spans := make(map[string]domain.PageIndex, len(indices))
	for _, idx := range indices {
		spans[idx.PageID] = idx
	}

	for _, page := range pages {
		if len(page.Tables) == 0 {
			continue
		}
		idx, ok := spans[page.ID]
		if !ok {
			continue
		}

		for _, table := range page.Tables {
			rendered := RenderTable(table)
			for i := range chunks {
				if !overlaps(chunks[i].StartIndex, chunks[i].EndIndex, idx.StartIndex, idx.EndIndex) {
					continue
				}
				if hasTable(chunks[i].TableIDs, table.ID) {
					continue
				}
				chunks[i].Text += "\n" + rendered
				chunks[i].TableIDs = append(chunks[i].TableIDs, table.ID)
			}
		}
	}
}

// AttachPageIDs records, on each chunk, the pages its span overlaps.
func AttachPageIDs(chunks []domain.Chunk, indices []domain.PageIndex) {
	for i := range chunks {
		for _, idx := range indices {
			if overlaps(chunks[i].StartIndex, chunks[i].EndIndex, idx.StartIndex, idx.EndIndex) {
				chunks[i].PageIDs = append(chunks[i].PageIDs, idx.PageID)
			}
		}
	}
}

// overlaps is the half-open interval overlap test.
func overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && aEnd > bStart
}

func hasTable(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
