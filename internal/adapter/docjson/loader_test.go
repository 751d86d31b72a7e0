package docjson

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleDoc = `{
  "document": {
    "document_id": "abc123",
    "filename": "handbook.pdf",
    "total_pages": 2
  },
  "pages": [
    {
      "page_id": "p1",
      "pdf_title": "Handbook",
      "text": "Page one text.",
      "tables": [
        {"table_id": "t1", "data": [["h1", "h2"], ["a", "b"]]}
      ]
    },
    {
      "page_id": "p2",
      "pdf_title": "Handbook",
      "text": "Page two text.",
      "tables": []
    }
  ]
}`

func TestParse(t *testing.T) {
	doc, err := Parse([]byte(sampleDoc), "handbook.json")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if doc.Document.ID != "abc123" {
		t.Errorf("ID = %q", doc.Document.ID)
	}
	if doc.Document.Filename != "handbook.pdf" {
		t.Errorf("Filename = %q", doc.Document.Filename)
	}
	if doc.Document.TotalPages != 2 {
		t.Errorf("TotalPages = %d", doc.Document.TotalPages)
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("got %d pages", len(doc.Pages))
	}
	if doc.Pages[0].ID != "p1" || doc.Pages[0].Text != "Page one text." {
		t.Errorf("page[0] = %+v", doc.Pages[0])
	}
	if len(doc.Pages[0].Tables) != 1 {
		t.Fatalf("got %d tables", len(doc.Pages[0].Tables))
	}
	tbl := doc.Pages[0].Tables[0]
	if tbl.ID != "t1" || len(tbl.Rows) != 2 || tbl.Rows[1][1] != "b" {
		t.Errorf("table = %+v", tbl)
	}
}

func TestParseFallsBackToFilename(t *testing.T) {
	doc, err := Parse([]byte(`{"pages": [{"page_id": "p1", "text": "hi"}]}`), "/data/docs/report.json")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if doc.Document.Filename != "report.json" {
		t.Errorf("Filename = %q, want report.json", doc.Document.Filename)
	}
	if doc.Document.ID != "report" {
		t.Errorf("ID = %q, want report", doc.Document.ID)
	}
	if doc.Document.TotalPages != 1 {
		t.Errorf("TotalPages = %d, want 1", doc.Document.TotalPages)
	}
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	if _, err := Parse([]byte("{not json"), "bad.json"); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handbook.json")
	if err := os.WriteFile(path, []byte(sampleDoc), 0644); err != nil {
		t.Fatal(err)
	}

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.Document.ID != "abc123" {
		t.Errorf("ID = %q", doc.Document.ID)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
