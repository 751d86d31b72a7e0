// Package docjson loads parsed-document JSON files produced by an
// upstream extraction step. The format is one document with its pages,
// page text, and per-page tables already lifted out of the layout.
package docjson

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"bookwise/internal/domain"
)

type fileDocument struct {
	Document fileDocumentInfo `json:"document"`
	Pages    []filePage       `json:"pages"`
}

type fileDocumentInfo struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	TotalPages int    `json:"total_pages"`
}

type filePage struct {
	PageID string      `json:"page_id"`
	Title  string      `json:"pdf_title"`
	Text   string      `json:"text"`
	Tables []fileTable `json:"tables"`
}

type fileTable struct {
	TableID string     `json:"table_id"`
	Data    [][]string `json:"data"`
}

// Load reads one parsed-document JSON file. A missing document ID
// falls back to the filename stem so every document stays addressable.
func Load(path string) (domain.ParsedDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.ParsedDocument{}, fmt.Errorf("failed to read document: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes parsed-document JSON. sourcePath is used for ID and
// filename fallbacks when the payload omits them.
func Parse(data []byte, sourcePath string) (domain.ParsedDocument, error) {
	var file fileDocument
	if err := json.Unmarshal(data, &file); err != nil {
		return domain.ParsedDocument{}, fmt.Errorf("failed to parse document %s: %w", sourcePath, err)
	}

	doc := domain.Document{
		ID:         file.Document.DocumentID,
		Filename:   file.Document.Filename,
		TotalPages: file.Document.TotalPages,
	}
	if doc.Filename == "" {
		doc.Filename = filepath.Base(sourcePath)
	}
	if doc.ID == "" {
		doc.ID = strings.TrimSuffix(filepath.Base(doc.Filename), filepath.Ext(doc.Filename))
	}
	if doc.TotalPages == 0 {
		doc.TotalPages = len(file.Pages)
	}

	pages := make([]domain.Page, 0, len(file.Pages))
	for _, p := range file.Pages {
		tables := make([]domain.Table, 0, len(p.Tables))
		for _, t := range p.Tables {
			tables = append(tables, domain.Table{ID: t.TableID, Rows: t.Data})
		}
		pages = append(pages, domain.Page{
			ID:     p.PageID,
			Text:   p.Text,
			Tables: tables,
		})
	}

	return domain.ParsedDocument{Document: doc, Pages: pages}, nil
}
