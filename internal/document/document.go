package document

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Page is one page of extracted text. Numbers are 1-indexed.
type Page struct {
	Number int
	Text   string
}

// Document is an ordered, immutable sequence of pages loaded from a source file
type Document struct {
	id    string
	path  string
	pages []Page
}

// NewDocument creates a document from already-extracted pages
func NewDocument(path string, pages []Page) *Document {
	return &Document{
		id:    idFromPath(path),
		path:  path,
		pages: pages,
	}
}

// ID returns the stable identifier derived from the source file name.
// It doubles as the conversion identifier for resume state.
func (d *Document) ID() string {
	return d.id
}

// Path returns the source file path
func (d *Document) Path() string {
	return d.path
}

// Pages returns the ordered pages. Callers must not mutate the returned slice.
func (d *Document) Pages() []Page {
	return d.pages
}

// PageCount returns the number of loaded pages
func (d *Document) PageCount() int {
	return len(d.pages)
}

// idFromPath derives a filesystem-safe identifier from the file name stem
func idFromPath(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var b strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "document"
	}
	return b.String()
}

// Reader loads pages from a source file format
type Reader interface {
	// Load extracts up to maxPages pages (0 means all) from the file at path
	Load(path string, maxPages int) (*Document, error)
}

// Open loads a document, choosing the reader by file extension.
// An unsupported extension is a configuration-class error.
func Open(path string, maxPages int) (*Document, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return (&PDFReader{}).Load(path, maxPages)
	case ".epub":
		return (&EPUBReader{}).Load(path, maxPages)
	case ".txt", ".text", ".md":
		return (&TextReader{}).Load(path, maxPages)
	default:
		return nil, fmt.Errorf("unsupported document format %q", filepath.Ext(path))
	}
}
