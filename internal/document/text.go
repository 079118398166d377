package document

import (
	"fmt"
	"os"
	"strings"
)

// textPageLines is how many lines of a plain-text file make up one page when
// the file carries no form-feed page markers.
const textPageLines = 40

// TextReader loads plain-text files, splitting them into pages on form-feed
// characters or, failing that, on a fixed line count
type TextReader struct{}

// Load reads the file and paginates it
func (r *TextReader) Load(path string, maxPages int) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read text file %s: %w", path, err)
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")

	var rawPages []string
	if strings.Contains(content, "\f") {
		rawPages = strings.Split(content, "\f")
	} else {
		rawPages = splitByLines(content, textPageLines)
	}

	pages := make([]Page, 0, len(rawPages))
	for i, text := range rawPages {
		if maxPages > 0 && len(pages) >= maxPages {
			break
		}
		pages = append(pages, Page{Number: i + 1, Text: text})
	}

	return NewDocument(path, pages), nil
}

// splitByLines groups lines into fixed-size pages
func splitByLines(content string, perPage int) []string {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 {
		return nil
	}

	var pages []string
	for start := 0; start < len(lines); start += perPage {
		end := start + perPage
		if end > len(lines) {
			end = len(lines)
		}
		pages = append(pages, strings.Join(lines[start:end], "\n"))
	}
	return pages
}
