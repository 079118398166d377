package document

import (
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"
)

// PDFReader extracts per-page text from PDF files
type PDFReader struct{}

// Load opens the PDF and extracts text page by page. A page whose text cannot
// be extracted is kept as an empty page so page numbering stays aligned with
// the source document.
func (r *PDFReader) Load(path string, maxPages int) (*Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer f.Close()

	total := reader.NumPage()
	if maxPages > 0 && maxPages < total {
		total = maxPages
	}

	pages := make([]Page, 0, total)
	for num := 1; num <= total; num++ {
		p := reader.Page(num)
		if p.V.IsNull() {
			pages = append(pages, Page{Number: num})
			continue
		}

		text, err := p.GetPlainText(nil)
		if err != nil {
			log.Warn().Err(err).Int("page", num).Str("path", path).
				Msg("Failed to extract page text, keeping empty page")
			pages = append(pages, Page{Number: num})
			continue
		}
		pages = append(pages, Page{Number: num, Text: text})
	}

	return NewDocument(path, pages), nil
}
