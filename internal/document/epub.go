package document

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/rs/zerolog/log"
)

// EPUBReader extracts per-chapter text from EPUB archives. An EPUB is a zip
// container whose META-INF/container.xml names the package document; the
// package spine lists the content files in reading order. Each spine entry
// becomes one page.
type EPUBReader struct{}

type epubContainer struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type epubPackage struct {
	Items []struct {
		ID   string `xml:"id,attr"`
		Href string `xml:"href,attr"`
	} `xml:"manifest>item"`
	Refs []struct {
		IDRef string `xml:"idref,attr"`
	} `xml:"spine>itemref"`
}

// Load opens the archive and extracts the spine chapters as pages. A chapter
// that cannot be read is kept as an empty page so page numbering stays
// aligned with the book's reading order.
func (r *EPUBReader) Load(filePath string, maxPages int) (*Document, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open epub %s: %w", filePath, err)
	}
	defer zr.Close()

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var container epubContainer
	if err := readZipXML(files, "META-INF/container.xml", &container); err != nil {
		return nil, fmt.Errorf("invalid epub %s: %w", filePath, err)
	}
	if len(container.Rootfiles) == 0 {
		return nil, fmt.Errorf("invalid epub %s: no package document listed", filePath)
	}
	opfPath := container.Rootfiles[0].FullPath

	var pkg epubPackage
	if err := readZipXML(files, opfPath, &pkg); err != nil {
		return nil, fmt.Errorf("invalid epub %s: %w", filePath, err)
	}

	hrefByID := make(map[string]string, len(pkg.Items))
	for _, item := range pkg.Items {
		hrefByID[item.ID] = item.Href
	}

	base := path.Dir(opfPath)
	pages := make([]Page, 0, len(pkg.Refs))
	for _, ref := range pkg.Refs {
		if maxPages > 0 && len(pages) >= maxPages {
			break
		}
		num := len(pages) + 1

		href, ok := hrefByID[ref.IDRef]
		if !ok {
			log.Warn().Str("idref", ref.IDRef).Str("path", filePath).
				Msg("Spine entry missing from manifest, keeping empty page")
			pages = append(pages, Page{Number: num})
			continue
		}

		content, err := readZipFile(files, path.Join(base, href))
		if err != nil {
			log.Warn().Err(err).Str("href", href).Str("path", filePath).
				Msg("Failed to read chapter, keeping empty page")
			pages = append(pages, Page{Number: num})
			continue
		}
		pages = append(pages, Page{Number: num, Text: markupToText(content)})
	}

	return NewDocument(filePath, pages), nil
}

func readZipFile(files map[string]*zip.File, name string) ([]byte, error) {
	f, ok := files[name]
	if !ok {
		return nil, fmt.Errorf("no such entry %q", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func readZipXML(files map[string]*zip.File, name string, v interface{}) error {
	data, err := readZipFile(files, name)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("malformed %s: %w", name, err)
	}
	return nil
}

// markupToText extracts the readable text from an XHTML chapter. Script and
// style bodies are skipped; closing block-level tags become line breaks so
// paragraphs stay separated.
func markupToText(content []byte) string {
	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity

	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.CharData:
			b.Write(t)
		case xml.StartElement:
			if t.Name.Local == "script" || t.Name.Local == "style" {
				_ = dec.Skip()
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "p", "div", "br", "li", "title", "h1", "h2", "h3", "h4", "h5", "h6":
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}
