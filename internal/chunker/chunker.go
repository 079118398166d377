// Package chunker splits per-page document text into bounded-size chunks
// suitable for one TTS request each. Splits happen at sentence boundaries
// where possible, falling back to word boundaries, then hard truncation when
// a single word exceeds the limit.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Chunk is one bounded unit of TTS work. Indices are 0-based and globally
// contiguous across the whole document; each chunk maps to a contiguous span
// of source pages.
type Chunk struct {
	Index     int    // Global chunk index, strictly increasing
	FirstPage int    // First source page (1-indexed)
	LastPage  int    // Last source page (1-indexed)
	Text      string // Chunk text, len(Text) <= maxSize except a single rune wider than the limit
	Truncated bool   // Set when a single oversized word forced a hard cut
}

// Page is the minimal page view the chunker needs
type Page struct {
	Number int
	Text   string
}

// sentenceEnd matches a sentence terminator followed by whitespace
var sentenceEnd = regexp.MustCompile(`[.!?]+\s+`)

// Split produces the ordered chunk list for a document. The transform is pure
// and deterministic: the same pages and maxSize always yield the same chunks.
// Chunks never span a page boundary so page attribution is preserved exactly.
func Split(pages []Page, maxSize int) ([]Chunk, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("max chunk size must be positive, got %d", maxSize)
	}

	var chunks []Chunk
	for _, page := range pages {
		for _, piece := range splitText(CleanText(page.Text), maxSize) {
			chunks = append(chunks, Chunk{
				Index:     len(chunks),
				FirstPage: page.Number,
				LastPage:  page.Number,
				Text:      piece.text,
				Truncated: piece.truncated,
			})
		}
	}
	return chunks, nil
}

type piece struct {
	text      string
	truncated bool
}

// splitText splits one page's text into pieces no longer than maxSize
func splitText(text string, maxSize int) []piece {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var pieces []piece
	var current strings.Builder

	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			pieces = append(pieces, piece{text: s})
		}
		current.Reset()
	}

	for _, sentence := range splitSentences(text) {
		if len(sentence) > maxSize {
			// Oversized sentence: flush what we have, then split the
			// sentence at word boundaries.
			flush()
			pieces = append(pieces, splitLongSentence(sentence, maxSize)...)
			continue
		}

		if current.Len() == 0 || current.Len()+len(sentence)+1 <= maxSize {
			current.WriteString(sentence)
			current.WriteByte(' ')
		} else {
			flush()
			current.WriteString(sentence)
			current.WriteByte(' ')
		}
	}
	flush()

	return pieces
}

// splitSentences splits text at sentence terminators, keeping the terminator
// with the sentence it ends
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	start := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		// loc[1] is past the trailing whitespace; the sentence ends at the
		// terminator.
		end := loc[0]
		for end < loc[1] && !isSpace(text[end]) {
			end++
		}
		if s := strings.TrimSpace(text[start:end]); s != "" {
			sentences = append(sentences, s)
		}
		start = loc[1]
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// splitLongSentence splits a sentence longer than maxSize at word boundaries.
// A single word longer than maxSize is hard-truncated and flagged rather than
// failing the run.
func splitLongSentence(sentence string, maxSize int) []piece {
	var pieces []piece

	words := strings.Fields(sentence)
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			pieces = append(pieces, piece{text: current.String()})
			current.Reset()
		}
	}

	for _, word := range words {
		if len(word) > maxSize {
			flush()
			// Indivisible unit over the limit: emit flagged cuts. Cuts land
			// on rune boundaries so no chunk carries a torn multi-byte
			// character.
			for start := 0; start < len(word); {
				end := start + maxSize
				if end >= len(word) {
					end = len(word)
				} else {
					for end > start && !utf8.RuneStart(word[end]) {
						end--
					}
					if end == start {
						// A single rune wider than the limit stays whole.
						_, size := utf8.DecodeRuneInString(word[start:])
						end = start + size
					}
				}
				pieces = append(pieces, piece{text: word[start:end], truncated: true})
				start = end
			}
			continue
		}

		if current.Len() == 0 {
			current.WriteString(word)
		} else if current.Len()+len(word)+1 <= maxSize {
			current.WriteByte(' ')
			current.WriteString(word)
		} else {
			flush()
			current.WriteString(word)
		}
	}
	flush()

	return pieces
}

// CleanText removes blank lines and per-line leading/trailing whitespace
func CleanText(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return strings.Join(cleaned, "\n")
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
