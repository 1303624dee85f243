// Package pdftext extracts the text of PDF statements, page by page.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// ErrUnreadable is returned when a document has no text layer the parsers can
// use, typically a scanned statement.
var ErrUnreadable = errors.New("no readable text in document, it may be a scan: try assisted extraction")

// ExtractText returns the text of each page of the PDF at path, one line per
// text row.
func ExtractText(path string) (pages []string, err error) {
	defer func() {
		// the library panics on some malformed documents.
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("cannot read PDF %q: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open PDF %q: %w", path, err)
	}
	defer f.Close()

	if r.NumPage() == 0 {
		return nil, fmt.Errorf("PDF %q has no pages", path)
	}

	pages = byRow(r)
	if Readable(pages) {
		return pages, nil
	}

	plain, err := r.GetPlainText()
	if err == nil {
		var b bytes.Buffer
		if _, err := b.ReadFrom(plain); err == nil && Readable([]string{b.String()}) {
			return []string{b.String()}, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", path, ErrUnreadable)
}

func byRow(r *pdf.Reader) []string {
	var pages []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		var lines []string
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, word := range row.Content {
				words = append(words, word.S)
			}
			if line := strings.TrimSpace(strings.Join(words, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages
}

// Readable reports whether pages hold enough printable text to be parsed.
// Custom font encodings without a unicode map come out as control or
// private use runes.
func Readable(pages []string) bool {
	total, readable := 0, 0
	for _, p := range pages {
		for _, r := range p {
			total++
			if unicode.IsPrint(r) && !unicode.Is(unicode.Co, r) || unicode.IsSpace(r) {
				readable++
			}
		}
	}
	if total < 20 {
		return false
	}
	return float64(readable)/float64(total) > 0.8
}
