// Package compare builds a page-by-page report of original, OCR and
// converted text.
package compare

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/ocrsplit/internal/document"
)

// Row is one page of the comparison.
type Row struct {
	Page      int // 1-based
	Original  string
	OCR       string
	Converted string

	OriginalChars  int
	OCRChars       int
	ConvertedChars int

	// Changed is set when the OCR text differs from the original after
	// whitespace is collapsed.
	Changed bool

	// Preview is the page image path relative to the report, if rendered.
	Preview string
}

// Report is the full comparison for one input.
type Report struct {
	Title string
	Rows  []Row
}

// Build lines up the three documents by page index. Missing pages in a
// shorter document compare as empty text. Any argument may be nil.
func Build(original, ocrd, converted *document.Document) Report {
	rep := Report{Title: titleOf(original, ocrd, converted)}

	n := max(original.PageCount(), ocrd.PageCount(), converted.PageCount())
	rep.Rows = make([]Row, 0, n)
	for i := 0; i < n; i++ {
		row := Row{
			Page:      i + 1,
			Original:  original.Text(i),
			OCR:       ocrd.Text(i),
			Converted: converted.Text(i),
		}
		row.OriginalChars = charCount(row.Original)
		row.OCRChars = charCount(row.OCR)
		row.ConvertedChars = charCount(row.Converted)
		row.Changed = normalize(row.Original) != normalize(row.OCR)
		rep.Rows = append(rep.Rows, row)
	}
	return rep
}

// ChangedPages returns the number of pages whose OCR text differs.
func (r Report) ChangedPages() int {
	n := 0
	for _, row := range r.Rows {
		if row.Changed {
			n++
		}
	}
	return n
}

// Totals returns the character counts summed over all pages.
func (r Report) Totals() (original, ocr, converted int) {
	for _, row := range r.Rows {
		original += row.OriginalChars
		ocr += row.OCRChars
		converted += row.ConvertedChars
	}
	return original, ocr, converted
}

// PageRenderer rasterizes one PDF page (0-based) to "<prefix>.png".
type PageRenderer interface {
	RenderPageTo(ctx context.Context, pdfPath string, page int, prefix string) error
}

// RenderPreviews renders each row's page of pdfPath into pagesDir and
// links it from the row, relative to reportDir. It stops at the first
// failure and returns the images written so far.
func (r *Report) RenderPreviews(ctx context.Context, renderer PageRenderer, pdfPath, pagesDir, reportDir string) ([]string, error) {
	var written []string
	for i := range r.Rows {
		row := &r.Rows[i]
		prefix := filepath.Join(pagesDir, fmt.Sprintf("page_%04d", row.Page))
		if err := renderer.RenderPageTo(ctx, pdfPath, row.Page-1, prefix); err != nil {
			return written, fmt.Errorf("render preview of page %d: %w", row.Page, err)
		}
		img := prefix + ".png"
		written = append(written, img)

		rel, err := filepath.Rel(reportDir, img)
		if err != nil {
			rel = img
		}
		row.Preview = filepath.ToSlash(rel)
	}
	return written, nil
}

func titleOf(docs ...*document.Document) string {
	for _, d := range docs {
		if d != nil && d.Title != "" {
			return d.Title
		}
	}
	return "document"
}

func charCount(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
