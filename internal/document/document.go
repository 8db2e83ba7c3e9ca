package document

import (
	"fmt"
	"strings"
)

// Document is an ordered sequence of pages extracted from a file.
type Document struct {
	Title string  // Base name of the source file
	Path  string  // Source path
	Pages []*Page // Pages in document order, Index 0..n-1
}

// Page is a single page of extracted text.
type Page struct {
	Index int    // 0-based position in the document
	Text  string // Extracted text (may be empty)
}

// Group is a half-open page range [Start, End) belonging to one chapter.
type Group struct {
	Start int
	End   int
}

// FromTexts builds a Document from per-page text in document order.
func FromTexts(title string, texts []string) *Document {
	doc := &Document{Title: title, Pages: make([]*Page, 0, len(texts))}
	for i, t := range texts {
		doc.Pages = append(doc.Pages, &Page{Index: i, Text: t})
	}
	return doc
}

func (d *Document) PageCount() int {
	if d == nil {
		return 0
	}
	return len(d.Pages)
}

// Texts returns the text of every page in order.
func (d *Document) Texts() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		out[i] = p.Text
	}
	return out
}

// Text returns the text of page i, or "" when i is out of range.
func (d *Document) Text(i int) string {
	if d == nil || i < 0 || i >= len(d.Pages) {
		return ""
	}
	return d.Pages[i].Text
}

// TextBearing reports whether every page already carries non-blank text.
// An empty document is not text-bearing.
func (d *Document) TextBearing() bool {
	if d.PageCount() == 0 {
		return false
	}
	for _, p := range d.Pages {
		if strings.TrimSpace(p.Text) == "" {
			return false
		}
	}
	return true
}

// PlainText joins all pages with form feeds.
func (d *Document) PlainText() string {
	return strings.Join(d.Texts(), "\f")
}

func (g Group) Len() int {
	return g.End - g.Start
}

// Pages returns the 0-based page indices covered by the group.
func (g Group) Pages() []int {
	if g.End <= g.Start {
		return nil
	}
	out := make([]int, 0, g.Len())
	for i := g.Start; i < g.End; i++ {
		out = append(out, i)
	}
	return out
}

// Selection returns the 1-based inclusive page selection ("3-5" or "3")
// understood by PDF tooling.
func (g Group) Selection() string {
	first, last := g.Start+1, g.End
	if first == last {
		return fmt.Sprintf("%d", first)
	}
	return fmt.Sprintf("%d-%d", first, last)
}

func (g Group) String() string {
	return fmt.Sprintf("[%d,%d)", g.Start, g.End)
}
