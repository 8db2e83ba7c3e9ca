// Package convert writes extracted page text to an editable .docx.
package convert

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/ocrsplit/internal/document"
	"github.com/fumiama/go-docx"
)

// HeadingStyle is applied to the first block of every chapter-start page.
const HeadingStyle = "Heading1"

// DOCXWriter renders a document as one paragraph per text block with an
// explicit page break between pages.
type DOCXWriter struct{}

// Write renders doc to path. groups mark chapter starts; a nil slice writes
// no headings.
func (w *DOCXWriter) Write(doc *document.Document, groups []document.Group, path string) error {
	starts := make(map[int]bool, len(groups))
	for _, g := range groups {
		starts[g.Start] = true
	}

	out := docx.New().WithDefaultTheme()
	for i, page := range doc.Pages {
		if i > 0 {
			out.AddParagraph().AddPageBreaks()
		}
		for j, block := range Blocks(page.Text) {
			para := out.AddParagraph()
			run := para.AddText(block)
			if j == 0 && starts[page.Index] {
				para.Style(HeadingStyle)
				run.Bold()
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create docx dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create docx: %w", err)
	}
	if _, err := out.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("write docx: %w", err)
	}
	return f.Close()
}

// Blocks splits page text into paragraphs at blank lines. Lines inside a
// block keep their breaks; surrounding whitespace is trimmed and empty
// blocks are dropped.
func Blocks(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var blocks []string
	var cur []string
	flush := func() {
		if b := strings.TrimSpace(strings.Join(cur, "\n")); b != "" {
			blocks = append(blocks, b)
		}
		cur = nil
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur = append(cur, strings.TrimRight(line, " \t"))
	}
	flush()
	return blocks
}
