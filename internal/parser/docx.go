package parser

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/dgallion1/ocrsplit/internal/document"
	"github.com/fumiama/go-docx"
)

// DOCXParser reads a .docx back into pages. Explicit page breaks
// (<w:br w:type="page"/>) start a new page.
type DOCXParser struct{}

func (p *DOCXParser) Parse(ctx context.Context, path string) (*document.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat docx: %w", err)
	}

	doc, err := docx.Parse(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	var pages []string
	var current []string
	flushPage := func() {
		pages = append(pages, strings.Join(current, "\n\n"))
		current = nil
	}

	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		blocks := docxParagraphBlocks(para)
		for i, text := range blocks {
			if i > 0 {
				flushPage()
			}
			if text != "" {
				current = append(current, text)
			}
		}
	}
	if len(current) > 0 || len(pages) > 0 {
		flushPage()
	}

	out := document.FromTexts(titleOf(path), pages)
	out.Path = path
	return out, nil
}

// docxParagraphBlocks returns the paragraph's text split at page breaks.
// A paragraph without page breaks yields one block.
func docxParagraphBlocks(para *docx.Paragraph) []string {
	var blocks []string
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			switch v := rc.(type) {
			case *docx.Text:
				buf.WriteString(v.Text)
			case *docx.Tab:
				buf.WriteString("\t")
			case *docx.BarterRabbet:
				if v.Type == "page" {
					blocks = append(blocks, strings.TrimSpace(buf.String()))
					buf.Reset()
				} else {
					buf.WriteString("\n")
				}
			}
		}
	}
	return append(blocks, strings.TrimSpace(buf.String()))
}
