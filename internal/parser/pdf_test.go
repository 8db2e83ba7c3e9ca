package parser

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/ocrsplit/internal/pdftest"
)

func TestPDFParser_PerPageText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.pdf")
	pdftest.Write(t, path, []string{
		"Chapter One\nIt begins.",
		"",
		"More text here.",
	})

	p := &PDFParser{}
	doc, err := p.Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "book" {
		t.Errorf("expected title %q, got %q", "book", doc.Title)
	}
	if doc.Path != path {
		t.Errorf("expected path %q, got %q", path, doc.Path)
	}
	if doc.PageCount() != 3 {
		t.Fatalf("expected 3 pages, got %d", doc.PageCount())
	}
	if !strings.Contains(doc.Text(0), "Chapter One") {
		t.Errorf("expected page 0 to contain heading, got %q", doc.Text(0))
	}
	if strings.TrimSpace(doc.Text(1)) != "" {
		t.Errorf("expected blank page 1, got %q", doc.Text(1))
	}
	if !strings.Contains(doc.Text(2), "More text here.") {
		t.Errorf("expected page 2 text, got %q", doc.Text(2))
	}
	if fields := strings.Fields(doc.Text(0)); len(fields) == 0 || fields[0] != "Chapter" {
		t.Errorf("expected first token %q, got %v", "Chapter", fields)
	}
}

func TestPDFParser_NotAPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	if err := os.WriteFile(path, []byte("this is not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := &PDFParser{}
	if _, err := p.Parse(context.Background(), path); err == nil {
		t.Error("expected error for malformed PDF")
	}
}

type stubRecognizer struct {
	texts map[int]string
	err   error
	calls []int
}

func (s *stubRecognizer) RecognizePage(ctx context.Context, path string, page int) (string, error) {
	s.calls = append(s.calls, page)
	if s.err != nil {
		return "", s.err
	}
	return s.texts[page], nil
}

func TestPDFParser_RecognizesBlankPagesOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.pdf")
	pdftest.Write(t, path, []string{"Printed text", "", ""})

	rec := &stubRecognizer{texts: map[int]string{1: "Chapter 2 from OCR", 2: "body"}}
	p := &PDFParser{Recognizer: rec}
	doc, err := p.Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.calls) != 2 || rec.calls[0] != 1 || rec.calls[1] != 2 {
		t.Errorf("expected recognizer calls for pages [1 2], got %v", rec.calls)
	}
	if doc.Text(1) != "Chapter 2 from OCR" {
		t.Errorf("expected recognized text on page 1, got %q", doc.Text(1))
	}
}

func TestPDFParser_RecognizerErrorKeepsBlankPage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.pdf")
	pdftest.Write(t, path, []string{"", "text"})

	p := &PDFParser{Recognizer: &stubRecognizer{err: errors.New("tesseract missing")}}
	doc, err := p.Parse(context.Background(), path)
	if err != nil {
		t.Fatalf("recognizer failures should not fail extraction: %v", err)
	}
	if strings.TrimSpace(doc.Text(0)) != "" {
		t.Errorf("expected page 0 to stay blank, got %q", doc.Text(0))
	}
}

func TestSplitPages(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"trailing form feed", "one\ftwo\f", []string{"one", "two"}},
		{"no trailing form feed", "one\ftwo", []string{"one", "two"}},
		{"blank middle page", "one\f\fthree\f", []string{"one", "", "three"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitPages(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d pages, got %d (%q)", len(tt.want), len(got), got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("page %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestForFile(t *testing.T) {
	if p, err := ForFile("a.PDF"); err != nil {
		t.Errorf("unexpected error: %v", err)
	} else if _, ok := p.(*PDFParser); !ok {
		t.Errorf("expected *PDFParser, got %T", p)
	}
	if p, err := ForFile("a.docx"); err != nil {
		t.Errorf("unexpected error: %v", err)
	} else if _, ok := p.(*DOCXParser); !ok {
		t.Errorf("expected *DOCXParser, got %T", p)
	}
	if _, err := ForFile("a.txt"); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if !IsSupportedExtension("x.Docx") || IsSupportedExtension("x.md") {
		t.Error("unexpected IsSupportedExtension result")
	}
}
