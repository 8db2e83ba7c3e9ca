package parser

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/dgallion1/ocrsplit/internal/document"
	pdflib "github.com/ledongthuc/pdf"
)

// PageRecognizer returns OCR text for a single page (0-based).
type PageRecognizer interface {
	RecognizePage(ctx context.Context, pdfPath string, page int) (string, error)
}

// PDFParser extracts plain text per page. It tries the Go library first,
// then falls back to pdftotext if enabled. Blank pages can optionally be
// recognized with OCR.
type PDFParser struct {
	FallbackPdftotext bool
	Recognizer        PageRecognizer
	Log               *slog.Logger
}

func (p *PDFParser) Parse(ctx context.Context, path string) (*document.Document, error) {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}

	texts, err := extractPDFPages(path)
	if err != nil && p.FallbackPdftotext {
		log.Warn("pdf library failed, trying pdftotext", "file", path, "error", err)
		texts, err = extractPdftotext(ctx, path)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	doc := document.FromTexts(titleOf(path), texts)
	doc.Path = path

	if p.Recognizer != nil {
		for _, page := range doc.Pages {
			if strings.TrimSpace(page.Text) != "" {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			text, err := p.Recognizer.RecognizePage(ctx, path, page.Index)
			if err != nil {
				log.Warn("page ocr failed", "file", path, "page", page.Index+1, "error", err)
				continue
			}
			page.Text = text
		}
	}

	return doc, nil
}

func extractPDFPages(path string) (texts []string, err error) {
	// ledongthuc/pdf panics on some malformed streams.
	defer func() {
		if r := recover(); r != nil {
			texts, err = nil, fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	numPages := reader.NumPage()
	texts = make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		texts = append(texts, text)
	}
	return texts, nil
}

func extractPdftotext(ctx context.Context, path string) ([]string, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "pdftotext", "-layout", path, "-")
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return splitPages(string(out)), nil
}

// splitPages splits pdftotext output on form feeds. pdftotext terminates
// every page, including the last, with a form feed.
func splitPages(text string) []string {
	if text == "" {
		return nil
	}
	pages := strings.Split(text, "\f")
	if len(pages) > 1 && pages[len(pages)-1] == "" {
		pages = pages[:len(pages)-1]
	}
	return pages
}
