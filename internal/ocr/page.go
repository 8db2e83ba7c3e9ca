package ocr

import (
	"context"
	"errors"
	"fmt"
)

// ErrOCRNotEnabled is returned when page recognition is requested but the
// binary was built without the "ocr" tag.
var ErrOCRNotEnabled = errors.New("page OCR not enabled; rebuild with -tags ocr")

// PageRecognizer renders a single PDF page and recognizes its text.
type PageRecognizer struct {
	Renderer   *Renderer
	Recognizer interface {
		Recognize(image []byte) (string, error)
	}
}

// NewPageRecognizer wires a pdftoppm renderer to a Tesseract recognizer.
// The returned close function releases the recognizer.
func NewPageRecognizer(language string, dpi int) (*PageRecognizer, func() error, error) {
	rec, err := NewRecognizer(language)
	if err != nil {
		return nil, nil, err
	}
	pr := &PageRecognizer{
		Renderer:   &Renderer{DPI: dpi},
		Recognizer: rec,
	}
	return pr, rec.Close, nil
}

// RecognizePage returns the OCR text of page (0-based) in pdfPath.
func (p *PageRecognizer) RecognizePage(ctx context.Context, pdfPath string, page int) (string, error) {
	img, err := p.Renderer.RenderPage(ctx, pdfPath, page)
	if err != nil {
		return "", fmt.Errorf("render page %d: %w", page+1, err)
	}
	text, err := p.Recognizer.Recognize(img)
	if err != nil {
		return "", fmt.Errorf("recognize page %d: %w", page+1, err)
	}
	return text, nil
}
