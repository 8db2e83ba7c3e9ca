//go:build ocr

package ocr

import (
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Recognizer wraps a Tesseract client.
// It should be closed when no longer needed.
type Recognizer struct {
	client *gosseract.Client
}

// NewRecognizer creates a Tesseract client for the given "+"-separated
// language list, e.g. "eng+fra".
func NewRecognizer(language string) (*Recognizer, error) {
	client := gosseract.NewClient()
	if language != "" {
		if err := client.SetLanguage(strings.Split(language, "+")...); err != nil {
			client.Close()
			return nil, fmt.Errorf("set language: %w", err)
		}
	}
	return &Recognizer{client: client}, nil
}

// Close releases Tesseract resources.
func (r *Recognizer) Close() error {
	if r != nil && r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Recognize returns the trimmed text found in PNG/TIFF/JPEG image data.
func (r *Recognizer) Recognize(image []byte) (string, error) {
	if err := r.client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := r.client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return strings.TrimSpace(text), nil
}
