//go:build !ocr

package ocr

// Recognizer is a stand-in used when the binary is built without Tesseract.
type Recognizer struct{}

// NewRecognizer returns ErrOCRNotEnabled. Rebuild with -tags ocr.
func NewRecognizer(language string) (*Recognizer, error) {
	return nil, ErrOCRNotEnabled
}

// Close is a no-op and safe on a nil Recognizer.
func (r *Recognizer) Close() error {
	return nil
}

func (r *Recognizer) Recognize(image []byte) (string, error) {
	return "", ErrOCRNotEnabled
}
