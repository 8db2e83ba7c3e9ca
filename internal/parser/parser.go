package parser

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dgallion1/ocrsplit/internal/document"
)

// Parser reads a file into per-page text.
type Parser interface {
	Parse(ctx context.Context, path string) (*document.Document, error)
}

// SupportedExtensions lists file extensions this service can read.
var SupportedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return &PDFParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

func titleOf(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
