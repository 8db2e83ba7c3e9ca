package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// Renderer rasterizes single PDF pages to PNG using pdftoppm (poppler-utils).
type Renderer struct {
	Binary string // defaults to "pdftoppm"
	DPI    int
}

// RenderPage renders page (0-based) of pdfPath and returns PNG bytes.
func (r *Renderer) RenderPage(ctx context.Context, pdfPath string, page int) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "ocrsplit-page-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	if err := r.RenderPageTo(ctx, pdfPath, page, prefix); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("read rendered page: %w", err)
	}
	return data, nil
}

// RenderPageTo renders page (0-based) to "<prefix>.png".
func (r *Renderer) RenderPageTo(ctx context.Context, pdfPath string, page int, prefix string) error {
	bin := r.Binary
	if bin == "" {
		bin = "pdftoppm"
	}
	dpi := r.DPI
	if dpi <= 0 {
		dpi = 150
	}
	pageStr := strconv.Itoa(page + 1)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin,
		"-png",
		"-r", strconv.Itoa(dpi),
		"-f", pageStr,
		"-l", pageStr,
		"-singlefile",
		pdfPath,
		prefix,
	)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &ExecError{Command: "pdftoppm", Err: err, Output: stderr.String()}
	}
	if _, err := os.Stat(prefix + ".png"); err != nil {
		return fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}
	return nil
}
