// Package ocr turns image-only PDFs into text-searchable ones.
//
// The heavy lifting is delegated to external tools: ocrmypdf for whole
// documents, pdftoppm for page rendering and, when built with -tags ocr,
// Tesseract (via gosseract) for recognizing single pages.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Engine produces a text-searchable copy of the PDF at in, written to out.
type Engine interface {
	Name() string
	Run(ctx context.Context, in, out string) error
}

// ExecError reports a failed external command together with its output.
type ExecError struct {
	Command string
	Err     error
	Output  string
}

func (e *ExecError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Command, e.Err, truncate(out, 500))
}

func (e *ExecError) Unwrap() error { return e.Err }

// OCRmyPDF runs the ocrmypdf command line tool.
type OCRmyPDF struct {
	Binary   string // defaults to "ocrmypdf"
	Language string // Tesseract language(s), e.g. "eng" or "eng+fra"
	SkipText bool   // leave pages that already carry text untouched
	Deskew   bool
	Optimize int // 0-3
	Log      *slog.Logger
}

func (e *OCRmyPDF) Name() string { return "ocrmypdf" }

// Args returns the command-line arguments for one run.
func (e *OCRmyPDF) Args(in, out string) []string {
	var args []string
	if e.Language != "" {
		args = append(args, "--language", e.Language)
	}
	if e.SkipText {
		args = append(args, "--skip-text")
	}
	if e.Deskew {
		args = append(args, "--deskew")
	}
	args = append(args, "--optimize", strconv.Itoa(e.Optimize))
	return append(args, in, out)
}

func (e *OCRmyPDF) Run(ctx context.Context, in, out string) error {
	bin := e.Binary
	if bin == "" {
		bin = "ocrmypdf"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return fmt.Errorf("ocrmypdf not found: %w", err)
	}

	args := e.Args(in, out)
	if e.Log != nil {
		e.Log.Debug("running ocrmypdf", "args", args)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &ExecError{Command: "ocrmypdf", Err: err, Output: stderr.String()}
	}
	if _, err := os.Stat(out); err != nil {
		return fmt.Errorf("ocrmypdf did not create %s: %w", out, err)
	}
	return nil
}

// Passthrough copies the input unchanged. Used for sources that already
// carry a text layer and when OCR is disabled.
type Passthrough struct{}

func (Passthrough) Name() string { return "passthrough" }

func (Passthrough) Run(ctx context.Context, in, out string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return CopyFile(in, out)
}

// CopyFile copies src to dst, replacing dst.
func CopyFile(src, dst string) error {
	r, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer r.Close()

	w, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return w.Close()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
