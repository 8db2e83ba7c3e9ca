// Package split writes one PDF per chapter group.
package split

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/ocrsplit/internal/document"
	"github.com/dgallion1/ocrsplit/internal/layout"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Splitter copies page ranges of a source PDF into chapter files.
type Splitter struct {
	Log *slog.Logger
}

func configuration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// Write creates dir/<base>_chapter_<n>.pdf for each group, n starting at 1,
// and returns the written paths in group order. Files written before a
// failure are left in place.
func (s *Splitter) Write(ctx context.Context, src string, groups []document.Group, dir, base string) ([]string, error) {
	if len(groups) == 0 {
		return nil, nil
	}
	log := s.Log
	if log == nil {
		log = slog.Default()
	}

	total, err := PageCount(src)
	if err != nil {
		return nil, err
	}
	if err := layout.Ensure(dir); err != nil {
		return nil, err
	}

	written := make([]string, 0, len(groups))
	for i, g := range groups {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if g.Start < 0 || g.End > total || g.Len() <= 0 {
			return written, fmt.Errorf("chapter %d: page range %s outside document of %d pages", i+1, g, total)
		}

		out := filepath.Join(dir, layout.ChapterFileName(base, i+1))
		if err := api.TrimFile(src, out, []string{g.Selection()}, configuration()); err != nil {
			return written, fmt.Errorf("write chapter %d: %w", i+1, err)
		}
		log.Debug("chapter written", "file", out, "pages", g.Selection())
		written = append(written, out)
	}
	return written, nil
}

// PageCount returns the number of pages in a PDF file.
func PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n, err := api.PageCount(f, configuration())
	if err != nil {
		return 0, fmt.Errorf("count pages of %s: %w", filepath.Base(path), err)
	}
	return n, nil
}
