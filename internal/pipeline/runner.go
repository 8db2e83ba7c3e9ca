package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dgallion1/ocrsplit/internal/chapters"
	"github.com/dgallion1/ocrsplit/internal/compare"
	"github.com/dgallion1/ocrsplit/internal/config"
	"github.com/dgallion1/ocrsplit/internal/convert"
	"github.com/dgallion1/ocrsplit/internal/document"
	"github.com/dgallion1/ocrsplit/internal/layout"
	"github.com/dgallion1/ocrsplit/internal/ocr"
	"github.com/dgallion1/ocrsplit/internal/parser"
	"github.com/dgallion1/ocrsplit/internal/split"
	"github.com/dgallion1/ocrsplit/internal/stats"
)

// Options are the per-run policy switches.
type Options struct {
	KeepPreamble        bool
	Compare             bool
	RenderPages         bool
	PassthroughTextPDFs bool
}

// OptionsFrom reads run options from configuration.
func OptionsFrom(cfg config.Config) Options {
	return Options{
		KeepPreamble:        cfg.Chapters.KeepPreamble,
		Compare:             cfg.Compare.Enabled,
		RenderPages:         cfg.Compare.RenderPages,
		PassthroughTextPDFs: cfg.OCR.PassthroughTextPDFs,
	}
}

// Session is one request to process a list of files.
type Session struct {
	Inputs    []string
	OutputDir string
	Options   Options

	// Progress, when set, is called after every stage.
	Progress func(input string, r StageResult)
}

// ChapterWriter writes one PDF per page group.
type ChapterWriter interface {
	Write(ctx context.Context, src string, groups []document.Group, dir, base string) ([]string, error)
}

// DocumentWriter writes the editable text document.
type DocumentWriter interface {
	Write(doc *document.Document, groups []document.Group, path string) error
}

// Runner executes the stages for each file of a session.
type Runner struct {
	Engine    ocr.Engine
	Extractor parser.Parser
	Reader    parser.Parser // reads the converted document back for comparison
	Chapters  ChapterWriter
	Writer    DocumentWriter
	Renderer  compare.PageRenderer // optional, for page previews
	Stats     *stats.StageStats    // optional
	Log       *slog.Logger
}

// NewRunner wires the production stages from configuration. The returned
// close function releases the page recognizer, if one was created.
func NewRunner(cfg config.Config, log *slog.Logger) (*Runner, func() error) {
	closer := func() error { return nil }

	var engine ocr.Engine = ocr.Passthrough{}
	if cfg.OCR.Engine == "ocrmypdf" {
		engine = &ocr.OCRmyPDF{
			Binary:   cfg.OCR.Binary,
			Language: cfg.OCR.Language,
			SkipText: cfg.OCR.SkipText,
			Deskew:   cfg.OCR.Deskew,
			Optimize: cfg.OCR.Optimize,
			Log:      log,
		}
	}

	extractor := &parser.PDFParser{FallbackPdftotext: cfg.PDF.FallbackPdftotext, Log: log}
	if cfg.OCR.TextFallback {
		rec, closeRec, err := ocr.NewPageRecognizer(cfg.OCR.Language, cfg.OCR.RenderDPI)
		switch {
		case errors.Is(err, ocr.ErrOCRNotEnabled):
			log.Warn("ocr.text_fallback is set but page OCR is not compiled in", "error", err)
		case err != nil:
			log.Warn("page recognizer unavailable", "error", err)
		default:
			extractor.Recognizer = rec
			closer = closeRec
		}
	}

	return &Runner{
		Engine:    engine,
		Extractor: extractor,
		Reader:    &parser.DOCXParser{},
		Chapters:  &split.Splitter{Log: log},
		Writer:    &convert.DOCXWriter{},
		Renderer:  &ocr.Renderer{DPI: cfg.OCR.RenderDPI},
		Stats:     stats.New(time.Hour),
		Log:       log,
	}, closer
}

// Run processes the session's inputs one at a time, in order. It stops
// early only when ctx is canceled.
func (r *Runner) Run(ctx context.Context, s Session) []FileResult {
	results := make([]FileResult, 0, len(s.Inputs))
	claimed := make(map[string]string, len(s.Inputs))
	for _, input := range s.Inputs {
		if ctx.Err() != nil {
			r.logger().Warn("run canceled", "remaining", len(s.Inputs)-len(results))
			break
		}
		key := strings.ToLower(layout.BaseName(input))
		if owner, ok := claimed[key]; ok {
			results = append(results, r.rejectShared(s, input, owner))
			continue
		}
		claimed[key] = input
		results = append(results, r.processFile(ctx, s, input))
	}
	return results
}

// rejectShared fails input without touching disk because an earlier input
// of the session already owns its output directory.
func (r *Runner) rejectShared(s Session, input, owner string) FileResult {
	l := layout.New(s.OutputDir, input)
	result := &FileResult{
		Input:     input,
		OutputDir: l.Dir(),
		Chapters:  []string{},
		StartedAt: time.Now().UTC(),
	}
	f := &fileRun{r: r, s: s, l: l, log: r.logger().With("file", input), result: result}
	msg := fmt.Sprintf("output directory %s already used by %s", l.Dir(), owner)
	f.log.Error("file rejected", "error", msg)
	f.add(StageResult{Stage: StageOCR, Message: msg})
	result.finish()
	result.Duration = "0s"
	return *result
}

func (r *Runner) logger() *slog.Logger {
	if r.Log == nil {
		return slog.Default()
	}
	return r.Log
}

// fileRun carries the state of one file through the stages.
type fileRun struct {
	r      *Runner
	s      Session
	l      *layout.Layout
	log    *slog.Logger
	result *FileResult
}

func (f *fileRun) record(stage string, start time.Time, err error, msg string, outputs ...string) StageResult {
	sr := StageResult{
		Stage:      stage,
		OK:         err == nil,
		Message:    msg,
		Outputs:    outputs,
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err != nil {
		f.log.Error("stage failed", "stage", stage, "error", err)
	} else {
		f.log.Info("stage done", "stage", stage, "message", msg, "ms", sr.DurationMs)
	}
	if f.r.Stats != nil {
		f.r.Stats.Record(stage, time.Since(start), err == nil)
	}
	f.add(sr)
	return sr
}

func (f *fileRun) skip(stage, msg string) {
	f.log.Info("stage skipped", "stage", stage, "reason", msg)
	f.add(StageResult{Stage: stage, Skipped: true, Message: msg})
}

func (f *fileRun) add(sr StageResult) {
	f.result.Stages = append(f.result.Stages, sr)
	if f.s.Progress != nil {
		f.s.Progress(f.result.Input, sr)
	}
}

func (r *Runner) processFile(ctx context.Context, s Session, input string) FileResult {
	l := layout.New(s.OutputDir, input)
	result := &FileResult{
		Input:     input,
		OutputDir: l.Dir(),
		Chapters:  []string{},
		StartedAt: time.Now().UTC(),
	}
	f := &fileRun{r: r, s: s, l: l, log: r.logger().With("file", input), result: result}
	f.log.Info("processing file")

	if sum, err := fileDigest(input); err != nil {
		f.log.Warn("checksum failed", "error", err)
	} else {
		result.SHA256 = sum
	}

	original := f.readOriginal(ctx)
	f.runStages(ctx, original)

	result.finish()
	result.Duration = time.Since(result.StartedAt).Round(time.Millisecond).String()
	if err := layout.Ensure(l.Dir()); err == nil {
		if err := WriteManifest(l.ManifestFile(), *result); err != nil {
			f.log.Warn("manifest not written", "error", err)
		}
	}
	f.log.Info("file finished", "status", result.Status, "chapters", len(result.Chapters))
	return *result
}

// readOriginal extracts the source's existing text layer. It feeds the
// passthrough decision and the comparison; failure is not fatal.
func (f *fileRun) readOriginal(ctx context.Context) *document.Document {
	doc, err := f.r.Extractor.Parse(ctx, f.l.Input())
	if err != nil {
		f.log.Warn("source text layer unreadable", "error", err)
		return nil
	}
	return doc
}

func (f *fileRun) runStages(ctx context.Context, original *document.Document) {
	l := f.l

	// OCR. A failure here ends processing of this file.
	start := time.Now()
	engine := f.r.Engine
	if f.s.Options.PassthroughTextPDFs && original.TextBearing() {
		engine = ocr.Passthrough{}
	}
	err := layout.Ensure(l.OCRDir())
	if err == nil {
		err = engine.Run(ctx, l.Input(), l.OCRFile())
	}
	if err != nil {
		f.record(StageOCR, start, err, fmt.Sprintf("OCR failed: %v", err))
		return
	}
	f.record(StageOCR, start, nil, fmt.Sprintf("OCR completed with %s", engine.Name()), l.OCRFile())

	// Text extraction from the OCR'd PDF.
	start = time.Now()
	doc, err := f.r.Extractor.Parse(ctx, l.OCRFile())
	if err != nil {
		f.record(StageExtract, start, err, fmt.Sprintf("text extraction failed: %v", err))
		f.record(StageSplit, time.Now(), err, fmt.Sprintf("chapter splitting failed: %v", err))
		f.skip(StageConvert, "no extracted text")
		f.skip(StageCompare, "no extracted text")
		return
	}
	f.result.Pages = doc.PageCount()
	f.record(StageExtract, start, nil, fmt.Sprintf("extracted %d pages", doc.PageCount()))

	// Chapter split.
	start = time.Now()
	groups := chapters.Segment(doc.Texts(), chapters.Policy{KeepPreamble: f.s.Options.KeepPreamble})
	if len(groups) == 0 {
		f.record(StageSplit, start, nil, "no chapter headings found")
	} else {
		files, err := f.r.Chapters.Write(ctx, l.OCRFile(), groups, l.ChaptersDir(), l.Base())
		f.result.Chapters = append(f.result.Chapters, files...)
		if err != nil {
			f.record(StageSplit, start, err, fmt.Sprintf("chapter splitting failed: %v", err), files...)
		} else {
			f.record(StageSplit, start, nil, fmt.Sprintf("wrote %d chapters", len(files)), files...)
		}
	}

	// DOCX conversion runs regardless of the split outcome.
	start = time.Now()
	converted := false
	if err := f.r.Writer.Write(doc, groups, l.DocxFile()); err != nil {
		f.record(StageConvert, start, err, fmt.Sprintf("conversion failed: %v", err))
	} else {
		converted = true
		f.record(StageConvert, start, nil, "wrote "+l.DocxFile(), l.DocxFile())
	}

	if !f.s.Options.Compare {
		f.skip(StageCompare, "comparison disabled")
		return
	}
	f.compare(ctx, original, doc, converted)
}

func (f *fileRun) compare(ctx context.Context, original, ocrd *document.Document, converted bool) {
	l := f.l
	start := time.Now()

	var back *document.Document
	if converted && f.r.Reader != nil {
		var err error
		if back, err = f.r.Reader.Parse(ctx, l.DocxFile()); err != nil {
			f.log.Warn("converted document unreadable", "error", err)
		}
	}
	report := compare.Build(original, ocrd, back)
	report.Title = l.Base()

	if err := layout.Ensure(l.CompareDir()); err != nil {
		f.record(StageCompare, start, err, fmt.Sprintf("comparison failed: %v", err))
		return
	}

	var outputs []string
	if f.s.Options.RenderPages && f.r.Renderer != nil {
		if err := layout.Ensure(l.PagesDir()); err == nil {
			images, err := report.RenderPreviews(ctx, f.r.Renderer, l.OCRFile(), l.PagesDir(), l.CompareDir())
			outputs = append(outputs, images...)
			if err != nil {
				f.log.Warn("page previews incomplete", "error", err)
			}
		}
	}

	if err := os.WriteFile(l.CompareMarkdown(), report.Markdown(), 0o644); err != nil {
		f.record(StageCompare, start, err, fmt.Sprintf("comparison failed: %v", err), outputs...)
		return
	}
	outputs = append(outputs, l.CompareMarkdown())

	page, err := report.HTML("")
	if err == nil {
		err = os.WriteFile(l.CompareHTML(), page, 0o644)
	}
	if err != nil {
		f.record(StageCompare, start, err, fmt.Sprintf("comparison failed: %v", err), outputs...)
		return
	}
	outputs = append(outputs, l.CompareHTML())

	f.record(StageCompare, start, nil,
		fmt.Sprintf("%d of %d pages changed by OCR", report.ChangedPages(), len(report.Rows)),
		outputs...)
}

func fileDigest(path string) (string, error) {
	fh, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer fh.Close()
	h := sha256.New()
	if _, err := io.Copy(h, fh); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
