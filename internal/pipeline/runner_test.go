package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/ocrsplit/internal/convert"
	"github.com/dgallion1/ocrsplit/internal/document"
	"github.com/dgallion1/ocrsplit/internal/layout"
	"github.com/dgallion1/ocrsplit/internal/ocr"
	"github.com/dgallion1/ocrsplit/internal/parser"
	"github.com/dgallion1/ocrsplit/internal/pdftest"
	"github.com/dgallion1/ocrsplit/internal/split"
	"github.com/dgallion1/ocrsplit/internal/stats"
)

type copyEngine struct {
	calls int
	err   error
}

func (e *copyEngine) Name() string { return "fake" }

func (e *copyEngine) Run(ctx context.Context, in, out string) error {
	e.calls++
	if e.err != nil {
		return e.err
	}
	return ocr.CopyFile(in, out)
}

// failingExtractor fails only for files under the OCR output directory.
type failingExtractor struct{ parser.PDFParser }

func (f *failingExtractor) Parse(ctx context.Context, path string) (*document.Document, error) {
	if filepath.Base(filepath.Dir(path)) == layout.OCRDirName {
		return nil, errors.New("text layer corrupt")
	}
	return f.PDFParser.Parse(ctx, path)
}

type failingChapters struct{}

func (failingChapters) Write(ctx context.Context, src string, groups []document.Group, dir, base string) ([]string, error) {
	return nil, errors.New("disk full")
}

func newTestRunner(engine ocr.Engine) *Runner {
	return &Runner{
		Engine:    engine,
		Extractor: &parser.PDFParser{},
		Reader:    &parser.DOCXParser{},
		Chapters:  &split.Splitter{},
		Writer:    &convert.DOCXWriter{},
		Stats:     stats.New(time.Hour),
	}
}

func tenPageBook(t *testing.T, dir, name string) string {
	t.Helper()
	pages := make([]string, 10)
	for i := range pages {
		pages[i] = fmt.Sprintf("body of page %d", i+1)
	}
	pages[0] = "Chapter 1 The Start"
	pages[4] = "CHAPTER 2 The Middle"
	path := filepath.Join(dir, name)
	pdftest.Write(t, path, pages)
	return path
}

func stageNames(r FileResult) []string {
	var out []string
	for _, s := range r.Stages {
		out = append(out, s.Stage)
	}
	return out
}

func TestRun_TenPageBook(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	src := tenPageBook(t, in, "novel.pdf")

	var progress []string
	engine := &copyEngine{}
	r := newTestRunner(engine)
	results := r.Run(context.Background(), Session{
		Inputs:    []string{src},
		OutputDir: out,
		Options:   Options{Compare: true},
		Progress:  func(input string, sr StageResult) { progress = append(progress, sr.Stage) },
	})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	res := results[0]
	if res.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q: %v", res.Status, res.Errors())
	}
	if got := strings.Join(stageNames(res), ","); got != strings.Join(Stages, ",") {
		t.Errorf("expected stages %v, got %s", Stages, got)
	}
	if strings.Join(progress, ",") != strings.Join(Stages, ",") {
		t.Errorf("expected progress for every stage, got %v", progress)
	}
	if engine.calls != 1 {
		t.Errorf("expected engine to run once, got %d", engine.calls)
	}
	if res.Pages != 10 {
		t.Errorf("expected 10 pages, got %d", res.Pages)
	}
	if res.SHA256 == "" {
		t.Error("expected input checksum")
	}

	l := layout.New(out, src)
	wantChapters := []string{l.ChapterFile(1), l.ChapterFile(2)}
	if len(res.Chapters) != 2 || res.Chapters[0] != wantChapters[0] || res.Chapters[1] != wantChapters[1] {
		t.Fatalf("expected chapters %v, got %v", wantChapters, res.Chapters)
	}
	for i, want := range []int{4, 6} {
		n, err := split.PageCount(res.Chapters[i])
		if err != nil {
			t.Fatalf("page count: %v", err)
		}
		if n != want {
			t.Errorf("chapter %d: expected %d pages, got %d", i+1, want, n)
		}
	}

	for _, p := range []string{l.OCRFile(), l.DocxFile(), l.CompareMarkdown(), l.CompareHTML(), l.ManifestFile()} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("expected output %s: %v", p, err)
		}
	}
	if filepath.Base(l.OCRFile()) != "novel.pdf" {
		t.Errorf("OCR copy should keep the original filename, got %s", l.OCRFile())
	}

	manifest, err := ReadManifest(l.ManifestFile())
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if manifest.Status != StatusCompleted || len(manifest.Chapters) != 2 || len(manifest.Stages) != 5 {
		t.Errorf("unexpected manifest: %+v", manifest)
	}

	if snaps := r.Stats.Snapshot(); snaps[StageOCR].Count != 1 || snaps[StageCompare].Count != 1 {
		t.Errorf("expected stage stats to be recorded, got %v", snaps)
	}
}

func TestRun_OCRFailureEndsFileOnly(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	first := tenPageBook(t, in, "a.pdf")
	second := tenPageBook(t, in, "b.pdf")

	engine := &copyEngine{err: errors.New("tesseract crashed")}
	results := newTestRunner(engine).Run(context.Background(), Session{
		Inputs:    []string{first, second},
		OutputDir: out,
	})

	if len(results) != 2 {
		t.Fatalf("expected both files to be attempted, got %d", len(results))
	}
	for _, res := range results {
		if res.Status != StatusFailed {
			t.Errorf("%s: expected failed, got %q", res.Input, res.Status)
		}
		if len(res.Stages) != 1 || res.Stages[0].Stage != StageOCR {
			t.Errorf("%s: expected only the ocr stage, got %v", res.Input, stageNames(res))
		}
		if !strings.Contains(res.Stages[0].Message, "tesseract crashed") {
			t.Errorf("expected error in message, got %q", res.Stages[0].Message)
		}
	}
	if results[0].Input != first || results[1].Input != second {
		t.Error("results must follow input order")
	}
	if _, err := os.Stat(layout.New(out, first).DocxFile()); !os.IsNotExist(err) {
		t.Error("no docx should be written after OCR failure")
	}
}

func TestRun_ExtractionFailureSkipsLaterStages(t *testing.T) {
	in := t.TempDir()
	src := tenPageBook(t, in, "book.pdf")

	r := newTestRunner(&copyEngine{})
	r.Extractor = &failingExtractor{}
	res := r.Run(context.Background(), Session{
		Inputs:    []string{src},
		OutputDir: t.TempDir(),
		Options:   Options{Compare: true},
	})[0]

	if res.Status != StatusPartial {
		t.Errorf("expected partial, got %q", res.Status)
	}
	sr, _ := res.Stage(StageSplit)
	if sr.OK || !strings.HasPrefix(sr.Message, "chapter splitting failed") {
		t.Errorf("unexpected split result: %+v", sr)
	}
	for _, name := range []string{StageConvert, StageCompare} {
		if s, ok := res.Stage(name); !ok || !s.Skipped {
			t.Errorf("expected %s to be skipped, got %+v", name, s)
		}
	}
}

func TestRun_SplitFailureDoesNotBlockConvert(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	src := tenPageBook(t, in, "book.pdf")

	r := newTestRunner(&copyEngine{})
	r.Chapters = failingChapters{}
	res := r.Run(context.Background(), Session{Inputs: []string{src}, OutputDir: out})[0]

	if res.Status != StatusPartial {
		t.Errorf("expected partial, got %q", res.Status)
	}
	if sr, _ := res.Stage(StageSplit); sr.OK || !strings.Contains(sr.Message, "disk full") {
		t.Errorf("unexpected split result: %+v", sr)
	}
	if sr, _ := res.Stage(StageConvert); !sr.OK {
		t.Errorf("expected convert to succeed, got %+v", sr)
	}
	if sr, _ := res.Stage(StageCompare); !sr.Skipped {
		t.Errorf("expected compare skipped when disabled, got %+v", sr)
	}
	if _, err := os.Stat(layout.New(out, src).DocxFile()); err != nil {
		t.Errorf("expected docx: %v", err)
	}
}

func TestRun_NoChapterHeadings(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	src := filepath.Join(in, "notes.pdf")
	pdftest.Write(t, src, []string{"Introduction", "the chapter begins later"})

	res := newTestRunner(&copyEngine{}).Run(context.Background(), Session{Inputs: []string{src}, OutputDir: out})[0]
	if res.Status != StatusCompleted {
		t.Fatalf("expected completed, got %q: %v", res.Status, res.Errors())
	}
	if len(res.Chapters) != 0 {
		t.Errorf("expected no chapters, got %v", res.Chapters)
	}
	if sr, _ := res.Stage(StageSplit); sr.Message != "no chapter headings found" {
		t.Errorf("unexpected split message %q", sr.Message)
	}
	entries, err := os.ReadDir(layout.New(out, src).ChaptersDir())
	if err == nil && len(entries) > 0 {
		t.Errorf("expected no chapter files, got %d", len(entries))
	}
}

func TestRun_PassthroughForTextBearingSource(t *testing.T) {
	in := t.TempDir()
	src := tenPageBook(t, in, "digital.pdf")

	engine := &copyEngine{}
	res := newTestRunner(engine).Run(context.Background(), Session{
		Inputs:    []string{src},
		OutputDir: t.TempDir(),
		Options:   Options{PassthroughTextPDFs: true},
	})[0]

	if engine.calls != 0 {
		t.Errorf("expected OCR engine to be bypassed, got %d calls", engine.calls)
	}
	if sr, _ := res.Stage(StageOCR); !sr.OK || !strings.Contains(sr.Message, "passthrough") {
		t.Errorf("unexpected ocr result: %+v", sr)
	}
}

func TestRun_KeepPreamble(t *testing.T) {
	in := t.TempDir()
	src := filepath.Join(in, "book.pdf")
	pdftest.Write(t, src, []string{"Title page", "Chapter 1", "text"})

	res := newTestRunner(&copyEngine{}).Run(context.Background(), Session{
		Inputs:    []string{src},
		OutputDir: t.TempDir(),
		Options:   Options{KeepPreamble: true},
	})[0]
	if len(res.Chapters) != 2 {
		t.Fatalf("expected preamble plus one chapter, got %v", res.Chapters)
	}
}

func TestRun_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := newTestRunner(&copyEngine{}).Run(ctx, Session{Inputs: []string{"a.pdf", "b.pdf"}, OutputDir: t.TempDir()})
	if len(results) != 0 {
		t.Errorf("expected no results after cancel, got %d", len(results))
	}
}

func TestRun_SharedBaseNameKeepsFirstOutputs(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	first := filepath.Join(in, "a", "book.pdf")
	second := filepath.Join(in, "b", "book.pdf")
	for _, p := range []string{first, second} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	pdftest.Write(t, first, []string{"Chapter 1", "x", "Chapter 2", "y"})
	pdftest.Write(t, second, []string{"intro", "text"})

	engine := &copyEngine{}
	results := newTestRunner(engine).Run(context.Background(), Session{
		Inputs:    []string{first, second},
		OutputDir: out,
	})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if engine.calls != 1 {
		t.Errorf("expected OCR to run once, ran %d times", engine.calls)
	}
	if results[0].Status != StatusCompleted || len(results[0].Chapters) != 2 {
		t.Errorf("expected first input completed with 2 chapters, got %q %v", results[0].Status, results[0].Chapters)
	}
	rejected := results[1]
	if rejected.Status != StatusFailed {
		t.Fatalf("expected second input failed, got %q", rejected.Status)
	}
	if errs := rejected.Errors(); len(errs) != 1 || !strings.Contains(errs[0], "already used by "+first) {
		t.Errorf("unexpected errors %v", errs)
	}

	manifest, err := ReadManifest(filepath.Join(out, "book", layout.ManifestName))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if manifest.Input != first {
		t.Errorf("expected manifest of %s, got %s", first, manifest.Input)
	}
	for _, ch := range results[0].Chapters {
		if _, err := os.Stat(ch); err != nil {
			t.Errorf("expected chapter %s kept: %v", ch, err)
		}
	}
}
