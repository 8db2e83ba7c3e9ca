// Package layout owns the on-disk output structure and input discovery.
//
// Each input gets its own directory under the output root, named after the
// input's base name:
//
//	<root>/<base>/ocr_pdf/<original filename>
//	<root>/<base>/chapters/<base>_chapter_<n>.pdf
//	<root>/<base>/text/<base>.docx
//	<root>/<base>/compare/<base>.md
//	<root>/<base>/compare/<base>.html
//	<root>/<base>/manifest.yaml
package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	OCRDirName      = "ocr_pdf"
	ChaptersDirName = "chapters"
	TextDirName     = "text"
	CompareDirName  = "compare"
	PagesDirName    = "pages"
	ManifestName    = "manifest.yaml"
)

// ErrNoInputs is returned when input discovery finds no PDF files.
var ErrNoInputs = errors.New("no PDF files selected")

// ErrDuplicateBase is returned when two inputs would write to the same
// output directory.
var ErrDuplicateBase = errors.New("inputs share a base name")

// Layout resolves output paths for one input file.
type Layout struct {
	root     string
	input    string
	base     string
	filename string
}

// New returns the layout for input rooted at outputDir.
func New(outputDir, input string) *Layout {
	filename := filepath.Base(input)
	return &Layout{
		root:     outputDir,
		input:    input,
		base:     BaseName(input),
		filename: filename,
	}
}

// BaseName strips directory and extension: "/a/My Book.PDF" -> "My Book".
func BaseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func (l *Layout) Input() string    { return l.input }
func (l *Layout) Base() string     { return l.base }
func (l *Layout) Dir() string      { return filepath.Join(l.root, l.base) }
func (l *Layout) OCRDir() string   { return filepath.Join(l.Dir(), OCRDirName) }
func (l *Layout) OCRFile() string  { return filepath.Join(l.OCRDir(), l.filename) }
func (l *Layout) ChaptersDir() string {
	return filepath.Join(l.Dir(), ChaptersDirName)
}
func (l *Layout) TextDir() string    { return filepath.Join(l.Dir(), TextDirName) }
func (l *Layout) DocxFile() string   { return filepath.Join(l.TextDir(), l.base+".docx") }
func (l *Layout) CompareDir() string { return filepath.Join(l.Dir(), CompareDirName) }
func (l *Layout) PagesDir() string   { return filepath.Join(l.CompareDir(), PagesDirName) }
func (l *Layout) ManifestFile() string {
	return filepath.Join(l.Dir(), ManifestName)
}

// ChapterFile returns the path of chapter n (1-indexed).
func (l *Layout) ChapterFile(n int) string {
	return filepath.Join(l.ChaptersDir(), ChapterFileName(l.base, n))
}

// ChapterFileName is "<base>_chapter_<n>.pdf".
func ChapterFileName(base string, n int) string {
	return fmt.Sprintf("%s_chapter_%d.pdf", base, n)
}

func (l *Layout) CompareMarkdown() string {
	return filepath.Join(l.CompareDir(), l.base+".md")
}

func (l *Layout) CompareHTML() string {
	return filepath.Join(l.CompareDir(), l.base+".html")
}

// Ensure creates dir (and parents) if missing.
func Ensure(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

// IsPDF reports whether name has a .pdf extension, ignoring case.
func IsPDF(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".pdf")
}

// Collect expands the given paths into an ordered list of PDF files.
// Files are kept in the order given; directories contribute their PDF
// entries (non-recursive) sorted by name. Duplicates are dropped.
func Collect(paths []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("input not found: %s: %w", p, err)
		}
		if !info.IsDir() {
			if !IsPDF(p) {
				return nil, fmt.Errorf("not a PDF file: %s", p)
			}
			add(p)
			continue
		}
		found, err := ScanDir(p)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}

	if len(out) == 0 {
		return nil, ErrNoInputs
	}
	if err := CheckBaseNames(out); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckBaseNames fails with ErrDuplicateBase when two paths map to the same
// <root>/<base> directory. Base names are compared case-insensitively so the
// check holds on case-insensitive filesystems.
func CheckBaseNames(paths []string) error {
	owner := make(map[string]string, len(paths))
	for _, p := range paths {
		key := strings.ToLower(BaseName(p))
		if prev, ok := owner[key]; ok {
			return fmt.Errorf("%w: %s and %s both write to %q", ErrDuplicateBase, prev, p, BaseName(p))
		}
		owner[key] = p
	}
	return nil
}

// ScanDir lists the PDF files directly inside dir, sorted by name.
func ScanDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	var pdfs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if IsPDF(entry.Name()) {
			pdfs = append(pdfs, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(pdfs)
	return pdfs, nil
}
