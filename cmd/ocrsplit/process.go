package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dgallion1/ocrsplit/internal/layout"
	"github.com/dgallion1/ocrsplit/internal/pipeline"
)

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#00AA00")).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	partialStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00")).Bold(true)
	skipStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	pathStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF"))
)

var processFlags struct {
	out          string
	engine       string
	language     string
	keepPreamble bool
	noCompare    bool
	renderPages  bool
}

var processCmd = &cobra.Command{
	Use:   "process [files or directories...]",
	Short: "Process PDF files one after another",
	Long: `Process runs OCR, chapter splitting, DOCX conversion and comparison
for each PDF. Directories are scanned (not recursively) for *.pdf files.

Files are processed in the order given. A failure in one file does not
stop the others; the exit status is non-zero if any file failed.

Examples:
  ocrsplit process scan.pdf
  ocrsplit process --out ./books ~/scans
  ocrsplit process --engine none --keep-preamble digital.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProcess,
}

func init() {
	f := processCmd.Flags()
	f.StringVar(&processFlags.out, "out", "", "output directory (overrides output_dir)")
	f.StringVar(&processFlags.engine, "engine", "", "OCR engine: ocrmypdf or none")
	f.StringVar(&processFlags.language, "language", "", "Tesseract language(s), e.g. eng+deu")
	f.BoolVar(&processFlags.keepPreamble, "keep-preamble", false, "write pages before the first chapter as their own file")
	f.BoolVar(&processFlags.noCompare, "no-compare", false, "skip the comparison report")
	f.BoolVar(&processFlags.renderPages, "render-pages", false, "render page images into the comparison report")
}

func runProcess(cmd *cobra.Command, args []string) error {
	m, err := loadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	overrides := []struct {
		flag string
		key  string
		val  any
	}{
		{"out", "output_dir", processFlags.out},
		{"engine", "ocr.engine", processFlags.engine},
		{"language", "ocr.language", processFlags.language},
		{"keep-preamble", "chapters.keep_preamble", processFlags.keepPreamble},
		{"no-compare", "compare.enabled", !processFlags.noCompare},
		{"render-pages", "compare.render_pages", processFlags.renderPages},
	}
	for _, o := range overrides {
		if !flags.Changed(o.flag) {
			continue
		}
		if err := m.Set(o.key, o.val); err != nil {
			return err
		}
	}

	cfg := m.Get()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, _ := newLogger(os.Stderr, cfg.Log.Level, false)
	if f := m.ConfigFile(); f != "" {
		log.Debug("using config file", "file", f)
	}

	inputs, err := layout.Collect(args)
	if err != nil {
		return err
	}
	if err := layout.Ensure(cfg.OutputDir); err != nil {
		return err
	}

	runner, closeRunner := pipeline.NewRunner(cfg, log)
	defer closeRunner()

	out := cmd.OutOrStdout()
	session := pipeline.Session{
		Inputs:    inputs,
		OutputDir: cfg.OutputDir,
		Options:   pipeline.OptionsFrom(cfg),
		Progress: func(input string, r pipeline.StageResult) {
			fmt.Fprintf(out, "  %-8s %s %s\n", r.Stage, stageMark(r), filepath.Base(input))
		},
	}

	results := runner.Run(cmd.Context(), session)
	printSummary(out, results)

	failed := 0
	for _, r := range results {
		if r.Status == pipeline.StatusFailed {
			failed++
		}
	}
	if err := cmd.Context().Err(); err != nil {
		return fmt.Errorf("interrupted after %d of %d files", len(results), len(inputs))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(inputs))
	}
	return nil
}

func stageMark(r pipeline.StageResult) string {
	switch {
	case r.Skipped:
		return skipStyle.Render("skip")
	case r.OK:
		return okStyle.Render(" ok ")
	default:
		return failStyle.Render("FAIL")
	}
}

func statusStyle(s pipeline.Status) lipgloss.Style {
	switch s {
	case pipeline.StatusCompleted:
		return okStyle
	case pipeline.StatusPartial:
		return partialStyle
	default:
		return failStyle
	}
}

func printSummary(w io.Writer, results []pipeline.FileResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("Summary"))
	for _, r := range results {
		fmt.Fprintf(w, "%s %s (%d pages, %d chapters, %s)\n",
			statusStyle(r.Status).Render(strings.ToUpper(string(r.Status))),
			filepath.Base(r.Input), r.Pages, len(r.Chapters), r.Duration)
		fmt.Fprintf(w, "    %s\n", pathStyle.Render(r.OutputDir))
		for _, s := range r.Stages {
			if s.OK {
				continue
			}
			fmt.Fprintf(w, "    %s %s: %s\n", stageMark(s), s.Stage, s.Message)
		}
	}
}
