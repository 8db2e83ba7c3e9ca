package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dgallion1/ocrsplit/internal/config"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "ocrsplit",
	Short: "OCR scanned PDFs, split them into chapters and convert them to DOCX",
	Long: `ocrsplit makes scanned books usable.

For every input PDF it:
  - runs OCR (ocrmypdf) to add a text layer
  - extracts the text of each page
  - splits the PDF into one file per chapter, where a chapter starts on
    a page whose first word is "chapter"
  - writes the text to an editable .docx
  - produces a page-by-page comparison of original, OCR and converted text`,
	Version:       versionString(),
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.ocrsplit/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "log level: debug, info, warn or error (overrides log.level)",
	)

	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads configuration and applies the global flags.
func loadConfig() (*config.Manager, error) {
	m, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		if err := m.Set("log.level", logLevel); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// newLogger builds a text or JSON logger whose level can be changed later
// through the returned LevelVar.
func newLogger(w io.Writer, level string, json bool) (*slog.Logger, *slog.LevelVar) {
	lv := new(slog.LevelVar)
	if l, err := config.ParseLevel(level); err == nil {
		lv.Set(l)
	}
	opts := &slog.HandlerOptions{Level: lv}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts)), lv
	}
	return slog.New(slog.NewTextHandler(w, opts)), lv
}
