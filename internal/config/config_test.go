package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8090" {
		t.Errorf("expected port %q, got %q", "8090", cfg.Port)
	}
	if cfg.OCR.Engine != "ocrmypdf" {
		t.Errorf("expected engine %q, got %q", "ocrmypdf", cfg.OCR.Engine)
	}
	if !cfg.OCR.SkipText {
		t.Error("expected skip_text on by default")
	}
	if cfg.Chapters.KeepPreamble {
		t.Error("expected keep_preamble off by default")
	}
	if cfg.Jobs.TTL != time.Hour {
		t.Errorf("expected ttl 1h, got %s", cfg.Jobs.TTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OCRSPLIT_OCR_LANGUAGE", "deu")
	t.Setenv("OCRSPLIT_CHAPTERS_KEEP_PREAMBLE", "true")
	t.Setenv("OCRSPLIT_JOBS_TTL", "30m")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.OCR.Language != "deu" {
		t.Errorf("expected language %q, got %q", "deu", cfg.OCR.Language)
	}
	if !cfg.Chapters.KeepPreamble {
		t.Error("expected keep_preamble from env")
	}
	if cfg.Jobs.TTL != 30*time.Minute {
		t.Errorf("expected ttl 30m, got %s", cfg.Jobs.TTL)
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := chdirTemp(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(dir, "custom.yaml")
	data := []byte("output_dir: /tmp/books\nocr:\n  engine: none\n  optimize: 2\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := m.Get()
	if cfg.OutputDir != "/tmp/books" {
		t.Errorf("expected output_dir from file, got %q", cfg.OutputDir)
	}
	if cfg.OCR.Engine != "none" {
		t.Errorf("expected engine none, got %q", cfg.OCR.Engine)
	}
	if cfg.OCR.Optimize != 2 {
		t.Errorf("expected optimize 2, got %d", cfg.OCR.Optimize)
	}
	// Unset keys keep defaults.
	if cfg.OCR.Language != "eng" {
		t.Errorf("expected default language, got %q", cfg.OCR.Language)
	}
	if m.ConfigFile() != path {
		t.Errorf("expected config file %q, got %q", path, m.ConfigFile())
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	chdirTemp(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestManager_Set(t *testing.T) {
	chdirTemp(t)
	t.Setenv("HOME", t.TempDir())
	m, err := NewManager("")
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Set("output_dir", "/srv/out"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.Get().OutputDir; got != "/srv/out" {
		t.Errorf("expected override, got %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"no output dir", func(c *Config) { c.OutputDir = "" }, true},
		{"unknown engine", func(c *Config) { c.OCR.Engine = "abbyy" }, true},
		{"engine none", func(c *Config) { c.OCR.Engine = "none" }, false},
		{"optimize too high", func(c *Config) { c.OCR.Optimize = 4 }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestWriteDefault_RoundTripsThroughLoad(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error loading written config: %v", err)
	}
	if cfg.OCR.Language != Default().OCR.Language {
		t.Errorf("expected language %q, got %q", Default().OCR.Language, cfg.OCR.Language)
	}
}
