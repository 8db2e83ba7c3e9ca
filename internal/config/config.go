package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type Config struct {
	Port string `mapstructure:"port" yaml:"port"`

	// Auth for the HTTP API. Empty disables bearer auth.
	APIKey string `mapstructure:"api_key" yaml:"api_key"`

	// Root directory that receives one subdirectory per processed file.
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`

	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	OCR      OCRConfig      `mapstructure:"ocr" yaml:"ocr"`
	PDF      PDFConfig      `mapstructure:"pdf" yaml:"pdf"`
	Chapters ChaptersConfig `mapstructure:"chapters" yaml:"chapters"`
	Compare  CompareConfig  `mapstructure:"compare" yaml:"compare"`
	Jobs     JobsConfig     `mapstructure:"jobs" yaml:"jobs"`
	Upload   UploadConfig   `mapstructure:"upload" yaml:"upload"`
}

type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

type OCRConfig struct {
	Engine   string `mapstructure:"engine" yaml:"engine"` // "ocrmypdf" or "none"
	Binary   string `mapstructure:"binary" yaml:"binary"`
	Language string `mapstructure:"language" yaml:"language"`
	SkipText bool   `mapstructure:"skip_text" yaml:"skip_text"`
	Deskew   bool   `mapstructure:"deskew" yaml:"deskew"`
	Optimize int    `mapstructure:"optimize" yaml:"optimize"`

	// Copy sources that already carry text on every page instead of OCRing.
	PassthroughTextPDFs bool `mapstructure:"passthrough_text_pdfs" yaml:"passthrough_text_pdfs"`

	// Recognize blank pages with Tesseract during text extraction.
	// Needs a binary built with -tags ocr.
	TextFallback bool `mapstructure:"text_fallback" yaml:"text_fallback"`
	RenderDPI    int  `mapstructure:"render_dpi" yaml:"render_dpi"`
}

type PDFConfig struct {
	FallbackPdftotext bool `mapstructure:"fallback_pdftotext" yaml:"fallback_pdftotext"`
}

type ChaptersConfig struct {
	KeepPreamble bool `mapstructure:"keep_preamble" yaml:"keep_preamble"`
}

type CompareConfig struct {
	Enabled     bool `mapstructure:"enabled" yaml:"enabled"`
	RenderPages bool `mapstructure:"render_pages" yaml:"render_pages"`
}

type JobsConfig struct {
	QueueSize int           `mapstructure:"queue_size" yaml:"queue_size"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

type UploadConfig struct {
	MaxBytes int64 `mapstructure:"max_bytes" yaml:"max_bytes"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:      "8090",
		OutputDir: "output",
		Log:       LogConfig{Level: "info"},
		OCR: OCRConfig{
			Engine:              "ocrmypdf",
			Binary:              "ocrmypdf",
			Language:            "eng",
			SkipText:            true,
			Optimize:            1,
			PassthroughTextPDFs: true,
			RenderDPI:           150,
		},
		PDF:      PDFConfig{FallbackPdftotext: true},
		Chapters: ChaptersConfig{KeepPreamble: false},
		Compare:  CompareConfig{Enabled: true},
		Jobs:     JobsConfig{QueueSize: 100, TTL: time.Hour},
		Upload:   UploadConfig{MaxBytes: 209715200}, // 200MB
	}
}

// Manager loads configuration and, in long-running mode, reloads it when the
// config file changes.
type Manager struct {
	v         *viper.Viper
	mu        sync.RWMutex
	config    Config
	callbacks []func(Config)
}

// NewManager reads defaults, OCRSPLIT_* environment variables and an optional
// config file. cfgFile may be empty, in which case config.yaml is looked up in
// the working directory and $HOME/.ocrsplit.
func NewManager(cfgFile string) (*Manager, error) {
	m := &Manager{v: viper.New()}
	setDefaults(m.v, Default())

	m.v.SetEnvPrefix("OCRSPLIT")
	m.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.v.AutomaticEnv()

	if cfgFile != "" {
		m.v.SetConfigFile(cfgFile)
	} else {
		m.v.SetConfigName("config")
		m.v.SetConfigType("yaml")
		m.v.AddConfigPath(".")
		m.v.AddConfigPath("$HOME/.ocrsplit")
	}

	if err := m.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg, err := m.load()
	if err != nil {
		return nil, err
	}
	m.config = cfg
	return m, nil
}

// Load is a convenience wrapper returning a single snapshot.
func Load(cfgFile string) (Config, error) {
	m, err := NewManager(cfgFile)
	if err != nil {
		return Config{}, err
	}
	return m.Get(), nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("port", d.Port)
	v.SetDefault("api_key", d.APIKey)
	v.SetDefault("output_dir", d.OutputDir)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("ocr.engine", d.OCR.Engine)
	v.SetDefault("ocr.binary", d.OCR.Binary)
	v.SetDefault("ocr.language", d.OCR.Language)
	v.SetDefault("ocr.skip_text", d.OCR.SkipText)
	v.SetDefault("ocr.deskew", d.OCR.Deskew)
	v.SetDefault("ocr.optimize", d.OCR.Optimize)
	v.SetDefault("ocr.passthrough_text_pdfs", d.OCR.PassthroughTextPDFs)
	v.SetDefault("ocr.text_fallback", d.OCR.TextFallback)
	v.SetDefault("ocr.render_dpi", d.OCR.RenderDPI)
	v.SetDefault("pdf.fallback_pdftotext", d.PDF.FallbackPdftotext)
	v.SetDefault("chapters.keep_preamble", d.Chapters.KeepPreamble)
	v.SetDefault("compare.enabled", d.Compare.Enabled)
	v.SetDefault("compare.render_pages", d.Compare.RenderPages)
	v.SetDefault("jobs.queue_size", d.Jobs.QueueSize)
	v.SetDefault("jobs.ttl", d.Jobs.TTL)
	v.SetDefault("upload.max_bytes", d.Upload.MaxBytes)
}

func (m *Manager) load() (Config, error) {
	var cfg Config
	if err := m.v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

// Set overrides a single key, e.g. from a command-line flag.
func (m *Manager) Set(key string, value any) error {
	m.v.Set(key, value)
	cfg, err := m.load()
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Get returns the current configuration.
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// ConfigFile returns the file in use, or "" when running on defaults.
func (m *Manager) ConfigFile() string {
	return m.v.ConfigFileUsed()
}

// OnChange registers a callback invoked after a successful reload.
func (m *Manager) OnChange(fn func(Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Watch reloads the config file on change. Invalid reloads are logged and
// the previous configuration stays in effect.
func (m *Manager) Watch(log *slog.Logger) {
	if m.v.ConfigFileUsed() == "" {
		return
	}
	m.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := m.load()
		if err == nil {
			err = cfg.Validate()
		}
		if err != nil {
			log.Warn("config reload rejected", "file", e.Name, "error", err)
			return
		}

		m.mu.Lock()
		m.config = cfg
		callbacks := make([]func(Config), len(m.callbacks))
		copy(callbacks, m.callbacks)
		m.mu.Unlock()

		log.Info("config reloaded", "file", e.Name, "op", e.Op.String())
		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	m.v.WatchConfig()
}

func (c *Config) normalize() {
	d := Default()
	if c.Port == "" {
		c.Port = d.Port
	}
	if c.OCR.Language == "" {
		c.OCR.Language = d.OCR.Language
	}
	if c.OCR.Binary == "" {
		c.OCR.Binary = d.OCR.Binary
	}
	if c.OCR.RenderDPI <= 0 {
		c.OCR.RenderDPI = d.OCR.RenderDPI
	}
	if c.Jobs.QueueSize <= 0 {
		c.Jobs.QueueSize = d.Jobs.QueueSize
	}
	if c.Jobs.TTL <= 0 {
		c.Jobs.TTL = d.Jobs.TTL
	}
	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = d.Upload.MaxBytes
	}
	c.OCR.Engine = strings.ToLower(strings.TrimSpace(c.OCR.Engine))
}

func (c Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir is required")
	}
	switch c.OCR.Engine {
	case "ocrmypdf", "none":
	default:
		return fmt.Errorf("unknown ocr.engine %q (want ocrmypdf or none)", c.OCR.Engine)
	}
	if c.OCR.Optimize < 0 || c.OCR.Optimize > 3 {
		return fmt.Errorf("ocr.optimize must be between 0 and 3, got %d", c.OCR.Optimize)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a config log level onto slog.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log.level %q", s)
}
