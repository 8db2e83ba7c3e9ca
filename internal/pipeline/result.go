package pipeline

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Stage names, in execution order.
const (
	StageOCR     = "ocr"
	StageExtract = "extract"
	StageSplit   = "split"
	StageConvert = "convert"
	StageCompare = "compare"
)

// Stages lists every stage in the order the runner executes them.
var Stages = []string{StageOCR, StageExtract, StageSplit, StageConvert, StageCompare}

// StageResult is the outcome of one stage for one file.
type StageResult struct {
	Stage      string   `json:"stage" yaml:"stage"`
	OK         bool     `json:"ok" yaml:"ok"`
	Skipped    bool     `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Message    string   `json:"message" yaml:"message"`
	Outputs    []string `json:"outputs,omitempty" yaml:"outputs,omitempty"`
	DurationMs int64    `json:"duration_ms" yaml:"duration_ms"`
}

// FileResult collects every stage outcome for one input file.
type FileResult struct {
	Input     string        `json:"input" yaml:"input"`
	SHA256    string        `json:"sha256,omitempty" yaml:"sha256,omitempty"`
	OutputDir string        `json:"output_dir" yaml:"output_dir"`
	Status    Status        `json:"status" yaml:"status"`
	Pages     int           `json:"pages" yaml:"pages"`
	Chapters  []string      `json:"chapters" yaml:"chapters"`
	Stages    []StageResult `json:"stages" yaml:"stages"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  string        `json:"duration" yaml:"duration"`
}

// Stage returns the result recorded for name, if any.
func (r *FileResult) Stage(name string) (StageResult, bool) {
	for _, s := range r.Stages {
		if s.Stage == name {
			return s, true
		}
	}
	return StageResult{}, false
}

// Outputs returns every file written for this input, in stage order.
func (r *FileResult) Outputs() []string {
	var out []string
	for _, s := range r.Stages {
		out = append(out, s.Outputs...)
	}
	return out
}

// Errors returns the messages of failed stages.
func (r *FileResult) Errors() []string {
	var out []string
	for _, s := range r.Stages {
		if !s.OK && !s.Skipped {
			out = append(out, s.Stage+": "+s.Message)
		}
	}
	return out
}

// finish derives the overall status. OCR failure fails the file; any other
// failed stage makes it partial. Skipped stages do not count.
func (r *FileResult) finish() {
	if ocr, ok := r.Stage(StageOCR); !ok || !ocr.OK {
		r.Status = StatusFailed
		return
	}
	r.Status = StatusCompleted
	for _, s := range r.Stages {
		if !s.OK && !s.Skipped {
			r.Status = StatusPartial
			return
		}
	}
}

// WriteManifest stores result as YAML at path.
func WriteManifest(path string, result FileResult) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by WriteManifest.
func ReadManifest(path string) (FileResult, error) {
	var result FileResult
	data, err := os.ReadFile(path)
	if err != nil {
		return result, fmt.Errorf("read manifest: %w", err)
	}
	if err := yaml.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("parse manifest: %w", err)
	}
	return result, nil
}
