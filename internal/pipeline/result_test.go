package pipeline

import (
	"path/filepath"
	"testing"
	"time"
)

func TestFileResult_Finish(t *testing.T) {
	ok := func(stage string) StageResult { return StageResult{Stage: stage, OK: true} }
	failed := func(stage string) StageResult { return StageResult{Stage: stage, Message: "boom"} }
	skipped := func(stage string) StageResult { return StageResult{Stage: stage, Skipped: true} }

	tests := []struct {
		name   string
		stages []StageResult
		want   Status
	}{
		{"all ok", []StageResult{ok(StageOCR), ok(StageExtract), ok(StageSplit), ok(StageConvert), ok(StageCompare)}, StatusCompleted},
		{"compare skipped", []StageResult{ok(StageOCR), ok(StageExtract), ok(StageSplit), ok(StageConvert), skipped(StageCompare)}, StatusCompleted},
		{"ocr failed", []StageResult{failed(StageOCR)}, StatusFailed},
		{"no stages", nil, StatusFailed},
		{"split failed", []StageResult{ok(StageOCR), ok(StageExtract), failed(StageSplit), ok(StageConvert)}, StatusPartial},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FileResult{Stages: tt.stages}
			r.finish()
			if r.Status != tt.want {
				t.Errorf("expected %q, got %q", tt.want, r.Status)
			}
		})
	}
}

func TestFileResult_OutputsAndErrors(t *testing.T) {
	r := FileResult{Stages: []StageResult{
		{Stage: StageOCR, OK: true, Outputs: []string{"o.pdf"}},
		{Stage: StageSplit, Message: "chapter splitting failed: x", Outputs: []string{"c1.pdf"}},
		{Stage: StageCompare, Skipped: true, Message: "comparison disabled"},
	}}
	if got := r.Outputs(); len(got) != 2 || got[0] != "o.pdf" || got[1] != "c1.pdf" {
		t.Errorf("unexpected outputs %v", got)
	}
	if got := r.Errors(); len(got) != 1 || got[0] != "split: chapter splitting failed: x" {
		t.Errorf("unexpected errors %v", got)
	}
	if _, ok := r.Stage(StageConvert); ok {
		t.Error("expected missing stage lookup to fail")
	}
}

func TestManifestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	want := FileResult{
		Input:     "/in/book.pdf",
		OutputDir: "/out/book",
		Status:    StatusPartial,
		Pages:     10,
		Chapters:  []string{"/out/book/chapters/book_chapter_1.pdf"},
		Stages:    []StageResult{{Stage: StageOCR, OK: true, Message: "OCR completed with ocrmypdf", DurationMs: 1200}},
		StartedAt: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Duration:  "1.2s",
	}
	if err := WriteManifest(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadManifest(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Input != want.Input || got.Status != want.Status || got.Pages != want.Pages || !got.StartedAt.Equal(want.StartedAt) {
		t.Errorf("manifest mismatch: %+v", got)
	}
	if len(got.Stages) != 1 || got.Stages[0].DurationMs != 1200 {
		t.Errorf("unexpected stages %+v", got.Stages)
	}
	if _, err := ReadManifest(filepath.Join(t.TempDir(), "none.yaml")); err == nil {
		t.Error("expected error for missing manifest")
	}
}
