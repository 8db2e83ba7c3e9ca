package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/ocrsplit/internal/layout"
	"github.com/dgallion1/ocrsplit/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.cfg.Upload.MaxBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		files = r.MultipartForm.File["file"]
	}
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	// Each job owns <output_dir>/<job_id>/ so equal base names in different
	// jobs never share an output directory.
	job := pipeline.NewJob(nil, "")
	job.OutputDir = filepath.Join(s.cfg.OutputDir, job.ID)
	dir := filepath.Join(s.uploadRoot, job.ID)
	if err := layout.Ensure(dir); err != nil {
		jsonError(w, "failed to create upload directory", http.StatusInternalServerError)
		return
	}

	var accepted []string
	var rejected []map[string]string
	seen := make(map[string]bool)
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		reject := func(msg string) {
			rejected = append(rejected, map[string]string{"filename": filename, "error": msg})
		}
		if !layout.IsPDF(filename) {
			reject(fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)))
			continue
		}
		base := layout.BaseName(filename)
		if base == "" || strings.HasPrefix(base, ".") {
			reject("invalid file name")
			continue
		}
		if seen[strings.ToLower(base)] {
			reject("duplicate file name in job")
			continue
		}

		dst := filepath.Join(dir, filename)
		n, err := saveUpload(fh, dst, maxBytes)
		if err != nil {
			reject(err.Error())
			continue
		}
		if n > maxBytes {
			os.Remove(dst)
			reject(fmt.Sprintf("file exceeds max size (%d bytes)", maxBytes))
			continue
		}
		seen[strings.ToLower(base)] = true
		accepted = append(accepted, dst)
		job.AddFile(dst)
	}

	if len(accepted) == 0 {
		os.RemoveAll(dir)
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":    "no acceptable PDF files",
			"rejected": rejected,
		})
		return
	}

	if err := s.orchestrator.Submit(job); err != nil {
		os.RemoveAll(dir)
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.log.Info("job queued", "job_id", job.ID, "files", len(accepted), "rejected", len(rejected))

	names := make([]string, 0, len(accepted))
	for _, p := range accepted {
		names = append(names, filepath.Base(p))
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"status":   pipeline.StatusQueued,
		"files":    names,
		"rejected": rejected,
		"poll_url": fmt.Sprintf("/api/jobs/%s", job.ID),
	})
}

// saveUpload copies at most limit+1 bytes so callers can detect oversize files.
func saveUpload(fh *multipart.FileHeader, dst string, limit int64) (int64, error) {
	src, err := fh.Open()
	if err != nil {
		return 0, fmt.Errorf("failed to open file")
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, fmt.Errorf("failed to store file")
	}
	n, err := io.Copy(out, io.LimitReader(src, limit+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(dst)
		return 0, fmt.Errorf("failed to store file")
	}
	return n, nil
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.jobFromRequest(w, r)
	if job == nil {
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

// handleJobReport redirects to the comparison report of the job's first file.
func (s *Server) handleJobReport(w http.ResponseWriter, r *http.Request) {
	job := s.jobFromRequest(w, r)
	if job == nil {
		return
	}
	results := job.Results()
	if len(results) == 0 {
		jsonError(w, "job has no results yet", http.StatusNotFound)
		return
	}
	base := layout.BaseName(results[0].Input)
	http.Redirect(w, r, fmt.Sprintf("/api/jobs/%s/files/%s/report", job.ID, url.PathEscape(base)), http.StatusFound)
}

func (s *Server) handleFileReport(w http.ResponseWriter, r *http.Request) {
	l := s.fileLayout(w, r)
	if l == nil {
		return
	}
	serveOutput(w, r, l.CompareHTML(), "text/html; charset=utf-8", "report not available")
}

func (s *Server) handleFileManifest(w http.ResponseWriter, r *http.Request) {
	l := s.fileLayout(w, r)
	if l == nil {
		return
	}
	serveOutput(w, r, l.ManifestFile(), "application/yaml", "manifest not available")
}

func (s *Server) handleFilePage(w http.ResponseWriter, r *http.Request) {
	l := s.fileLayout(w, r)
	if l == nil {
		return
	}
	image := chi.URLParam(r, "image")
	if image != filepath.Base(image) || !strings.EqualFold(filepath.Ext(image), ".png") {
		jsonError(w, "invalid image name", http.StatusBadRequest)
		return
	}
	serveOutput(w, r, filepath.Join(l.PagesDir(), image), "image/png", "page image not available")
}

func (s *Server) jobFromRequest(w http.ResponseWriter, r *http.Request) *pipeline.Job {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
	}
	return job
}

// fileLayout resolves the output layout of one processed file of a job.
func (s *Server) fileLayout(w http.ResponseWriter, r *http.Request) *layout.Layout {
	job := s.jobFromRequest(w, r)
	if job == nil {
		return nil
	}
	name := chi.URLParam(r, "name")
	for _, res := range job.Results() {
		if layout.BaseName(res.Input) == name {
			return layout.New(job.OutputDir, res.Input)
		}
	}
	jsonError(w, "file not found in job", http.StatusNotFound)
	return nil
}

func serveOutput(w http.ResponseWriter, r *http.Request, path, contentType, missing string) {
	data, err := os.ReadFile(path)
	if err != nil {
		jsonError(w, missing, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
