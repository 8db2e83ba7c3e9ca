package api

import (
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/dgallion1/ocrsplit/internal/config"
	"github.com/dgallion1/ocrsplit/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// UploadsDirName is the directory under the output root that keeps
// uploaded sources, one subdirectory per job.
const UploadsDirName = ".uploads"

// Server is the HTTP API server for ocrsplit.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	log          *slog.Logger
	cfg          config.Config
	uploadRoot   string
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		log:          log,
		cfg:          cfg,
		uploadRoot:   filepath.Join(cfg.OutputDir, UploadsDirName),
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/jobs", s.handleCreateJob)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)
		r.Get("/api/jobs/{jobID}/report", s.handleJobReport)
		r.Get("/api/jobs/{jobID}/files/{name}/report", s.handleFileReport)
		r.Get("/api/jobs/{jobID}/files/{name}/manifest", s.handleFileManifest)
		r.Get("/api/jobs/{jobID}/files/{name}/pages/{image}", s.handleFilePage)
		r.Get("/api/stats/stages", s.handleStageStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
