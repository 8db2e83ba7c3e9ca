package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/ocrsplit/internal/api"
	"github.com/dgallion1/ocrsplit/internal/config"
	"github.com/dgallion1/ocrsplit/internal/layout"
	"github.com/dgallion1/ocrsplit/internal/pipeline"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the ocrsplit HTTP API.

Uploaded PDFs are queued and processed one at a time by a single worker.
Each job writes its outputs under <output_dir>/<job id>/.
Changes to the config file are picked up without a restart; they apply to
jobs started afterwards.

Endpoints:
  POST /api/jobs                                  upload PDFs (multipart "files")
  GET  /api/jobs/{id}                             job status and per-file results
  GET  /api/jobs/{id}/report                      comparison report of the first file
  GET  /api/jobs/{id}/files/{name}/report         comparison report of one file
  GET  /api/jobs/{id}/files/{name}/manifest       manifest.yaml of one file
  GET  /api/jobs/{id}/files/{name}/pages/{image}  rendered page preview
  GET  /api/stats/stages                          rolling stage latencies
  GET  /health`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (overrides port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	m, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != "" {
		if err := m.Set("port", servePort); err != nil {
			return err
		}
	}
	cfg := m.Get()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, level := newLogger(os.Stdout, cfg.Log.Level, true)
	if err := layout.Ensure(cfg.OutputDir); err != nil {
		return err
	}

	runner, closeRunner := pipeline.NewRunner(cfg, log)
	defer closeRunner()

	orch := pipeline.NewOrchestrator(runner, pipeline.OptionsFrom(cfg), cfg.Jobs.QueueSize, cfg.Jobs.TTL, log)
	orch.Start(ctx)

	m.OnChange(func(c config.Config) {
		orch.SetOptions(pipeline.OptionsFrom(c))
		if l, err := config.ParseLevel(c.Log.Level); err == nil {
			level.Set(l)
		}
	})
	m.Watch(log)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      api.NewServer(orch, log, cfg),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting ocrsplit", "port", cfg.Port, "output_dir", cfg.OutputDir, "config", m.ConfigFile())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		orch.Stop()
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", "error", err)
	}
	orch.Stop()
	return nil
}
