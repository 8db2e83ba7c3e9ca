package api

import (
	"net/http"
)

func (s *Server) handleStageStats(w http.ResponseWriter, r *http.Request) {
	stages := s.orchestrator.StageStats()
	if stages == nil {
		jsonError(w, "stage stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"queue_depth": s.orchestrator.QueueDepth(),
		"stages":      stages,
	})
}
