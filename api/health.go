package api

import (
	"net/http"

	"github.com/kyungsub/mcpchat/internal/app"
	"github.com/kyungsub/mcpchat/internal/log"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	backend Backend
	logger  log.Logger
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.liveness)
	mux.HandleFunc("GET /ready", h.readiness)
}

// liveness reports that the process is alive, independent of whether
// initialization has finished.
func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness reports 200 only once the model and tool servers are wired up.
func (h *HealthHandler) readiness(w http.ResponseWriter, _ *http.Request) {
	phase, reason := h.backend.Phase()
	switch phase {
	case app.PhaseReady:
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	case app.PhaseFailed:
		h.logger.Error("readiness check failed", "error", reason)
		http.Error(w, "initialization failed: "+reason.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, "initializing: "+phase.String(), http.StatusServiceUnavailable)
	}
}
