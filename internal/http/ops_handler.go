package http

import (
	"context"
	"net/http"
	"time"
)

// Pinger checks a dependency, typically the database
type Pinger interface {
	PingContext(ctx context.Context) error
}

// OpsHandler serves health and metrics endpoints
type OpsHandler struct {
	db             Pinger
	metricsHandler http.Handler
}

// NewOpsHandler creates the ops endpoints. metricsHandler may be nil when no
// prometheus exporter is configured.
func NewOpsHandler(db Pinger, metricsHandler http.Handler) *OpsHandler {
	return &OpsHandler{
		db:             db,
		metricsHandler: metricsHandler,
	}
}

func (h *OpsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", h.handleHealth)
	if h.metricsHandler != nil {
		mux.Handle("/metrics", h.metricsHandler)
	}
}

func (h *OpsHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
