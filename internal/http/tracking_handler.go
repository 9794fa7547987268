package http

import (
	"context"
	"net/http"

	"github.com/localboost/localboost/pkg/botdetection"
	"github.com/localboost/localboost/pkg/logger"
)

// transparentGIF is a 1x1 transparent GIF89a
var transparentGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00, 0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00,
	0x01, 0x00, 0x01, 0x00, 0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

type OpenRecorder interface {
	RecordOpen(ctx context.Context, recipientID string) (bool, error)
}

// TrackingHandler serves the email open pixel
type TrackingHandler struct {
	opens  OpenRecorder
	logger logger.Logger
}

func NewTrackingHandler(opens OpenRecorder, logger logger.Logger) *TrackingHandler {
	return &TrackingHandler{
		opens:  opens,
		logger: logger,
	}
}

func (h *TrackingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/track/open", h.handleOpen)
}

// handleOpen always answers with the pixel so mail clients never show a
// broken image. Hits from scanners and prefetchers are not counted.
func (h *TrackingHandler) handleOpen(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet, http.MethodHead) {
		return
	}

	rid := r.URL.Query().Get("rid")
	if rid != "" && botdetection.IsAutomated(r.UserAgent()) {
		h.logger.WithFields(map[string]interface{}{
			"recipient_id": rid,
			"user_agent":   r.UserAgent(),
		}).Debug("Ignoring automated open")
		rid = ""
	}

	if rid != "" {
		if _, err := h.opens.RecordOpen(r.Context(), rid); err != nil {
			h.logger.WithFields(map[string]interface{}{
				"recipient_id": rid,
				"error":        err.Error(),
			}).Warn("Failed to record open")
		}
	}

	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = w.Write(transparentGIF)
	}
}
