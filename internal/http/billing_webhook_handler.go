package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/localboost/localboost/internal/domain"
	"github.com/localboost/localboost/internal/service"
	"github.com/localboost/localboost/pkg/distlock"
	"github.com/localboost/localboost/pkg/logger"
	"github.com/localboost/localboost/pkg/metrics"
)

// maxWebhookBytes bounds one delivery; invoice events with many line items
// run past 64 KiB
const maxWebhookBytes = 1 << 20

// eventDedupeTTL covers Stripe's redelivery window for a single event
const eventDedupeTTL = 24 * time.Hour

type BillingEventParser interface {
	Parse(payload []byte, signature string) (*domain.BillingEvent, error)
}

type BillingEventHandler interface {
	HandleEvent(ctx context.Context, event *domain.BillingEvent) error
}

// BillingWebhookHandler verifies billing provider deliveries and hands them
// to the reconciler
type BillingWebhookHandler struct {
	parser     BillingEventParser
	reconciler BillingEventHandler
	deduper    distlock.Deduper
	logger     logger.Logger
}

// NewBillingWebhookHandler creates the webhook handler. A nil parser means
// the webhook secret is not configured.
func NewBillingWebhookHandler(parser BillingEventParser, reconciler BillingEventHandler, deduper distlock.Deduper, logger logger.Logger) *BillingWebhookHandler {
	if deduper == nil {
		deduper = distlock.Noop{}
	}
	return &BillingWebhookHandler{
		parser:     parser,
		reconciler: reconciler,
		deduper:    deduper,
		logger:     logger,
	}
}

func (h *BillingWebhookHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/billing/webhook", h.handleWebhook)
}

func (h *BillingWebhookHandler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	ctx := r.Context()

	if h.parser == nil {
		WriteJSONError(w, "STRIPE_WEBHOOK_SECRET is not configured", http.StatusInternalServerError)
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		WriteJSONError(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	event, err := h.parser.Parse(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		metrics.RecordWebhookEvent(ctx, "rejected")
		if errors.Is(err, service.ErrInvalidSignature) {
			WriteJSONError(w, "Invalid signature", http.StatusBadRequest)
			return
		}
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	log := h.logger.WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
	})

	first, err := h.deduper.FirstSeen(ctx, event.ID, eventDedupeTTL)
	if err != nil {
		// without the dedupe store the event is processed anyway
		log.WithField("error", err.Error()).Warn("Failed to check billing event id")
		first = true
	}
	if !first {
		metrics.RecordWebhookEvent(ctx, "duplicate")
		log.Debug("Billing event already processed")
		writeJSON(w, http.StatusOK, map[string]interface{}{"received": true, "duplicate": true})
		return
	}

	if err := h.reconciler.HandleEvent(ctx, event); err != nil {
		metrics.RecordWebhookEvent(ctx, "error")
		if ferr := h.deduper.Forget(ctx, event.ID); ferr != nil {
			log.WithField("error", ferr.Error()).Warn("Failed to release billing event id")
		}
		WriteJSONError(w, "Failed to process event", http.StatusInternalServerError)
		return
	}

	metrics.RecordWebhookEvent(ctx, "processed")
	writeJSON(w, http.StatusOK, map[string]interface{}{"received": true})
}
