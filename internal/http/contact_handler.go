package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/localboost/localboost/internal/domain"
	"github.com/localboost/localboost/internal/http/middleware"
	"github.com/localboost/localboost/pkg/logger"
)

// LeadService is the contact API used by lead forms and the dashboard
type LeadService interface {
	CreateLead(ctx context.Context, req *domain.CreateLeadRequest) (*domain.Contact, bool, error)
	GetContact(ctx context.Context, tenantID, id string) (*domain.Contact, error)
	PreviewAudience(ctx context.Context, req *domain.AudiencePreviewRequest) (int, error)
	ListActivity(ctx context.Context, tenantID, contactID string, limit int) ([]*domain.ActivityEvent, error)
}

type ContactHandler struct {
	service LeadService
	limiter middleware.Limiter
	logger  logger.Logger
}

// NewContactHandler creates the handler. A nil limiter leaves lead intake
// unthrottled.
func NewContactHandler(service LeadService, limiter middleware.Limiter, logger logger.Logger) *ContactHandler {
	return &ContactHandler{
		service: service,
		limiter: limiter,
		logger:  logger,
	}
}

func (h *ContactHandler) RegisterRoutes(mux *http.ServeMux) {
	throttle := middleware.RateLimitByTenant(h.limiter, "contacts.create")
	mux.Handle("/api/contacts.create", middleware.RequireTenant(throttle(http.HandlerFunc(h.handleCreate))))
	mux.Handle("/api/contacts.get", middleware.RequireTenant(http.HandlerFunc(h.handleGet)))
	mux.Handle("/api/contacts.audience", middleware.RequireTenant(http.HandlerFunc(h.handleAudience)))
	mux.Handle("/api/contacts.activity", middleware.RequireTenant(http.HandlerFunc(h.handleActivity)))
}

// handleCreate ingests a lead. A contact matched by email or phone is merged
// and answered with 200 instead of 201.
func (h *ContactHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}

	var req domain.CreateLeadRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.TenantID = middleware.TenantID(r.Context())

	contact, created, err := h.service.CreateLead(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.logger, "create contact", err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]interface{}{"contact": contact, "created": created})
}

func (h *ContactHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		WriteJSONError(w, (&MissingParameterError{Param: "id"}).Error(), http.StatusBadRequest)
		return
	}

	contact, err := h.service.GetContact(r.Context(), middleware.TenantID(r.Context()), id)
	if err != nil {
		writeServiceError(w, h.logger, "get contact", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"contact": contact})
}

// handleAudience returns the live size of an audience, e.g.
// ?channel=email&tags=vip,regulars
func (h *ContactHandler) handleAudience(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}

	query := r.URL.Query()
	var tags []string
	if raw := query.Get("tags"); raw != "" {
		tags = strings.Split(raw, ",")
	}

	count, err := h.service.PreviewAudience(r.Context(), &domain.AudiencePreviewRequest{
		TenantID: middleware.TenantID(r.Context()),
		Channel:  domain.Channel(query.Get("channel")),
		Tags:     tags,
	})
	if err != nil {
		writeServiceError(w, h.logger, "preview audience", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"count": count})
}

func (h *ContactHandler) handleActivity(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}

	query := r.URL.Query()
	contactID := query.Get("contact_id")
	if contactID == "" {
		WriteJSONError(w, (&MissingParameterError{Param: "contact_id"}).Error(), http.StatusBadRequest)
		return
	}
	limit, err := parseIntParam(query.Get("limit"), 50)
	if err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	events, err := h.service.ListActivity(r.Context(), middleware.TenantID(r.Context()), contactID, limit)
	if err != nil {
		writeServiceError(w, h.logger, "list activity", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}
