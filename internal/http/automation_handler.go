package http

import (
	"context"
	"net/http"

	"github.com/localboost/localboost/internal/domain"
	"github.com/localboost/localboost/internal/http/middleware"
	"github.com/localboost/localboost/pkg/logger"
)

// SequenceManager is the automation API used by the dashboard
type SequenceManager interface {
	CreateSequence(ctx context.Context, req *domain.UpsertSequenceRequest) (*domain.AutomationSequence, error)
	ReplaceSequence(ctx context.Context, req *domain.UpsertSequenceRequest) (*domain.AutomationSequence, error)
	GetSequence(ctx context.Context, tenantID, id string) (*domain.AutomationSequence, error)
	ListSequences(ctx context.Context, tenantID string) ([]*domain.AutomationSequence, error)
	SetActive(ctx context.Context, tenantID, id string, active bool) error
	ListContactProgress(ctx context.Context, tenantID, contactID string) ([]*domain.AutomationContactProgress, error)
}

// AutomationHandler handles HTTP requests for automation sequences
type AutomationHandler struct {
	service SequenceManager
	logger  logger.Logger
}

// NewAutomationHandler creates a new AutomationHandler
func NewAutomationHandler(service SequenceManager, logger logger.Logger) *AutomationHandler {
	return &AutomationHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the automation routes on the given mux
func (h *AutomationHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/api/automations.create", middleware.RequireTenant(http.HandlerFunc(h.handleCreate)))
	mux.Handle("/api/automations.update", middleware.RequireTenant(http.HandlerFunc(h.handleUpdate)))
	mux.Handle("/api/automations.get", middleware.RequireTenant(http.HandlerFunc(h.handleGet)))
	mux.Handle("/api/automations.list", middleware.RequireTenant(http.HandlerFunc(h.handleList)))
	mux.Handle("/api/automations.toggle", middleware.RequireTenant(http.HandlerFunc(h.handleToggle)))
	mux.Handle("/api/automations.progress", middleware.RequireTenant(http.HandlerFunc(h.handleProgress)))
}

func (h *AutomationHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}

	var req domain.UpsertSequenceRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.TenantID = middleware.TenantID(r.Context())

	sequence, err := h.service.CreateSequence(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.logger, "create automation", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"automation": sequence})
}

// handleUpdate replaces the whole sequence, steps included
func (h *AutomationHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}

	var req domain.UpsertSequenceRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		WriteJSONError(w, (&MissingParameterError{Param: "id"}).Error(), http.StatusBadRequest)
		return
	}
	req.TenantID = middleware.TenantID(r.Context())

	sequence, err := h.service.ReplaceSequence(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.logger, "update automation", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"automation": sequence})
}

func (h *AutomationHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		WriteJSONError(w, (&MissingParameterError{Param: "id"}).Error(), http.StatusBadRequest)
		return
	}

	sequence, err := h.service.GetSequence(r.Context(), middleware.TenantID(r.Context()), id)
	if err != nil {
		writeServiceError(w, h.logger, "get automation", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"automation": sequence})
}

func (h *AutomationHandler) handleList(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}

	sequences, err := h.service.ListSequences(r.Context(), middleware.TenantID(r.Context()))
	if err != nil {
		writeServiceError(w, h.logger, "list automations", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"automations": sequences})
}

func (h *AutomationHandler) handleToggle(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}

	var req struct {
		ID     string `json:"id"`
		Active bool   `json:"active"`
	}
	if err := decodeJSON(r, &req); err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		WriteJSONError(w, (&MissingParameterError{Param: "id"}).Error(), http.StatusBadRequest)
		return
	}

	if err := h.service.SetActive(r.Context(), middleware.TenantID(r.Context()), req.ID, req.Active); err != nil {
		writeServiceError(w, h.logger, "toggle automation", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "active": req.Active})
}

func (h *AutomationHandler) handleProgress(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}

	contactID := r.URL.Query().Get("contact_id")
	if contactID == "" {
		WriteJSONError(w, (&MissingParameterError{Param: "contact_id"}).Error(), http.StatusBadRequest)
		return
	}

	progress, err := h.service.ListContactProgress(r.Context(), middleware.TenantID(r.Context()), contactID)
	if err != nil {
		writeServiceError(w, h.logger, "list automation progress", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"progress": progress})
}
