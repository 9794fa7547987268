package http

import (
	"context"
	"net/http"

	"github.com/localboost/localboost/internal/domain"
	"github.com/localboost/localboost/internal/http/middleware"
	"github.com/localboost/localboost/pkg/logger"
)

// BroadcastComposer is the broadcast API used by the dashboard
type BroadcastComposer interface {
	CreateBroadcast(ctx context.Context, req *domain.CreateBroadcastRequest) (*domain.Broadcast, error)
	GetBroadcast(ctx context.Context, tenantID, id string) (*domain.Broadcast, error)
	ListBroadcasts(ctx context.Context, filter domain.ListBroadcastsFilter) ([]*domain.Broadcast, int, error)
	ScheduleBroadcast(ctx context.Context, req *domain.ScheduleBroadcastRequest) (*domain.Broadcast, error)
	CancelBroadcast(ctx context.Context, tenantID, id string) (*domain.Broadcast, error)
}

type BroadcastHandler struct {
	service BroadcastComposer
	logger  logger.Logger
}

func NewBroadcastHandler(service BroadcastComposer, logger logger.Logger) *BroadcastHandler {
	return &BroadcastHandler{
		service: service,
		logger:  logger,
	}
}

func (h *BroadcastHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/api/broadcasts.list", middleware.RequireTenant(http.HandlerFunc(h.handleList)))
	mux.Handle("/api/broadcasts.get", middleware.RequireTenant(http.HandlerFunc(h.handleGet)))
	mux.Handle("/api/broadcasts.create", middleware.RequireTenant(http.HandlerFunc(h.handleCreate)))
	mux.Handle("/api/broadcasts.schedule", middleware.RequireTenant(http.HandlerFunc(h.handleSchedule)))
	mux.Handle("/api/broadcasts.cancel", middleware.RequireTenant(http.HandlerFunc(h.handleCancel)))
}

func (h *BroadcastHandler) handleList(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}

	query := r.URL.Query()
	limit, err := parseIntParam(query.Get("limit"), 50)
	if err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	offset, err := parseIntParam(query.Get("offset"), 0)
	if err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	broadcasts, total, err := h.service.ListBroadcasts(r.Context(), domain.ListBroadcastsFilter{
		TenantID: middleware.TenantID(r.Context()),
		Status:   domain.BroadcastStatus(query.Get("status")),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		writeServiceError(w, h.logger, "list broadcasts", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"broadcasts":  broadcasts,
		"total_count": total,
	})
}

func (h *BroadcastHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		WriteJSONError(w, (&MissingParameterError{Param: "id"}).Error(), http.StatusBadRequest)
		return
	}

	b, err := h.service.GetBroadcast(r.Context(), middleware.TenantID(r.Context()), id)
	if err != nil {
		writeServiceError(w, h.logger, "get broadcast", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"broadcast": b})
}

func (h *BroadcastHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}

	var req domain.CreateBroadcastRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.TenantID = middleware.TenantID(r.Context())

	b, err := h.service.CreateBroadcast(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.logger, "create broadcast", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"broadcast": b})
}

func (h *BroadcastHandler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}

	var req domain.ScheduleBroadcastRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	req.TenantID = middleware.TenantID(r.Context())

	b, err := h.service.ScheduleBroadcast(r.Context(), &req)
	if err != nil {
		writeServiceError(w, h.logger, "schedule broadcast", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"broadcast": b})
}

func (h *BroadcastHandler) handleCancel(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		WriteJSONError(w, (&MissingParameterError{Param: "id"}).Error(), http.StatusBadRequest)
		return
	}

	b, err := h.service.CancelBroadcast(r.Context(), middleware.TenantID(r.Context()), req.ID)
	if err != nil {
		writeServiceError(w, h.logger, "cancel broadcast", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"broadcast": b})
}
