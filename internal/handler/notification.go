package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/assetgate/assetgate/internal/auth"
	"github.com/assetgate/assetgate/internal/handler/dto"
	"github.com/assetgate/assetgate/internal/service"
)

// NotificationHandler handles notification intake and reads.
type NotificationHandler struct {
	svc    *service.NotificationService
	logger *slog.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(svc *service.NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, logger: logger}
}

// Create handles POST /api/v1/system/notifications. Sits behind the
// system basic-auth gate, not user auth.
func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	n, err := h.svc.CreateNotification(r.Context(), req.UserID, req.Type, req.Content)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToNotificationResponse(n))
}

// List handles GET /api/v1/notifications. Callers see only their own.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustIdentityFromContext(r.Context())

	page := queryInt(r, "page")
	perPage := queryInt(r, "per_page")

	notifications, total, err := h.svc.ListNotifications(r.Context(), identity.UserID, page, perPage)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToNotificationListResponse(
		notifications, normalizedPage(page), normalizedPerPage(perPage), total))
}

// MarkRead handles PATCH /api/v1/notifications/{id}/read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustIdentityFromContext(r.Context())

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing_id", "notification ID is required")
		return
	}

	n, err := h.svc.MarkRead(r.Context(), id, identity.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToNotificationResponse(n))
}
