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

// DownloadHandler handles download intake, fulfillment and listing.
type DownloadHandler struct {
	fulfillment *service.FulfillmentService
	downloads   *service.DownloadService
	logger      *slog.Logger
}

// NewDownloadHandler creates a new DownloadHandler.
func NewDownloadHandler(fulfillment *service.FulfillmentService, downloads *service.DownloadService, logger *slog.Logger) *DownloadHandler {
	return &DownloadHandler{
		fulfillment: fulfillment,
		downloads:   downloads,
		logger:      logger,
	}
}

// Submit handles POST /api/v1/downloads. Runs the full fulfillment
// pipeline and returns the resulting request record.
func (h *DownloadHandler) Submit(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustIdentityFromContext(r.Context())

	var req dto.SubmitDownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	download, err := h.fulfillment.Fulfill(r.Context(), identity.UserID, req.URL)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.ToDownloadResponse(download))
}

// Fulfill handles POST /api/v1/fulfillments. Same pipeline as Submit
// with a result-only response shape.
func (h *DownloadHandler) Fulfill(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustIdentityFromContext(r.Context())

	var req dto.SubmitDownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	download, err := h.fulfillment.Fulfill(r.Context(), identity.UserID, req.URL)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.FulfillmentResponse{
		Filename: download.Filename,
		URL:      download.ResultLink,
	})
}

// Get handles GET /api/v1/downloads/{id}.
func (h *DownloadHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustIdentityFromContext(r.Context())

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing_id", "download ID is required")
		return
	}

	download, err := h.downloads.GetDownload(r.Context(), identity, id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToDownloadResponse(download))
}

// List handles GET /api/v1/downloads. Non-admin callers see only
// their own requests.
func (h *DownloadHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustIdentityFromContext(r.Context())
	query := r.URL.Query()

	input := service.ListDownloadsInput{
		UserID:   identity.UserID,
		Filename: query.Get("filename"),
		Status:   query.Get("status"),
		Page:     queryInt(r, "page"),
		PerPage:  queryInt(r, "per_page"),
		Sort:     query.Get("sort"),
	}

	// Superadmins may inspect all users' requests.
	if identity.IsSuperadmin() {
		input.UserID = query.Get("user_id")
	}

	downloads, total, err := h.downloads.ListDownloads(r.Context(), input)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToDownloadListResponse(
		downloads, normalizedPage(input.Page), normalizedPerPage(input.PerPage), total))
}

// Update handles PATCH /api/v1/downloads/{id} (superadmin). This is
// the administrative re-open surface.
func (h *DownloadHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing_id", "download ID is required")
		return
	}

	var req dto.UpdateDownloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}

	download, err := h.downloads.UpdateDownload(r.Context(), service.UpdateDownloadInput{
		ID:         id,
		Filename:   req.Filename,
		Status:     req.Status,
		ResultLink: req.ResultLink,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToDownloadResponse(download))
}

// Delete handles DELETE /api/v1/downloads/{id} (superadmin).
func (h *DownloadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing_id", "download ID is required")
		return
	}

	if err := h.downloads.DeleteDownload(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
