package handler

import (
	"log/slog"
	"net/http"

	"github.com/assetgate/assetgate/internal/archive"
	"github.com/assetgate/assetgate/internal/handler/dto"
)

// ArchiveHandler exposes the mirror storage inspection surface.
type ArchiveHandler struct {
	archive *archive.Service
	logger  *slog.Logger
}

// NewArchiveHandler creates a new ArchiveHandler.
func NewArchiveHandler(svc *archive.Service, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{archive: svc, logger: logger}
}

// Search handles GET /api/v1/archive/files?q=term (superadmin).
func (h *ArchiveHandler) Search(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		writeError(w, http.StatusBadRequest, "missing_query", "search term is required")
		return
	}

	files, err := h.archive.Search(r.Context(), term)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToCachedFileListResponse(files))
}

// Quota handles GET /api/v1/archive/quota (superadmin).
func (h *ArchiveHandler) Quota(w http.ResponseWriter, r *http.Request) {
	quota, err := h.archive.Quota(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToStorageQuotaResponse(quota))
}
