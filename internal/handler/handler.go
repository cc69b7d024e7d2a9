// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/assetgate/assetgate/internal/archive"
	"github.com/assetgate/assetgate/internal/handler/dto"
	"github.com/assetgate/assetgate/internal/resolver"
	"github.com/assetgate/assetgate/internal/service"
)

// NotFound handles 404 responses.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not_found", "resource not found")
}

// MethodNotAllowed handles 405 responses.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		_ = err
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// writeServiceError maps shared service errors to HTTP responses.
// Handler-specific cases are handled before calling this.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var dup *service.DuplicateError
	switch {
	case errors.As(err, &dup):
		writeJSON(w, http.StatusNotAcceptable, dto.ErrorResponse{
			Error:  "an active request for this URL already exists",
			Code:   "duplicate_request",
			Status: string(dup.Existing.Status),
		})
	case errors.Is(err, service.ErrDuplicate):
		writeError(w, http.StatusNotAcceptable, "duplicate_request", "an active request for this URL already exists")
	case errors.Is(err, service.ErrInvalidInput):
		writeError(w, http.StatusUnprocessableEntity, "invalid_input", "invalid input")
	case errors.Is(err, service.ErrQuotaExhausted):
		writeError(w, http.StatusForbidden, "quota_exhausted", "no usable voucher available")
	case errors.Is(err, service.ErrAlreadyRedeemed):
		writeError(w, http.StatusConflict, "already_redeemed", "voucher has already been redeemed")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
	case errors.Is(err, service.ErrUserBanned):
		writeError(w, http.StatusForbidden, "forbidden", "account is banned")
	case errors.Is(err, service.ErrUsernameExists):
		writeError(w, http.StatusConflict, "username_taken", "username already exists")
	case errors.Is(err, service.ErrEmailExists):
		writeError(w, http.StatusConflict, "email_taken", "email already exists")
	case errors.Is(err, resolver.ErrUnsupportedURL):
		writeError(w, http.StatusUnprocessableEntity, "invalid_input", "unsupported marketplace URL")
	case errors.Is(err, resolver.ErrResolutionFailed):
		writeError(w, http.StatusBadGateway, "upstream_failure", "marketplace resolution failed")
	case errors.Is(err, archive.ErrStorageUnavailable):
		writeError(w, http.StatusBadGateway, "upstream_failure", "archive storage unavailable")
	default:
		logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "an internal error occurred")
	}
}

// queryInt parses an integer query parameter, returning 0 when absent
// or malformed.
func queryInt(r *http.Request, key string) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
