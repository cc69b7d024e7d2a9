package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/assetgate/assetgate/internal/auth"
	"github.com/assetgate/assetgate/internal/handler/dto"
	"github.com/assetgate/assetgate/internal/middleware"
	"github.com/assetgate/assetgate/internal/service"
)

// AuthHandler handles login, logout and session checks.
type AuthHandler struct {
	svc           *service.AuthService
	accessTTL     time.Duration
	refreshTTL    time.Duration
	secureCookies bool
	logger        *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService, accessTTL, refreshTTL time.Duration, secureCookies bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:           svc,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		secureCookies: secureCookies,
		logger:        logger,
	}
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusUnprocessableEntity, "invalid_input", "username and password are required")
		return
	}

	out, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.setCookie(w, middleware.AccessCookieName, out.AccessToken, h.accessTTL)
	h.setCookie(w, middleware.RefreshCookieName, out.RefreshToken, h.refreshTTL)

	writeJSON(w, http.StatusOK, dto.LoginResponse{
		User:        dto.ToUserResponse(out.User),
		AccessToken: out.AccessToken,
	})
}

// Check handles GET /api/v1/auth/check. Returns the caller's current
// user row so clients can refresh role and status.
func (h *AuthHandler) Check(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustIdentityFromContext(r.Context())

	user, err := h.svc.Check(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToUserResponse(user))
}

// Logout handles POST /api/v1/auth/logout. Clears the stored refresh
// credential and expires both cookies.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity := auth.MustIdentityFromContext(r.Context())

	if err := h.svc.Logout(r.Context(), identity.UserID); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.clearCookie(w, middleware.AccessCookieName)
	h.clearCookie(w, middleware.RefreshCookieName)

	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}
