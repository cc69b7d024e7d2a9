package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/assetgate/assetgate/internal/auth"
	"github.com/assetgate/assetgate/internal/model"
)

// Cookie names carrying the two bearer credentials.
const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

// AccessTokenHeader is the response header carrying a renewed access token.
const AccessTokenHeader = "X-Access-Token"

// Rotator exchanges a presented refresh credential for the current
// identity and a fresh access token.
type Rotator interface {
	Rotate(ctx context.Context, rawRefresh string) (*model.Identity, string, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger *slog.Logger
	Tokens *auth.TokenIssuer
	Auth   Rotator

	// AccessTokenTTL bounds the renewed access cookie's lifetime.
	AccessTokenTTL time.Duration
	// SecureCookies marks issued cookies Secure (off in development).
	SecureCookies bool
}

// Auth returns a middleware that authenticates requests with the
// access/refresh token pair. Per request:
//
//   - Both credentials absent: reject.
//   - Access verifies: proceed with its embedded identity; the refresh
//     credential is not consulted.
//   - Access invalid or absent, refresh verifies and matches the stored
//     value: mint a new access token bound to the current user row, emit
//     it as a cookie and the X-Access-Token header, proceed.
//   - Anything else: reject.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access := extractAccessToken(r)
			refresh := extractRefreshToken(r)

			if access == "" && refresh == "" {
				logAuthFailure(cfg.Logger, r, "missing_credentials")
				writeAuthError(w)
				return
			}

			if access != "" {
				identity, err := cfg.Tokens.VerifyAccess(access)
				if err == nil {
					ctx := auth.ContextWithIdentity(r.Context(), identity)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
				// Fall through to the renewal path
			}

			if refresh == "" {
				logAuthFailure(cfg.Logger, r, "access_invalid_no_refresh")
				writeAuthError(w)
				return
			}

			identity, newAccess, err := cfg.Auth.Rotate(r.Context(), refresh)
			if err != nil {
				logAuthFailure(cfg.Logger, r, "refresh_rejected")
				writeAuthError(w)
				return
			}

			// Emit the renewed credential alongside the normal response.
			http.SetCookie(w, &http.Cookie{
				Name:     AccessCookieName,
				Value:    newAccess,
				Path:     "/",
				MaxAge:   int(cfg.AccessTokenTTL.Seconds()),
				HttpOnly: true,
				Secure:   cfg.SecureCookies,
				SameSite: http.SameSiteStrictMode,
			})
			w.Header().Set(AccessTokenHeader, newAccess)

			cfg.Logger.Info("access token renewed",
				slog.String("user_id", identity.UserID),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			ctx := auth.ContextWithIdentity(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractAccessToken reads the access credential from the
// Authorization header or the access cookie.
func extractAccessToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	if c, err := r.Cookie(AccessCookieName); err == nil {
		return c.Value
	}
	return ""
}

// extractRefreshToken reads the refresh credential from its cookie.
func extractRefreshToken(r *http.Request) string {
	if c, err := r.Cookie(RefreshCookieName); err == nil {
		return c.Value
	}
	return ""
}

func logAuthFailure(logger *slog.Logger, r *http.Request, reason string) {
	logger.Warn("authentication failed",
		slog.String("reason", reason),
		slog.String("ip", r.RemoteAddr),
		slog.String("endpoint", r.Method+" "+r.URL.Path),
		slog.String("request_id", GetRequestID(r.Context())),
	)
}

// writeAuthError writes a 401 Unauthorized response.
// Uses the same message for all auth failures to prevent enumeration.
func writeAuthError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"invalid or missing credentials","code":"unauthorized"}`))
}
