package middleware

import (
	"fmt"
	"net/http"

	"github.com/assetgate/assetgate/internal/auth"
)

// RequireActive returns middleware that rejects banned users.
// Must be applied after Auth middleware. Status is evaluated once
// here rather than ad hoc inside every operation.
func RequireActive() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := auth.IdentityFromContext(r.Context())
			if identity == nil {
				writeCapabilityError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}

			if !identity.IsActive() {
				writeCapabilityError(w, http.StatusForbidden, "forbidden", "account is banned")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireSuperadmin returns middleware that restricts a route to
// superadmin callers. Must be applied after Auth middleware.
func RequireSuperadmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := auth.IdentityFromContext(r.Context())
			if identity == nil {
				writeCapabilityError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
				return
			}

			if !identity.IsSuperadmin() {
				writeCapabilityError(w, http.StatusForbidden, "forbidden", "superadmin role required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeCapabilityError writes a capability-related error response.
func writeCapabilityError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(fmt.Sprintf(`{"error":%q,"code":%q}`, message, code)))
}
