package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// NotificationSenderHeader identifies the system component pushing a
// notification through the privileged intake endpoint.
const NotificationSenderHeader = "X-Notification-Sender"

// SystemAuthConfig holds the shared credential for system endpoints.
type SystemAuthConfig struct {
	Logger   *slog.Logger
	Username string
	Password string
}

// SystemAuth returns middleware that protects machine-to-machine
// endpoints with basic auth plus a mandatory sender header.
func SystemAuth(cfg SystemAuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok ||
				subtle.ConstantTimeCompare([]byte(username), []byte(cfg.Username)) != 1 ||
				subtle.ConstantTimeCompare([]byte(password), []byte(cfg.Password)) != 1 {
				cfg.Logger.Warn("system auth failed",
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				w.Header().Set("WWW-Authenticate", `Basic realm="system"`)
				writeAuthError(w)
				return
			}

			if r.Header.Get(NotificationSenderHeader) == "" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"missing sender header","code":"invalid_input"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
