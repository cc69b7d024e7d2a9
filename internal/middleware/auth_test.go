package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/assetgate/assetgate/internal/auth"
	"github.com/assetgate/assetgate/internal/model"
)

// stubRotator records the presented refresh credential and returns a
// canned rotation result.
type stubRotator struct {
	identity   *model.Identity
	access     string
	err        error
	gotRefresh string
}

func (s *stubRotator) Rotate(_ context.Context, rawRefresh string) (*model.Identity, string, error) {
	s.gotRefresh = rawRefresh
	if s.err != nil {
		return nil, "", s.err
	}
	return s.identity, s.access, nil
}

func newAuthMiddleware(t *testing.T, issuer *auth.TokenIssuer) func(http.Handler) http.Handler {
	t.Helper()
	return newAuthMiddlewareWithRotator(t, issuer, nil)
}

func newAuthMiddlewareWithRotator(t *testing.T, issuer *auth.TokenIssuer, rotator Rotator) func(http.Handler) http.Handler {
	t.Helper()
	return Auth(AuthConfig{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		Tokens:         issuer,
		Auth:           rotator,
		AccessTokenTTL: 2 * time.Minute,
	})
}

func passthroughHandler(t *testing.T, called *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		id := auth.IdentityFromContext(r.Context())
		if id == nil {
			t.Error("identity missing from request context")
			return
		}
		if id.UserID == "" {
			t.Error("identity has no user id")
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_ValidAccessTokenHeader(t *testing.T) {
	issuer := auth.NewTokenIssuer("a-secret", "r-secret", 2*time.Minute, time.Hour)
	token, err := issuer.MintAccess(model.Identity{
		UserID:   "user-1",
		Username: "alice",
		Role:     model.RoleUser,
		Status:   model.UserStatusActive,
	})
	if err != nil {
		t.Fatalf("MintAccess failed: %v", err)
	}

	called := false
	h := newAuthMiddleware(t, issuer)(passthroughHandler(t, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/downloads", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if !called {
		t.Fatal("handler not reached with valid access token")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	// A valid access token never triggers renewal.
	if rec.Header().Get(AccessTokenHeader) != "" {
		t.Error("unexpected renewed access token header")
	}
}

func TestAuth_ValidAccessTokenCookie(t *testing.T) {
	issuer := auth.NewTokenIssuer("a-secret", "r-secret", 2*time.Minute, time.Hour)
	token, err := issuer.MintAccess(model.Identity{
		UserID: "user-1",
		Role:   model.RoleUser,
		Status: model.UserStatusActive,
	})
	if err != nil {
		t.Fatalf("MintAccess failed: %v", err)
	}

	called := false
	h := newAuthMiddleware(t, issuer)(passthroughHandler(t, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/downloads", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: token})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if !called {
		t.Fatal("handler not reached with valid access cookie")
	}
}

func TestAuth_MissingCredentials(t *testing.T) {
	issuer := auth.NewTokenIssuer("a-secret", "r-secret", 2*time.Minute, time.Hour)

	called := false
	h := newAuthMiddleware(t, issuer)(passthroughHandler(t, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/downloads", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if called {
		t.Error("handler reached without credentials")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuth_InvalidAccessNoRefresh(t *testing.T) {
	issuer := auth.NewTokenIssuer("a-secret", "r-secret", 2*time.Minute, time.Hour)

	called := false
	h := newAuthMiddleware(t, issuer)(passthroughHandler(t, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/downloads", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if called {
		t.Error("handler reached with garbage access token and no refresh")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuth_ExpiredAccessRenewsFromRefresh(t *testing.T) {
	// Expired the moment it is minted.
	expiredIssuer := auth.NewTokenIssuer("a-secret", "r-secret", -time.Minute, time.Hour)
	expired, err := expiredIssuer.MintAccess(model.Identity{
		UserID: "user-1",
		Role:   model.RoleUser,
		Status: model.UserStatusActive,
	})
	if err != nil {
		t.Fatalf("MintAccess failed: %v", err)
	}

	issuer := auth.NewTokenIssuer("a-secret", "r-secret", 2*time.Minute, time.Hour)
	rotator := &stubRotator{
		identity: &model.Identity{
			UserID:   "user-1",
			Username: "alice",
			Role:     model.RoleUser,
			Status:   model.UserStatusActive,
		},
		access: "renewed-access",
	}

	called := false
	h := newAuthMiddlewareWithRotator(t, issuer, rotator)(passthroughHandler(t, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/downloads", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: expired})
	req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: "stored-refresh"})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if !called {
		t.Fatal("handler not reached after renewal")
	}
	if rotator.gotRefresh != "stored-refresh" {
		t.Errorf("rotator saw refresh %q, want the cookie value", rotator.gotRefresh)
	}
	if got := rec.Header().Get(AccessTokenHeader); got != "renewed-access" {
		t.Errorf("%s = %q, want the renewed token", AccessTokenHeader, got)
	}

	var renewedCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == AccessCookieName {
			renewedCookie = c
		}
	}
	if renewedCookie == nil {
		t.Fatal("renewed access cookie not set")
	}
	if renewedCookie.Value != "renewed-access" {
		t.Errorf("cookie value = %q, want the renewed token", renewedCookie.Value)
	}
	if !renewedCookie.HttpOnly || renewedCookie.SameSite != http.SameSiteStrictMode {
		t.Error("renewed cookie must be HttpOnly and SameSite=Strict")
	}
}

func TestAuth_RefreshOnlyRenews(t *testing.T) {
	issuer := auth.NewTokenIssuer("a-secret", "r-secret", 2*time.Minute, time.Hour)
	rotator := &stubRotator{
		identity: &model.Identity{
			UserID: "user-1",
			Role:   model.RoleUser,
			Status: model.UserStatusActive,
		},
		access: "renewed-access",
	}

	called := false
	h := newAuthMiddlewareWithRotator(t, issuer, rotator)(passthroughHandler(t, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/downloads", nil)
	req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: "stored-refresh"})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if !called {
		t.Fatal("handler not reached with refresh-only request")
	}
	if rec.Header().Get(AccessTokenHeader) != "renewed-access" {
		t.Error("renewed access token header missing")
	}
}

func TestAuth_RejectedRefreshIssuesNoToken(t *testing.T) {
	issuer := auth.NewTokenIssuer("a-secret", "r-secret", 2*time.Minute, time.Hour)
	rotator := &stubRotator{err: errors.New("invalid credentials")}

	called := false
	h := newAuthMiddlewareWithRotator(t, issuer, rotator)(passthroughHandler(t, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/downloads", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: "mismatched-refresh"})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if called {
		t.Error("handler reached with a rejected refresh credential")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if rec.Header().Get(AccessTokenHeader) != "" {
		t.Error("no token may be issued on a rejected refresh")
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Errorf("no cookies may be set on a rejected refresh, got %d", len(rec.Result().Cookies()))
	}
}

func TestAuth_WrongSecretAccessToken(t *testing.T) {
	issuer := auth.NewTokenIssuer("a-secret", "r-secret", 2*time.Minute, time.Hour)
	forger := auth.NewTokenIssuer("attacker", "attacker", 2*time.Minute, time.Hour)

	forged, err := forger.MintAccess(model.Identity{
		UserID: "user-1",
		Role:   model.RoleSuperadmin,
		Status: model.UserStatusActive,
	})
	if err != nil {
		t.Fatalf("MintAccess failed: %v", err)
	}

	called := false
	h := newAuthMiddleware(t, issuer)(passthroughHandler(t, &called))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if called {
		t.Error("handler reached with a forged access token")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
