//go:build integration

package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/assetgate/assetgate/internal/auth"
	"github.com/assetgate/assetgate/internal/model"
	"github.com/assetgate/assetgate/internal/repository"
	"github.com/assetgate/assetgate/internal/testutil"
)

// newIntegrationEnv connects to the test database, serializes against
// other DB tests and rebuilds the schema.
func newIntegrationEnv(t *testing.T) (context.Context, *repository.Repository) {
	t.Helper()

	databaseURL := testutil.RequireEnv(t, "DATABASE_URL")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	t.Cleanup(cancel)

	repo, err := repository.New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("connect database: %v", err)
	}
	t.Cleanup(repo.Close)

	unlock, err := testutil.AcquireDBLock(ctx, repo.Pool())
	if err != nil {
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		if err := unlock(); err != nil {
			t.Errorf("release db lock: %v", err)
		}
	})

	if err := testutil.ResetAllSchemas(ctx, repo.Pool()); err != nil {
		t.Fatalf("reset schemas: %v", err)
	}

	return ctx, repo
}

func newAuthService(repo *repository.Repository, issuer *auth.TokenIssuer) *AuthService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuthService(repo, issuer, nil, logger)
}

func TestIntegrationRotate_IssuesTokenFromCurrentUserRow(t *testing.T) {
	ctx, repo := newIntegrationEnv(t)

	issuer := auth.NewTokenIssuer("a-secret", "r-secret", 2*time.Minute, time.Hour)
	svc := newAuthService(repo, issuer)

	user := testutil.NewTestUser(t, "alice")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	refresh, err := issuer.MintRefresh(user.ID)
	if err != nil {
		t.Fatalf("MintRefresh failed: %v", err)
	}
	if err := repo.SetRefreshToken(ctx, user.ID, refresh); err != nil {
		t.Fatalf("SetRefreshToken failed: %v", err)
	}

	identity, access, err := svc.Rotate(ctx, refresh)
	if err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	if identity.UserID != user.ID || identity.Role != model.RoleUser {
		t.Errorf("identity = %+v, want alice as user", identity)
	}
	if access == "" {
		t.Fatal("no access token issued")
	}

	// The row changes between rotations; the next token must carry the
	// current role, not anything remembered from earlier claims.
	user.Role = model.RoleSuperadmin
	if err := repo.UpdateUser(ctx, user); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}

	identity, access, err = svc.Rotate(ctx, refresh)
	if err != nil {
		t.Fatalf("second Rotate failed: %v", err)
	}
	if identity.Role != model.RoleSuperadmin {
		t.Errorf("identity role = %q, want superadmin after row update", identity.Role)
	}

	minted, err := issuer.VerifyAccess(access)
	if err != nil {
		t.Fatalf("VerifyAccess on rotated token failed: %v", err)
	}
	if minted.Role != model.RoleSuperadmin {
		t.Errorf("rotated token role = %q, want superadmin", minted.Role)
	}
}

func TestIntegrationRotate_RejectsMismatchedRefresh(t *testing.T) {
	ctx, repo := newIntegrationEnv(t)

	issuer := auth.NewTokenIssuer("a-secret", "r-secret", 2*time.Minute, time.Hour)
	svc := newAuthService(repo, issuer)

	user := testutil.NewTestUser(t, "alice")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	// Verifies fine, but a later session displaced it in storage.
	stale, err := issuer.MintRefresh(user.ID)
	if err != nil {
		t.Fatalf("MintRefresh failed: %v", err)
	}
	if err := repo.SetRefreshToken(ctx, user.ID, "displaced-by-newer-session"); err != nil {
		t.Fatalf("SetRefreshToken failed: %v", err)
	}

	identity, access, err := svc.Rotate(ctx, stale)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if identity != nil || access != "" {
		t.Error("no identity or token may be issued for a mismatched refresh")
	}
}

func TestIntegrationRotate_RejectsClearedCredential(t *testing.T) {
	ctx, repo := newIntegrationEnv(t)

	issuer := auth.NewTokenIssuer("a-secret", "r-secret", 2*time.Minute, time.Hour)
	svc := newAuthService(repo, issuer)

	user := testutil.NewTestUser(t, "alice")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	refresh, err := issuer.MintRefresh(user.ID)
	if err != nil {
		t.Fatalf("MintRefresh failed: %v", err)
	}
	if err := repo.SetRefreshToken(ctx, user.ID, refresh); err != nil {
		t.Fatalf("SetRefreshToken failed: %v", err)
	}

	// Logout clears the stored value; the old credential dies with it.
	if err := svc.Logout(ctx, user.ID); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}

	if _, _, err := svc.Rotate(ctx, refresh); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials after logout, got %v", err)
	}
}

func TestIntegrationRotate_RejectsUnknownUser(t *testing.T) {
	ctx, repo := newIntegrationEnv(t)

	issuer := auth.NewTokenIssuer("a-secret", "r-secret", 2*time.Minute, time.Hour)
	svc := newAuthService(repo, issuer)

	refresh, err := issuer.MintRefresh("no-such-user")
	if err != nil {
		t.Fatalf("MintRefresh failed: %v", err)
	}

	if _, _, err := svc.Rotate(ctx, refresh); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
