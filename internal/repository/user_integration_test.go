//go:build integration

package repository

import (
	"errors"
	"testing"

	"github.com/assetgate/assetgate/internal/model"
	"github.com/assetgate/assetgate/internal/testutil"
)

func TestIntegrationUserRepository_CreateAndGet(t *testing.T) {
	ctx, repo := newTestEnv(t)

	user := seedUser(ctx, t, repo, "alice")

	retrieved, err := repo.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if retrieved.Username != "alice" {
		t.Errorf("Username = %q", retrieved.Username)
	}
	if retrieved.Role != model.RoleUser {
		t.Errorf("Role = %q", retrieved.Role)
	}
	if retrieved.Status != model.UserStatusActive {
		t.Errorf("Status = %q", retrieved.Status)
	}

	byName, err := repo.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername failed: %v", err)
	}
	if byName.ID != user.ID {
		t.Errorf("ID mismatch: %q vs %q", byName.ID, user.ID)
	}
}

func TestIntegrationUserRepository_DuplicateUsername(t *testing.T) {
	ctx, repo := newTestEnv(t)

	seedUser(ctx, t, repo, "alice")

	dup := testutil.NewTestUser(t, "alice")
	dup.Email = "other@example.com"
	if err := repo.CreateUser(ctx, dup); !errors.Is(err, ErrUsernameExists) {
		t.Errorf("expected ErrUsernameExists, got %v", err)
	}
}

func TestIntegrationUserRepository_DuplicateEmail(t *testing.T) {
	ctx, repo := newTestEnv(t)

	first := seedUser(ctx, t, repo, "alice")

	dup := testutil.NewTestUser(t, "bob")
	dup.Email = first.Email
	if err := repo.CreateUser(ctx, dup); !errors.Is(err, ErrEmailExists) {
		t.Errorf("expected ErrEmailExists, got %v", err)
	}
}

func TestIntegrationUserRepository_SetRefreshToken(t *testing.T) {
	ctx, repo := newTestEnv(t)

	user := seedUser(ctx, t, repo, "alice")

	if err := repo.SetRefreshToken(ctx, user.ID, "token-abc"); err != nil {
		t.Fatalf("SetRefreshToken failed: %v", err)
	}

	retrieved, err := repo.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if retrieved.RefreshToken != "token-abc" {
		t.Errorf("RefreshToken = %q", retrieved.RefreshToken)
	}

	// Clearing invalidates the stored session.
	if err := repo.SetRefreshToken(ctx, user.ID, ""); err != nil {
		t.Fatalf("SetRefreshToken (clear) failed: %v", err)
	}
	retrieved, err = repo.GetUserByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if retrieved.RefreshToken != "" {
		t.Errorf("RefreshToken not cleared: %q", retrieved.RefreshToken)
	}
}

func TestIntegrationUserRepository_SoftDeleteReleasesUsername(t *testing.T) {
	ctx, repo := newTestEnv(t)

	user := seedUser(ctx, t, repo, "alice")

	if err := repo.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}

	if _, err := repo.GetUserByID(ctx, user.ID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound after delete, got %v", err)
	}

	// The partial unique index only covers live rows.
	recreated := testutil.NewTestUser(t, "alice")
	if err := repo.CreateUser(ctx, recreated); err != nil {
		t.Errorf("recreating deleted username failed: %v", err)
	}
}
