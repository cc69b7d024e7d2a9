//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/assetgate/assetgate/internal/model"
	"github.com/assetgate/assetgate/internal/testutil"
)

func seedNotification(ctx context.Context, t *testing.T, repo *Repository, userID, content string) *model.Notification {
	t.Helper()
	now := time.Now().UTC()
	n := &model.Notification{
		ID:        model.NewID(),
		UserID:    userID,
		Type:      "system",
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.CreateNotification(ctx, n); err != nil {
		t.Fatalf("CreateNotification failed: %v", err)
	}
	return n
}

func TestIntegrationNotificationRepository_ListIsOwnerScoped(t *testing.T) {
	ctx, repo := newTestEnv(t)

	alice := seedUser(ctx, t, repo, "alice")
	bob := seedUser(ctx, t, repo, "bob")

	seedNotification(ctx, t, repo, alice.ID, "first")
	newest := seedNotification(ctx, t, repo, alice.ID, "second")
	seedNotification(ctx, t, repo, bob.ID, "other")

	notifications, total, err := repo.ListNotificationsForUser(ctx, alice.ID, Page{Number: 1, PerPage: 10})
	if err != nil {
		t.Fatalf("ListNotificationsForUser failed: %v", err)
	}
	if total != 2 || len(notifications) != 2 {
		t.Fatalf("total/len = %d/%d, want 2/2", total, len(notifications))
	}
	if notifications[0].ID != newest.ID {
		t.Errorf("expected newest first, got %q", notifications[0].ID)
	}
}

func TestIntegrationNotificationRepository_MarkRead(t *testing.T) {
	ctx, repo := newTestEnv(t)

	alice := seedUser(ctx, t, repo, "alice")
	bob := seedUser(ctx, t, repo, "bob")
	n := seedNotification(ctx, t, repo, alice.ID, "mirror ready")

	marked, err := repo.MarkNotificationRead(ctx, n.ID, alice.ID)
	if err != nil {
		t.Fatalf("MarkNotificationRead failed: %v", err)
	}
	if !marked.Read {
		t.Error("notification should be read")
	}

	// Another user cannot touch it.
	if _, err := repo.MarkNotificationRead(ctx, n.ID, bob.ID); !errors.Is(err, ErrNotificationNotFound) {
		t.Errorf("expected ErrNotificationNotFound for bob, got %v", err)
	}

	// Marking again is idempotent.
	again, err := repo.MarkNotificationRead(ctx, n.ID, alice.ID)
	if err != nil {
		t.Fatalf("second MarkNotificationRead failed: %v", err)
	}
	if !again.Read {
		t.Error("notification should stay read")
	}
}

func TestIntegrationNotificationRepository_MarkReadUnknownID(t *testing.T) {
	ctx, repo := newTestEnv(t)

	alice := seedUser(ctx, t, repo, "alice")

	if _, err := repo.MarkNotificationRead(ctx, testutil.UniqueID("notif"), alice.ID); !errors.Is(err, ErrNotificationNotFound) {
		t.Errorf("expected ErrNotificationNotFound, got %v", err)
	}
}
