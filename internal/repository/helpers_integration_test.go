//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/assetgate/assetgate/internal/model"
	"github.com/assetgate/assetgate/internal/testutil"
)

// newTestEnv connects to the test database, serializes against other
// DB tests and rebuilds the schema.
func newTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()

	databaseURL := testutil.RequireEnv(t, "DATABASE_URL")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	t.Cleanup(cancel)

	repo, err := New(ctx, databaseURL)
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

// seedUser inserts a user row and returns it.
func seedUser(ctx context.Context, t *testing.T, repo *Repository, username string) *model.User {
	t.Helper()
	user := testutil.NewTestUser(t, username)
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("seed user %q: %v", username, err)
	}
	return user
}

// seedOwnedVoucher inserts a voucher already bound to the user.
func seedOwnedVoucher(ctx context.Context, t *testing.T, repo *Repository, ownerID string, limit int) *model.Voucher {
	t.Helper()
	voucher := testutil.NewTestVoucherOwned(t, testutil.UniqueCode(), limit, ownerID)
	if err := repo.CreateVoucher(ctx, voucher); err != nil {
		t.Fatalf("seed voucher: %v", err)
	}
	return voucher
}

// seedWaitingDownload inserts a waiting download row.
func seedWaitingDownload(ctx context.Context, t *testing.T, repo *Repository, userID, sourceURL string) *model.Download {
	t.Helper()
	download := testutil.NewTestDownload(t, userID, sourceURL)
	if err := repo.CreateDownload(ctx, download); err != nil {
		t.Fatalf("seed download: %v", err)
	}
	return download
}
