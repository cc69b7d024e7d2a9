//go:build integration

package repository

import (
	"errors"
	"testing"

	"github.com/assetgate/assetgate/internal/model"
	"github.com/assetgate/assetgate/internal/testutil"
)

func TestIntegrationDownloadRepository_CreateAndGet(t *testing.T) {
	ctx, repo := newTestEnv(t)

	alice := seedUser(ctx, t, repo, "alice")
	created := seedWaitingDownload(ctx, t, repo, alice.ID, "https://www.freepik.com/free-vector/sample_123.htm")

	retrieved, err := repo.GetDownloadByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetDownloadByID failed: %v", err)
	}
	if retrieved.UserID != alice.ID {
		t.Errorf("user_id = %q, want %q", retrieved.UserID, alice.ID)
	}
	if retrieved.Status != model.DownloadStatusWaiting {
		t.Errorf("status = %q, want waiting", retrieved.Status)
	}
}

func TestIntegrationDownloadRepository_WaitingSlotIsExclusive(t *testing.T) {
	ctx, repo := newTestEnv(t)

	alice := seedUser(ctx, t, repo, "alice")
	bob := seedUser(ctx, t, repo, "bob")
	url := "https://www.freepik.com/free-vector/sample_123.htm"

	seedWaitingDownload(ctx, t, repo, alice.ID, url)

	// Same user, same URL: the partial unique index rejects the insert.
	dup := testutil.NewTestDownload(t, alice.ID, url)
	if err := repo.CreateDownload(ctx, dup); !errors.Is(err, ErrDownloadExists) {
		t.Errorf("expected ErrDownloadExists, got %v", err)
	}

	// Another user's slot for the same URL is independent.
	if err := repo.CreateDownload(ctx, testutil.NewTestDownload(t, bob.ID, url)); err != nil {
		t.Errorf("CreateDownload for bob failed: %v", err)
	}
}

func TestIntegrationDownloadRepository_CompletedRowFreesSlot(t *testing.T) {
	ctx, repo := newTestEnv(t)

	alice := seedUser(ctx, t, repo, "alice")
	url := "https://www.freepik.com/free-vector/sample_123.htm"

	first := seedWaitingDownload(ctx, t, repo, alice.ID, url)
	first.Status = model.DownloadStatusCompleted
	first.ResultLink = "https://drive.google.com/uc?id=obj-1"
	if err := repo.UpdateDownload(ctx, first); err != nil {
		t.Fatalf("UpdateDownload failed: %v", err)
	}

	if _, err := repo.FindWaitingDownload(ctx, alice.ID, url); !errors.Is(err, ErrDownloadNotFound) {
		t.Fatalf("expected no waiting download after completion, got %v", err)
	}

	// The slot is free for a fresh request.
	if err := repo.CreateDownload(ctx, testutil.NewTestDownload(t, alice.ID, url)); err != nil {
		t.Errorf("CreateDownload after completion failed: %v", err)
	}
}

func TestIntegrationDownloadRepository_DeletedRowFreesSlot(t *testing.T) {
	ctx, repo := newTestEnv(t)

	alice := seedUser(ctx, t, repo, "alice")
	url := "https://www.freepik.com/free-vector/sample_123.htm"

	first := seedWaitingDownload(ctx, t, repo, alice.ID, url)
	if err := repo.DeleteDownload(ctx, first.ID); err != nil {
		t.Fatalf("DeleteDownload failed: %v", err)
	}

	if _, err := repo.GetDownloadByID(ctx, first.ID); !errors.Is(err, ErrDownloadNotFound) {
		t.Errorf("expected ErrDownloadNotFound after delete, got %v", err)
	}
	if err := repo.CreateDownload(ctx, testutil.NewTestDownload(t, alice.ID, url)); err != nil {
		t.Errorf("CreateDownload after delete failed: %v", err)
	}
}

func TestIntegrationDownloadRepository_FindWaiting(t *testing.T) {
	ctx, repo := newTestEnv(t)

	alice := seedUser(ctx, t, repo, "alice")
	url := "https://www.freepik.com/free-vector/sample_123.htm"

	created := seedWaitingDownload(ctx, t, repo, alice.ID, url)

	found, err := repo.FindWaitingDownload(ctx, alice.ID, url)
	if err != nil {
		t.Fatalf("FindWaitingDownload failed: %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("id = %q, want %q", found.ID, created.ID)
	}

	if _, err := repo.FindWaitingDownload(ctx, alice.ID, "https://www.freepik.com/other_9.htm"); !errors.Is(err, ErrDownloadNotFound) {
		t.Errorf("expected ErrDownloadNotFound for other URL, got %v", err)
	}
}

func TestIntegrationDownloadRepository_ListFilters(t *testing.T) {
	ctx, repo := newTestEnv(t)

	alice := seedUser(ctx, t, repo, "alice")
	bob := seedUser(ctx, t, repo, "bob")

	d1 := seedWaitingDownload(ctx, t, repo, alice.ID, "https://www.freepik.com/a_1.htm")
	seedWaitingDownload(ctx, t, repo, alice.ID, "https://www.freepik.com/b_2.htm")
	seedWaitingDownload(ctx, t, repo, bob.ID, "https://www.freepik.com/c_3.htm")

	d1.Status = model.DownloadStatusCompleted
	d1.ResultLink = "https://drive.google.com/uc?id=obj-1"
	if err := repo.UpdateDownload(ctx, d1); err != nil {
		t.Fatalf("UpdateDownload failed: %v", err)
	}

	page := Page{Number: 1, PerPage: 10}

	tests := []struct {
		name      string
		filter    DownloadFilter
		wantTotal int
	}{
		{"all", DownloadFilter{}, 3},
		{"by user", DownloadFilter{UserID: alice.ID}, 2},
		{"by status", DownloadFilter{Status: model.DownloadStatusCompleted}, 1},
		{"user and status", DownloadFilter{UserID: alice.ID, Status: model.DownloadStatusWaiting}, 1},
		{"no match", DownloadFilter{UserID: bob.ID, Status: model.DownloadStatusCompleted}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			downloads, total, err := repo.ListDownloads(ctx, tt.filter, page, "desc")
			if err != nil {
				t.Fatalf("ListDownloads failed: %v", err)
			}
			if total != tt.wantTotal {
				t.Errorf("total = %d, want %d", total, tt.wantTotal)
			}
			if len(downloads) != tt.wantTotal {
				t.Errorf("len = %d, want %d", len(downloads), tt.wantTotal)
			}
		})
	}
}

func TestIntegrationDownloadRepository_ListPagination(t *testing.T) {
	ctx, repo := newTestEnv(t)

	alice := seedUser(ctx, t, repo, "alice")
	for i := 0; i < 3; i++ {
		seedWaitingDownload(ctx, t, repo, alice.ID, testutil.UniqueID("https://www.freepik.com/page"))
	}

	downloads, total, err := repo.ListDownloads(ctx, DownloadFilter{}, Page{Number: 2, PerPage: 2}, "desc")
	if err != nil {
		t.Fatalf("ListDownloads failed: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(downloads) != 1 {
		t.Errorf("second page len = %d, want 1", len(downloads))
	}
}
