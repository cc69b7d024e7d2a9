//go:build integration

package service

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/assetgate/assetgate/internal/model"
	"github.com/assetgate/assetgate/internal/testutil"
)

func TestIntegrationListDownloads_StatusFilter(t *testing.T) {
	ctx, repo := newIntegrationEnv(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewDownloadService(repo, logger)

	user := testutil.NewTestUser(t, "alice")
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	waiting := testutil.NewTestDownload(t, user.ID, "https://www.freepik.com/a_1.htm")
	if err := repo.CreateDownload(ctx, waiting); err != nil {
		t.Fatalf("CreateDownload failed: %v", err)
	}
	done := testutil.NewTestDownload(t, user.ID, "https://www.freepik.com/b_2.htm")
	if err := repo.CreateDownload(ctx, done); err != nil {
		t.Fatalf("CreateDownload failed: %v", err)
	}
	done.Status = model.DownloadStatusCompleted
	done.ResultLink = "https://drive.google.com/uc?id=obj-1"
	if err := repo.UpdateDownload(ctx, done); err != nil {
		t.Fatalf("UpdateDownload failed: %v", err)
	}

	downloads, total, err := svc.ListDownloads(ctx, ListDownloadsInput{
		UserID: user.ID,
		Status: string(model.DownloadStatusCompleted),
	})
	if err != nil {
		t.Fatalf("ListDownloads failed: %v", err)
	}
	if total != 1 || len(downloads) != 1 {
		t.Fatalf("total/len = %d/%d, want 1/1", total, len(downloads))
	}
	if downloads[0].ID != done.ID {
		t.Errorf("got download %q, want the completed one %q", downloads[0].ID, done.ID)
	}

	// Unknown status values never reach the store.
	if _, _, err := svc.ListDownloads(ctx, ListDownloadsInput{Status: "pending"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown status, got %v", err)
	}
}
