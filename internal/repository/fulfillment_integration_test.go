//go:build integration

package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/assetgate/assetgate/internal/model"
	"github.com/assetgate/assetgate/internal/testutil"
)

func TestIntegrationCompleteFulfillment_ConsumesOldestVoucher(t *testing.T) {
	ctx, repo := newTestEnv(t)

	alice := seedUser(ctx, t, repo, "alice")
	older := seedOwnedVoucher(ctx, t, repo, alice.ID, 3)
	seedOwnedVoucher(ctx, t, repo, alice.ID, 3)

	download := seedWaitingDownload(ctx, t, repo, alice.ID, "https://www.freepik.com/a_1.htm")

	commit, err := repo.CompleteFulfillment(ctx, download.ID, alice.ID, "a.zip", "https://drive.google.com/uc?id=obj-1")
	if err != nil {
		t.Fatalf("CompleteFulfillment failed: %v", err)
	}
	if commit.VoucherID != older.ID {
		t.Errorf("consumed voucher %q, want oldest %q", commit.VoucherID, older.ID)
	}
	if commit.Remaining != 2 {
		t.Errorf("remaining = %d, want 2", commit.Remaining)
	}
	if commit.Retired {
		t.Error("voucher with remaining units should not be retired")
	}

	completed, err := repo.GetDownloadByID(ctx, download.ID)
	if err != nil {
		t.Fatalf("GetDownloadByID failed: %v", err)
	}
	if completed.Status != model.DownloadStatusCompleted {
		t.Errorf("status = %q, want completed", completed.Status)
	}
	if completed.Filename != "a.zip" || completed.ResultLink != "https://drive.google.com/uc?id=obj-1" {
		t.Errorf("filename/link = %q/%q", completed.Filename, completed.ResultLink)
	}
}

func TestIntegrationCompleteFulfillment_RetiresLastUnit(t *testing.T) {
	ctx, repo := newTestEnv(t)

	alice := seedUser(ctx, t, repo, "alice")
	seedOwnedVoucher(ctx, t, repo, alice.ID, 1)
	download := seedWaitingDownload(ctx, t, repo, alice.ID, "https://www.freepik.com/a_1.htm")

	commit, err := repo.CompleteFulfillment(ctx, download.ID, alice.ID, "a.zip", "https://drive.google.com/uc?id=obj-1")
	if err != nil {
		t.Fatalf("CompleteFulfillment failed: %v", err)
	}
	if commit.Remaining != 0 || !commit.Retired {
		t.Errorf("remaining/retired = %d/%v, want 0/true", commit.Remaining, commit.Retired)
	}

	// The retired voucher leaves the consumable set entirely.
	vouchers, err := repo.ListVouchersForOwner(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListVouchersForOwner failed: %v", err)
	}
	if len(vouchers) != 0 {
		t.Errorf("expected no consumable vouchers, got %d", len(vouchers))
	}
}

func TestIntegrationCompleteFulfillment_NoVoucherLeavesDownloadWaiting(t *testing.T) {
	ctx, repo := newTestEnv(t)

	alice := seedUser(ctx, t, repo, "alice")
	download := seedWaitingDownload(ctx, t, repo, alice.ID, "https://www.freepik.com/a_1.htm")

	_, err := repo.CompleteFulfillment(ctx, download.ID, alice.ID, "a.zip", "link")
	if !errors.Is(err, ErrNoEligibleVoucher) {
		t.Fatalf("expected ErrNoEligibleVoucher, got %v", err)
	}

	// The rollback must leave the request untouched.
	unchanged, err := repo.GetDownloadByID(ctx, download.ID)
	if err != nil {
		t.Fatalf("GetDownloadByID failed: %v", err)
	}
	if unchanged.Status != model.DownloadStatusWaiting {
		t.Errorf("status = %q, want waiting", unchanged.Status)
	}
}

func TestIntegrationCompleteFulfillment_AlreadyCompleted(t *testing.T) {
	ctx, repo := newTestEnv(t)

	alice := seedUser(ctx, t, repo, "alice")
	seedOwnedVoucher(ctx, t, repo, alice.ID, 5)
	download := seedWaitingDownload(ctx, t, repo, alice.ID, "https://www.freepik.com/a_1.htm")

	if _, err := repo.CompleteFulfillment(ctx, download.ID, alice.ID, "a.zip", "link"); err != nil {
		t.Fatalf("first CompleteFulfillment failed: %v", err)
	}

	_, err := repo.CompleteFulfillment(ctx, download.ID, alice.ID, "a.zip", "link")
	if !errors.Is(err, ErrDownloadNotWaiting) {
		t.Fatalf("expected ErrDownloadNotWaiting, got %v", err)
	}

	// The failed second attempt must not have consumed a unit.
	vouchers, err := repo.ListVouchersForOwner(ctx, alice.ID)
	if err != nil {
		t.Fatalf("ListVouchersForOwner failed: %v", err)
	}
	if len(vouchers) != 1 || vouchers[0].Remaining != 4 {
		t.Fatalf("expected one voucher with 4 remaining, got %+v", vouchers)
	}
}

func TestIntegrationCompleteFulfillment_WrongUser(t *testing.T) {
	ctx, repo := newTestEnv(t)

	alice := seedUser(ctx, t, repo, "alice")
	bob := seedUser(ctx, t, repo, "bob")
	seedOwnedVoucher(ctx, t, repo, bob.ID, 5)
	download := seedWaitingDownload(ctx, t, repo, alice.ID, "https://www.freepik.com/a_1.htm")

	// Bob has quota but the download belongs to alice.
	if _, err := repo.CompleteFulfillment(ctx, download.ID, bob.ID, "a.zip", "link"); !errors.Is(err, ErrDownloadNotWaiting) {
		t.Fatalf("expected ErrDownloadNotWaiting, got %v", err)
	}
}

func TestIntegrationCompleteFulfillment_ConcurrentQuota(t *testing.T) {
	ctx, repo := newTestEnv(t)

	alice := seedUser(ctx, t, repo, "alice")
	seedOwnedVoucher(ctx, t, repo, alice.ID, 2)

	const attempts = 5
	downloads := make([]*model.Download, attempts)
	for i := range downloads {
		downloads[i] = seedWaitingDownload(ctx, t, repo, alice.ID, testutil.UniqueID("https://www.freepik.com/race"))
	}

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = repo.CompleteFulfillment(context.Background(), downloads[i].ID, alice.ID, "race.zip", "link")
		}(i)
	}
	wg.Wait()

	var succeeded, exhausted int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrNoEligibleVoucher):
			exhausted++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded != 2 {
		t.Errorf("succeeded = %d, want exactly 2 (quota of 2 units)", succeeded)
	}
	if exhausted != attempts-2 {
		t.Errorf("exhausted = %d, want %d", exhausted, attempts-2)
	}
}
