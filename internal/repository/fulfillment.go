package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/assetgate/assetgate/internal/model"
)

// Errors for the fulfillment commit.
var (
	// ErrNoEligibleVoucher means the user has no consumable voucher left.
	ErrNoEligibleVoucher = errors.New("no eligible voucher")
	// ErrDownloadNotWaiting means the request already reached its
	// terminal state (or was removed) before the commit.
	ErrDownloadNotWaiting = errors.New("download is not waiting")
)

// FulfillmentCommit reports what the commit transaction consumed.
type FulfillmentCommit struct {
	VoucherID   string
	VoucherCode string
	Remaining   int
	Retired     bool
}

// CompleteFulfillment atomically consumes one voucher unit and moves the
// download to its terminal state. Either both writes land or neither:
// a failure after the voucher lock rolls everything back, so a voucher
// is never silently consumed without a completed request.
//
// The voucher row lock (FOR UPDATE) serializes concurrent fulfillments
// against the same quota: of two callers racing on remaining=1, exactly
// one commits and the other observes ErrNoEligibleVoucher. The lock is
// held only for the duration of the decrement; no external I/O happens
// inside the transaction.
func (r *Repository) CompleteFulfillment(ctx context.Context, downloadID, userID, filename, resultLink string) (*FulfillmentCommit, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin fulfillment tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Oldest consumable voucher first: strict FIFO over quota grants.
	var commit FulfillmentCommit
	err = tx.QueryRow(ctx, `
		SELECT id, code
		FROM vouchers
		WHERE owner_id = $1 AND remaining > 0 AND deleted_at IS NULL
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE
	`, userID).Scan(&commit.VoucherID, &commit.VoucherCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoEligibleVoucher
		}
		return nil, fmt.Errorf("select voucher for update: %w", err)
	}

	// Decrement by exactly one and retire the voucher the moment its
	// last unit is spent, so it can never be selected again.
	err = tx.QueryRow(ctx, `
		UPDATE vouchers
		SET remaining = remaining - 1,
		    deleted_at = CASE WHEN remaining - 1 <= 0 THEN NOW() ELSE deleted_at END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING remaining, deleted_at IS NOT NULL
	`, commit.VoucherID).Scan(&commit.Remaining, &commit.Retired)
	if err != nil {
		return nil, fmt.Errorf("decrement voucher: %w", err)
	}

	result, err := tx.Exec(ctx, `
		UPDATE downloads
		SET filename = $3, result_link = $4, status = $5, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = $6 AND deleted_at IS NULL
	`, downloadID, userID, filename, resultLink, model.DownloadStatusCompleted, model.DownloadStatusWaiting)
	if err != nil {
		return nil, fmt.Errorf("complete download: %w", err)
	}
	if result.RowsAffected() == 0 {
		return nil, ErrDownloadNotWaiting
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit fulfillment tx: %w", err)
	}

	return &commit, nil
}
