package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/assetgate/assetgate/internal/model"
)

// Common errors for voucher repository operations.
var (
	ErrVoucherNotFound = errors.New("voucher not found")
	ErrVoucherCodeTaken = errors.New("voucher code already exists")
	ErrVoucherRedeemed = errors.New("voucher already redeemed")
)

// VoucherFilter defines filters for listing vouchers.
type VoucherFilter struct {
	Name    string
	Code    string
	OwnerID string
}

const voucherColumns = `id, code, name, limit_total, remaining, owner_id, deleted_at, created_at, updated_at`

// CreateVoucher inserts a new unowned voucher.
func (r *Repository) CreateVoucher(ctx context.Context, voucher *model.Voucher) error {
	query := `
		INSERT INTO vouchers (id, code, name, limit_total, remaining, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		voucher.ID,
		voucher.Code,
		voucher.Name,
		voucher.Limit,
		voucher.Remaining,
		voucher.OwnerID,
		voucher.CreatedAt,
		voucher.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrVoucherCodeTaken
		}
		return fmt.Errorf("failed to create voucher: %w", err)
	}

	return nil
}

// GetVoucherByCode retrieves a non-deleted voucher by its code.
func (r *Repository) GetVoucherByCode(ctx context.Context, code string) (*model.Voucher, error) {
	query := `SELECT ` + voucherColumns + ` FROM vouchers WHERE code = $1 AND deleted_at IS NULL`

	voucher, err := scanVoucher(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVoucherNotFound
		}
		return nil, fmt.Errorf("failed to get voucher by code: %w", err)
	}

	return voucher, nil
}

// ListVouchers retrieves a paginated list of non-deleted vouchers.
func (r *Repository) ListVouchers(ctx context.Context, filter VoucherFilter, page Page, sort string) ([]*model.Voucher, int, error) {
	where := ` WHERE deleted_at IS NULL`
	args := []any{}
	argIndex := 1

	if filter.Name != "" {
		where += fmt.Sprintf(" AND name ILIKE '%%' || $%d || '%%'", argIndex)
		args = append(args, filter.Name)
		argIndex++
	}
	if filter.Code != "" {
		where += fmt.Sprintf(" AND code ILIKE '%%' || $%d || '%%'", argIndex)
		args = append(args, filter.Code)
		argIndex++
	}
	if filter.OwnerID != "" {
		where += fmt.Sprintf(" AND owner_id = $%d", argIndex)
		args = append(args, filter.OwnerID)
		argIndex++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vouchers`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count vouchers: %w", err)
	}

	query := `SELECT ` + voucherColumns + ` FROM vouchers` + where +
		fmt.Sprintf(" ORDER BY updated_at %s LIMIT $%d OFFSET $%d", sortDirection(sort), argIndex, argIndex+1)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list vouchers: %w", err)
	}
	defer rows.Close()

	var vouchers []*model.Voucher
	for rows.Next() {
		voucher, err := scanVoucher(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan voucher: %w", err)
		}
		vouchers = append(vouchers, voucher)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating vouchers: %w", err)
	}

	return vouchers, total, nil
}

// ListVouchersForOwner retrieves a user's consumable vouchers, oldest first.
func (r *Repository) ListVouchersForOwner(ctx context.Context, ownerID string) ([]*model.Voucher, error) {
	query := `
		SELECT ` + voucherColumns + `
		FROM vouchers
		WHERE owner_id = $1 AND remaining > 0 AND deleted_at IS NULL
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list owner vouchers: %w", err)
	}
	defer rows.Close()

	var vouchers []*model.Voucher
	for rows.Next() {
		voucher, err := scanVoucher(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voucher: %w", err)
		}
		vouchers = append(vouchers, voucher)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vouchers: %w", err)
	}

	return vouchers, nil
}

// UpdateVoucher updates a voucher's name and limit, resetting remaining
// to the new limit. Administrative path only.
func (r *Repository) UpdateVoucher(ctx context.Context, code, name string, limit int) (*model.Voucher, error) {
	query := `
		UPDATE vouchers
		SET name = $2, limit_total = $3, remaining = $3, updated_at = NOW()
		WHERE code = $1 AND deleted_at IS NULL
		RETURNING ` + voucherColumns

	voucher, err := scanVoucher(r.pool.QueryRow(ctx, query, code, name, limit))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVoucherNotFound
		}
		return nil, fmt.Errorf("failed to update voucher: %w", err)
	}

	return voucher, nil
}

// RedeemVoucher binds an unowned voucher to a user.
// The conditional update makes concurrent redemptions of the same code
// race-safe: exactly one caller wins, the rest observe ErrVoucherRedeemed.
func (r *Repository) RedeemVoucher(ctx context.Context, code, userID string) (*model.Voucher, error) {
	query := `
		UPDATE vouchers
		SET owner_id = $2, updated_at = NOW()
		WHERE code = $1 AND owner_id IS NULL AND deleted_at IS NULL
		RETURNING ` + voucherColumns

	voucher, err := scanVoucher(r.pool.QueryRow(ctx, query, code, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish missing from already-owned
			existing, getErr := r.GetVoucherByCode(ctx, code)
			if getErr != nil {
				return nil, getErr
			}
			if existing.IsRedeemed() {
				return nil, ErrVoucherRedeemed
			}
			return nil, ErrVoucherNotFound
		}
		return nil, fmt.Errorf("failed to redeem voucher: %w", err)
	}

	return voucher, nil
}

// DeleteVoucher performs a soft delete on a voucher.
func (r *Repository) DeleteVoucher(ctx context.Context, code string) error {
	query := `
		UPDATE vouchers
		SET deleted_at = NOW()
		WHERE code = $1 AND deleted_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, code)
	if err != nil {
		return fmt.Errorf("failed to delete voucher: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrVoucherNotFound
	}

	return nil
}

// scanVoucher scans a single row into a Voucher model.
func scanVoucher(row pgx.Row) (*model.Voucher, error) {
	var voucher model.Voucher
	err := row.Scan(
		&voucher.ID,
		&voucher.Code,
		&voucher.Name,
		&voucher.Limit,
		&voucher.Remaining,
		&voucher.OwnerID,
		&voucher.DeletedAt,
		&voucher.CreatedAt,
		&voucher.UpdatedAt,
	)
	return &voucher, err
}
