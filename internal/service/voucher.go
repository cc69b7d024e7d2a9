package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/assetgate/assetgate/internal/auth"
	"github.com/assetgate/assetgate/internal/model"
	"github.com/assetgate/assetgate/internal/notify"
	"github.com/assetgate/assetgate/internal/repository"
)

const maxCodeRetries = 3

// VoucherService handles quota grant management and redemption.
type VoucherService struct {
	repo     *repository.Repository
	notifier *notify.Notifier
	logger   *slog.Logger
}

// NewVoucherService creates a new VoucherService.
func NewVoucherService(repo *repository.Repository, notifier *notify.Notifier, logger *slog.Logger) *VoucherService {
	return &VoucherService{
		repo:     repo,
		notifier: notifier,
		logger:   logger.With("component", "service.voucher"),
	}
}

// CreateVoucher creates an unowned voucher with a random code.
// Limit is immutable after creation and seeds the remaining counter.
func (s *VoucherService) CreateVoucher(ctx context.Context, name string, limit int) (*model.Voucher, error) {
	if name == "" || limit < 1 {
		return nil, ErrInvalidInput
	}

	for i := 0; i < maxCodeRetries; i++ {
		code, err := auth.GenerateVoucherCode()
		if err != nil {
			return nil, fmt.Errorf("generate voucher code: %w", err)
		}

		voucher := &model.Voucher{
			ID:        model.NewID(),
			Code:      code,
			Name:      name,
			Limit:     limit,
			Remaining: limit,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}

		err = s.repo.CreateVoucher(ctx, voucher)
		if err == nil {
			s.logger.Info("voucher created", "code", code, "limit", limit)
			return voucher, nil
		}
		if !errors.Is(err, repository.ErrVoucherCodeTaken) {
			return nil, fmt.Errorf("create voucher: %w", err)
		}
		// Code collision, try a fresh one
	}

	return nil, errors.New("failed to generate unique voucher code after retries")
}

// GetVoucher retrieves a voucher by code.
func (s *VoucherService) GetVoucher(ctx context.Context, code string) (*model.Voucher, error) {
	voucher, err := s.repo.GetVoucherByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrVoucherNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return voucher, nil
}

// ListVouchersInput defines input for listing vouchers.
type ListVouchersInput struct {
	Name    string
	Code    string
	OwnerID string
	Page    int
	PerPage int
	Sort    string
}

// ListVouchers retrieves a filtered, paginated voucher list.
func (s *VoucherService) ListVouchers(ctx context.Context, input ListVouchersInput) ([]*model.Voucher, int, error) {
	filter := repository.VoucherFilter{
		Name:    input.Name,
		Code:    input.Code,
		OwnerID: input.OwnerID,
	}
	return s.repo.ListVouchers(ctx, filter, normalizePage(input.Page, input.PerPage), input.Sort)
}

// ListOwnVouchers returns the caller's consumable vouchers, oldest
// grant first.
func (s *VoucherService) ListOwnVouchers(ctx context.Context, userID string) ([]*model.Voucher, error) {
	return s.repo.ListVouchersForOwner(ctx, userID)
}

// UpdateVoucher renames a voucher and resets its allowance.
func (s *VoucherService) UpdateVoucher(ctx context.Context, code, name string, limit int) (*model.Voucher, error) {
	if name == "" || limit < 1 {
		return nil, ErrInvalidInput
	}

	voucher, err := s.repo.UpdateVoucher(ctx, code, name, limit)
	if err != nil {
		if errors.Is(err, repository.ErrVoucherNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.logger.Info("voucher updated", "code", code, "limit", limit)

	return voucher, nil
}

// Redeem binds an unowned voucher to the caller. A voucher is owned at
// most once for its lifetime: no re-redemption, no transfer.
func (s *VoucherService) Redeem(ctx context.Context, userID, code string) (*model.Voucher, error) {
	if len(code) != auth.VoucherCodeLen {
		return nil, ErrInvalidInput
	}

	voucher, err := s.repo.RedeemVoucher(ctx, code, userID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrVoucherNotFound):
			return nil, ErrNotFound
		case errors.Is(err, repository.ErrVoucherRedeemed):
			return nil, ErrAlreadyRedeemed
		}
		return nil, err
	}

	s.logger.Info("voucher redeemed", "code", code, "user_id", userID)
	s.notifier.Notify(notify.EventSystemMessage,
		fmt.Sprintf("voucher %s redeemed by user %s", code, userID))

	return voucher, nil
}

// DeleteVoucher soft-deletes a voucher so it can no longer be
// consumed or redeemed.
func (s *VoucherService) DeleteVoucher(ctx context.Context, code string) error {
	if err := s.repo.DeleteVoucher(ctx, code); err != nil {
		if errors.Is(err, repository.ErrVoucherNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.logger.Info("voucher deleted", "code", code)
	return nil
}
