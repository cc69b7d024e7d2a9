package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/assetgate/assetgate/internal/auth"
)

// Validation failures short-circuit before any store or notifier use,
// so nil collaborators are safe here.
func newValidationVoucherService() *VoucherService {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewVoucherService(nil, nil, logger)
}

func TestCreateVoucher_RejectsInvalidInput(t *testing.T) {
	svc := newValidationVoucherService()

	tests := []struct {
		name        string
		voucherName string
		limit       int
	}{
		{"empty name", "", 5},
		{"zero limit", "starter", 0},
		{"negative limit", "starter", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateVoucher(context.Background(), tt.voucherName, tt.limit); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestUpdateVoucher_RejectsInvalidInput(t *testing.T) {
	svc := newValidationVoucherService()

	if _, err := svc.UpdateVoucher(context.Background(), "CODE", "", 5); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty name, got %v", err)
	}
	if _, err := svc.UpdateVoucher(context.Background(), "CODE", "starter", 0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for zero limit, got %v", err)
	}
}

func TestRedeem_RejectsMalformedCodes(t *testing.T) {
	svc := newValidationVoucherService()

	tests := []struct {
		name string
		code string
	}{
		{"empty", ""},
		{"too short", "ABC123"},
		{"too long", strings.Repeat("A", auth.VoucherCodeLen+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Redeem(context.Background(), "user-1", tt.code); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
