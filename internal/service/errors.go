// Package service provides business logic for the application.
package service

import (
	"errors"
	"fmt"

	"github.com/assetgate/assetgate/internal/model"
)

// Service errors shared across the API surface.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicate          = errors.New("duplicate active request")
	ErrAlreadyRedeemed    = errors.New("voucher already redeemed")
	ErrQuotaExhausted     = errors.New("no eligible voucher")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserBanned         = errors.New("user is banned")
)

// DuplicateError is returned when an active request already exists for
// the same (user, source URL) pair. It carries the existing request so
// callers can poll its status instead of resubmitting.
type DuplicateError struct {
	Existing *model.Download
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate active request (status %s)", e.Existing.Status)
}

// Is lets errors.Is(err, ErrDuplicate) match.
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}
