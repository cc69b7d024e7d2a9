package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/assetgate/assetgate/internal/model"
)

func TestDuplicateError_MatchesSentinel(t *testing.T) {
	err := &DuplicateError{Existing: &model.Download{
		ID:     "dl-1",
		Status: model.DownloadStatusWaiting,
	}}

	if !errors.Is(err, ErrDuplicate) {
		t.Error("DuplicateError should match ErrDuplicate")
	}

	wrapped := fmt.Errorf("fulfill: %w", err)
	if !errors.Is(wrapped, ErrDuplicate) {
		t.Error("wrapped DuplicateError should match ErrDuplicate")
	}

	var dup *DuplicateError
	if !errors.As(wrapped, &dup) {
		t.Fatal("errors.As should recover the DuplicateError")
	}
	if dup.Existing.ID != "dl-1" {
		t.Errorf("Existing.ID = %q", dup.Existing.ID)
	}
}
