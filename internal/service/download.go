package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/assetgate/assetgate/internal/model"
	"github.com/assetgate/assetgate/internal/repository"
)

// DownloadService handles listing and administrative mutation of
// download requests. Intake and completion are the orchestrator's job.
type DownloadService struct {
	repo   *repository.Repository
	logger *slog.Logger
}

// NewDownloadService creates a new DownloadService.
func NewDownloadService(repo *repository.Repository, logger *slog.Logger) *DownloadService {
	return &DownloadService{
		repo:   repo,
		logger: logger.With("component", "service.download"),
	}
}

// GetDownload retrieves a download. Non-admin callers only see their
// own rows.
func (s *DownloadService) GetDownload(ctx context.Context, identity *model.Identity, id string) (*model.Download, error) {
	download, err := s.repo.GetDownloadByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrDownloadNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !identity.IsSuperadmin() && download.UserID != identity.UserID {
		return nil, ErrNotFound
	}

	return download, nil
}

// ListDownloadsInput defines input for listing downloads.
type ListDownloadsInput struct {
	UserID   string // empty = all users (admin only, enforced by handler)
	Filename string
	Status   string
	Page     int
	PerPage  int
	Sort     string
}

// ListDownloads retrieves a filtered, paginated download list.
func (s *DownloadService) ListDownloads(ctx context.Context, input ListDownloadsInput) ([]*model.Download, int, error) {
	if input.Status != "" && !model.DownloadStatus(input.Status).IsValid() {
		return nil, 0, ErrInvalidInput
	}

	filter := repository.DownloadFilter{
		UserID:   input.UserID,
		Filename: input.Filename,
		Status:   model.DownloadStatus(input.Status),
	}
	return s.repo.ListDownloads(ctx, filter, normalizePage(input.Page, input.PerPage), input.Sort)
}

// UpdateDownloadInput defines input for the administrative mutation
// surface. Nil fields are left unchanged.
type UpdateDownloadInput struct {
	ID         string
	Filename   *string
	Status     *string
	ResultLink *string
}

// UpdateDownload edits a download row directly. This is the re-open
// path: setting status back to waiting makes the slot active again.
func (s *DownloadService) UpdateDownload(ctx context.Context, input UpdateDownloadInput) (*model.Download, error) {
	download, err := s.repo.GetDownloadByID(ctx, input.ID)
	if err != nil {
		if errors.Is(err, repository.ErrDownloadNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if input.Filename != nil {
		download.Filename = *input.Filename
	}
	if input.Status != nil {
		status := model.DownloadStatus(*input.Status)
		if !status.IsValid() {
			return nil, ErrInvalidInput
		}
		download.Status = status
	}
	if input.ResultLink != nil {
		download.ResultLink = *input.ResultLink
	}

	if err := s.repo.UpdateDownload(ctx, download); err != nil {
		if errors.Is(err, repository.ErrDownloadNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.logger.Info("download updated", "download_id", download.ID, "status", download.Status)

	return download, nil
}

// DeleteDownload soft-deletes a download, freeing its duplicate slot.
func (s *DownloadService) DeleteDownload(ctx context.Context, id string) error {
	if err := s.repo.DeleteDownload(ctx, id); err != nil {
		if errors.Is(err, repository.ErrDownloadNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.logger.Info("download deleted", "download_id", id)
	return nil
}
