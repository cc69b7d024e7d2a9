package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/assetgate/assetgate/internal/model"
	"github.com/assetgate/assetgate/internal/repository"
)

// NotificationService handles per-user notification intake and reads.
type NotificationService struct {
	repo   *repository.Repository
	logger *slog.Logger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(repo *repository.Repository, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		repo:   repo,
		logger: logger.With("component", "service.notification"),
	}
}

// CreateNotification records a notification for a user. Called by the
// system-credentialed intake endpoint.
func (s *NotificationService) CreateNotification(ctx context.Context, userID, kind, content string) (*model.Notification, error) {
	if userID == "" || kind == "" || content == "" {
		return nil, ErrInvalidInput
	}
	if len(kind) > model.MaxNotificationTypeLen || len(content) > model.MaxNotificationContentLen {
		return nil, ErrInvalidInput
	}

	n := &model.Notification{
		ID:        model.NewID(),
		UserID:    userID,
		Type:      kind,
		Content:   content,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return nil, err
	}

	s.logger.Info("notification created", "user_id", userID, "type", kind)

	return n, nil
}

// ListNotifications returns the caller's notifications, newest first.
func (s *NotificationService) ListNotifications(ctx context.Context, userID string, page, perPage int) ([]*model.Notification, int, error) {
	return s.repo.ListNotificationsForUser(ctx, userID, normalizePage(page, perPage))
}

// MarkRead marks one of the caller's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) (*model.Notification, error) {
	n, err := s.repo.MarkNotificationRead(ctx, id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return n, nil
}
