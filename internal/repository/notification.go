package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/assetgate/assetgate/internal/model"
)

// ErrNotificationNotFound is returned when no matching notification exists.
var ErrNotificationNotFound = errors.New("notification not found")

const notificationColumns = `id, user_id, type, content, read, deleted_at, created_at, updated_at`

// CreateNotification inserts a new notification.
func (r *Repository) CreateNotification(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, type, content, read, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		n.ID,
		n.UserID,
		n.Type,
		n.Content,
		n.Read,
		n.CreatedAt,
		n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// ListNotificationsForUser retrieves a user's notifications, newest first.
func (r *Repository) ListNotificationsForUser(ctx context.Context, userID string, page Page) ([]*model.Notification, int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND deleted_at IS NULL`,
		userID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, page.PerPage, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, total, nil
}

// MarkNotificationRead marks a notification as read, owner-scoped.
func (r *Repository) MarkNotificationRead(ctx context.Context, id, userID string) (*model.Notification, error) {
	query := `
		UPDATE notifications
		SET read = TRUE, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
		RETURNING ` + notificationColumns

	n, err := scanNotification(r.pool.QueryRow(ctx, query, id, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}

	return n, nil
}

// scanNotification scans a single row into a Notification model.
func scanNotification(row pgx.Row) (*model.Notification, error) {
	var n model.Notification
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Type,
		&n.Content,
		&n.Read,
		&n.DeletedAt,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	return &n, err
}
