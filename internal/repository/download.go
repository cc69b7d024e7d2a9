package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/assetgate/assetgate/internal/model"
)

// Common errors for download repository operations.
var (
	ErrDownloadNotFound = errors.New("download not found")
	ErrDownloadExists   = errors.New("active download already exists for this URL")
)

// DownloadFilter defines filters for listing downloads.
type DownloadFilter struct {
	UserID   string
	Filename string
	Status   model.DownloadStatus
}

const downloadColumns = `id, user_id, source_url, filename, status, result_link, deleted_at, created_at, updated_at`

// CreateDownload inserts a new download request.
// A partial unique index on (user_id, source_url) for waiting rows makes
// the duplicate check and the insert one atomic step: the loser of a
// concurrent identical submission gets ErrDownloadExists.
func (r *Repository) CreateDownload(ctx context.Context, download *model.Download) error {
	query := `
		INSERT INTO downloads (id, user_id, source_url, filename, status, result_link, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.pool.Exec(ctx, query,
		download.ID,
		download.UserID,
		download.SourceURL,
		download.Filename,
		download.Status,
		download.ResultLink,
		download.CreatedAt,
		download.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrDownloadExists
		}
		return fmt.Errorf("failed to create download: %w", err)
	}

	return nil
}

// GetDownloadByID retrieves a non-deleted download by ID.
func (r *Repository) GetDownloadByID(ctx context.Context, id string) (*model.Download, error) {
	query := `SELECT ` + downloadColumns + ` FROM downloads WHERE id = $1 AND deleted_at IS NULL`

	download, err := scanDownload(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDownloadNotFound
		}
		return nil, fmt.Errorf("failed to get download by ID: %w", err)
	}

	return download, nil
}

// FindWaitingDownload returns the user's waiting request for the URL, if any.
// Completed requests do not block resubmission, so only waiting rows count.
func (r *Repository) FindWaitingDownload(ctx context.Context, userID, sourceURL string) (*model.Download, error) {
	query := `
		SELECT ` + downloadColumns + `
		FROM downloads
		WHERE user_id = $1 AND source_url = $2 AND status = $3 AND deleted_at IS NULL
	`

	download, err := scanDownload(r.pool.QueryRow(ctx, query, userID, sourceURL, model.DownloadStatusWaiting))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDownloadNotFound
		}
		return nil, fmt.Errorf("failed to find waiting download: %w", err)
	}

	return download, nil
}

// ListDownloads retrieves a paginated list of downloads.
// An empty filter UserID lists across all users (administrative view).
func (r *Repository) ListDownloads(ctx context.Context, filter DownloadFilter, page Page, sort string) ([]*model.Download, int, error) {
	where := ` WHERE deleted_at IS NULL`
	args := []any{}
	argIndex := 1

	if filter.UserID != "" {
		where += fmt.Sprintf(" AND user_id = $%d", argIndex)
		args = append(args, filter.UserID)
		argIndex++
	}
	if filter.Filename != "" {
		where += fmt.Sprintf(" AND filename ILIKE '%%' || $%d || '%%'", argIndex)
		args = append(args, filter.Filename)
		argIndex++
	}
	if filter.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, filter.Status)
		argIndex++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM downloads`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count downloads: %w", err)
	}

	query := `SELECT ` + downloadColumns + ` FROM downloads` + where +
		fmt.Sprintf(" ORDER BY updated_at %s LIMIT $%d OFFSET $%d", sortDirection(sort), argIndex, argIndex+1)
	args = append(args, page.PerPage, page.Offset())

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list downloads: %w", err)
	}
	defer rows.Close()

	var downloads []*model.Download
	for rows.Next() {
		download, err := scanDownload(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan download: %w", err)
		}
		downloads = append(downloads, download)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating downloads: %w", err)
	}

	return downloads, total, nil
}

// UpdateDownload rewrites a download's filename, URL and status.
// Administrative mutation surface; normal flow only transitions rows
// through CompleteFulfillment.
func (r *Repository) UpdateDownload(ctx context.Context, download *model.Download) error {
	query := `
		UPDATE downloads
		SET filename = $2, source_url = $3, status = $4, result_link = $5, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query,
		download.ID,
		download.Filename,
		download.SourceURL,
		download.Status,
		download.ResultLink,
	)
	if err != nil {
		return fmt.Errorf("failed to update download: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrDownloadNotFound
	}

	return nil
}

// DeleteDownload performs a soft delete on a download.
func (r *Repository) DeleteDownload(ctx context.Context, id string) error {
	query := `
		UPDATE downloads
		SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete download: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrDownloadNotFound
	}

	return nil
}

// scanDownload scans a single row into a Download model.
func scanDownload(row pgx.Row) (*model.Download, error) {
	var download model.Download
	err := row.Scan(
		&download.ID,
		&download.UserID,
		&download.SourceURL,
		&download.Filename,
		&download.Status,
		&download.ResultLink,
		&download.DeletedAt,
		&download.CreatedAt,
		&download.UpdatedAt,
	)
	return &download, err
}
