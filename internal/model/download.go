package model

import "time"

// DownloadStatus represents the lifecycle state of a download request.
type DownloadStatus string

const (
	// DownloadStatusWaiting marks a request created at intake but not
	// yet resolved. A crash mid-fulfillment leaves the row here.
	DownloadStatusWaiting DownloadStatus = "waiting"
	// DownloadStatusCompleted marks a fulfilled request. The transition
	// happens exactly once, atomically with the voucher decrement.
	DownloadStatusCompleted DownloadStatus = "completed"
)

// IsValid checks if the status is a known value.
func (s DownloadStatus) IsValid() bool {
	return s == DownloadStatusWaiting || s == DownloadStatusCompleted
}

// PlaceholderFilename is stored at intake before resolution supplies
// the canonical name.
const PlaceholderFilename = "waiting from server"

// Download represents one user's request to fetch a marketplace asset.
// SourceURL is the URL as submitted; ResultLink is filled on completion
// with either the archive link or the marketplace direct link.
type Download struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	SourceURL  string         `json:"url"`
	Filename   string         `json:"filename"`
	Status     DownloadStatus `json:"status"`
	ResultLink string         `json:"result_link,omitempty"`
	DeletedAt  *time.Time     `json:"-"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// IsWaiting returns true while the request has not reached its terminal state.
func (d *Download) IsWaiting() bool {
	return d.Status == DownloadStatusWaiting
}
