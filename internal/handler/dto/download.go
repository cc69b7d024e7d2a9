package dto

import (
	"time"

	"github.com/assetgate/assetgate/internal/model"
)

// SubmitDownloadRequest represents the intake request body.
type SubmitDownloadRequest struct {
	URL string `json:"url"`
}

// UpdateDownloadRequest represents the administrative mutation body.
type UpdateDownloadRequest struct {
	Filename   *string `json:"filename,omitempty"`
	Status     *string `json:"status,omitempty"`
	ResultLink *string `json:"result_link,omitempty"`
}

// DownloadResponse represents a download request in API responses.
type DownloadResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	SourceURL  string    `json:"source_url"`
	Filename   string    `json:"filename"`
	Status     string    `json:"status"`
	ResultLink string    `json:"url"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// FulfillmentResponse is the result of a successful fulfillment.
type FulfillmentResponse struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// DownloadListResponse represents a paginated list of downloads.
type DownloadListResponse struct {
	Data       []DownloadResponse `json:"data"`
	Pagination Pagination         `json:"pagination"`
}

// ToDownloadResponse maps a download model to its API representation.
func ToDownloadResponse(d *model.Download) DownloadResponse {
	return DownloadResponse{
		ID:         d.ID,
		UserID:     d.UserID,
		SourceURL:  d.SourceURL,
		Filename:   d.Filename,
		Status:     string(d.Status),
		ResultLink: d.ResultLink,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

// ToDownloadListResponse maps downloads plus pagination metadata.
func ToDownloadListResponse(downloads []*model.Download, page, perPage, total int) DownloadListResponse {
	data := make([]DownloadResponse, 0, len(downloads))
	for _, d := range downloads {
		data = append(data, ToDownloadResponse(d))
	}
	return DownloadListResponse{
		Data:       data,
		Pagination: Pagination{Page: page, PerPage: perPage, Total: total},
	}
}
