package dto

import (
	"time"

	"github.com/assetgate/assetgate/internal/model"
)

// CachedFileResponse represents an archived file in API responses.
type CachedFileResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	DirectLink string    `json:"direct_link"`
	CreatedAt  time.Time `json:"created_at"`
}

// CachedFileListResponse wraps an archive search result.
type CachedFileListResponse struct {
	Data []CachedFileResponse `json:"data"`
}

// StorageQuotaResponse reports archive storage usage in bytes.
type StorageQuotaResponse struct {
	Used      int64 `json:"used"`
	Limit     int64 `json:"limit"`
	Remaining int64 `json:"remaining"`
	Trash     int64 `json:"trash"`
}

// ToCachedFileListResponse maps archive search hits.
func ToCachedFileListResponse(files []*model.CachedFile) CachedFileListResponse {
	data := make([]CachedFileResponse, 0, len(files))
	for _, f := range files {
		data = append(data, CachedFileResponse{
			ID:         f.ID,
			Name:       f.Name,
			DirectLink: f.DirectLink,
			CreatedAt:  f.CreatedAt,
		})
	}
	return CachedFileListResponse{Data: data}
}

// ToStorageQuotaResponse maps the storage quota model.
func ToStorageQuotaResponse(q *model.StorageQuota) StorageQuotaResponse {
	return StorageQuotaResponse{
		Used:      q.UsedBytes,
		Limit:     q.LimitBytes,
		Remaining: q.RemainingBytes,
		Trash:     q.TrashBytes,
	}
}
