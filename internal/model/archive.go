package model

import "time"

// CachedFile is one candidate returned by the archive name index.
// DirectLink is stable for the lifetime of the stored object.
type CachedFile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	DirectLink string    `json:"direct_link"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SortTime returns the timestamp used to rank candidates: creation
// time when present, last modification otherwise.
func (f *CachedFile) SortTime() time.Time {
	if !f.CreatedAt.IsZero() {
		return f.CreatedAt
	}
	return f.UpdatedAt
}

// StorageQuota describes the archive backend's byte budget.
type StorageQuota struct {
	UsedBytes      int64 `json:"used_bytes"`
	LimitBytes     int64 `json:"limit_bytes"`
	RemainingBytes int64 `json:"remaining_bytes"`
	TrashBytes     int64 `json:"trash_bytes"`
}
