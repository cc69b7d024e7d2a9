package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/assetgate/assetgate/internal/model"
)

const (
	// archiveLookupPrefix is the Redis key prefix for archive lookup results.
	archiveLookupPrefix = "archive:lookup:"
	// archiveLookupTTL is the time-to-live for memoized lookups. Kept short
	// so out-of-band changes to the backing folder surface quickly.
	archiveLookupTTL = 2 * time.Minute
)

// cachedLookup represents a memoized archive lookup stored in Redis.
type cachedLookup struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	DirectLink string    `json:"direct_link"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// GetLookup retrieves a memoized archive lookup by filename.
// The second return reports whether a valid entry was found.
func (c *Cache) GetLookup(ctx context.Context, filename string) (*model.CachedFile, bool) {
	key := archiveLookupPrefix + filename

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		// Cache miss is not an error
		return nil, false
	}

	var cached cachedLookup
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, false
	}

	return &model.CachedFile{
		ID:         cached.ID,
		Name:       cached.Name,
		DirectLink: cached.DirectLink,
		CreatedAt:  cached.CreatedAt,
		UpdatedAt:  cached.UpdatedAt,
	}, true
}

// SetLookup memoizes an archive lookup result. Failures are ignored; the
// memo is an optimization only.
func (c *Cache) SetLookup(ctx context.Context, filename string, file *model.CachedFile) {
	key := archiveLookupPrefix + filename

	cached := cachedLookup{
		ID:         file.ID,
		Name:       file.Name,
		DirectLink: file.DirectLink,
		CreatedAt:  file.CreatedAt,
		UpdatedAt:  file.UpdatedAt,
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return
	}

	c.client.Set(ctx, key, data, archiveLookupTTL)
}

// InvalidateLookup removes a memoized lookup. Called after a new upload so
// the next lookup sees the freshly stored file.
func (c *Cache) InvalidateLookup(ctx context.Context, filename string) {
	c.client.Del(ctx, archiveLookupPrefix+filename)
}
