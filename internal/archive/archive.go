package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/assetgate/assetgate/internal/model"
)

// Service is the dedup cache over the storage backend.
type Service struct {
	client   *Client
	fetch    *http.Client
	logger   *slog.Logger
	memoizer Memoizer
}

// Memoizer caches recent lookup results. Implemented by the redis
// cache layer; a nil memoizer disables memoization.
type Memoizer interface {
	GetLookup(ctx context.Context, filename string) (*model.CachedFile, bool)
	SetLookup(ctx context.Context, filename string, file *model.CachedFile)
	InvalidateLookup(ctx context.Context, filename string)
}

// NewService creates the archive service.
func NewService(client *Client, logger *slog.Logger, memoizer Memoizer) *Service {
	return &Service{
		client: client,
		fetch: &http.Client{
			// Asset downloads can be large; rely on the stream's own
			// progress rather than a total deadline.
			Timeout: 0,
		},
		logger:   logger.With("component", "archive"),
		memoizer: memoizer,
	}
}

// Lookup searches the name index for a previously mirrored asset.
// Returns nil on a miss. Among candidates the most recently created
// (falling back to most recently modified) wins.
func (s *Service) Lookup(ctx context.Context, filename string) (*model.CachedFile, error) {
	if s.memoizer != nil {
		if file, ok := s.memoizer.GetLookup(ctx, filename); ok {
			return file, nil
		}
	}

	resources, err := s.client.ListByName(ctx, filename)
	if err != nil {
		return nil, err
	}
	if len(resources) == 0 {
		return nil, nil
	}

	files := make([]*model.CachedFile, 0, len(resources))
	for _, res := range resources {
		files = append(files, &model.CachedFile{
			ID:         res.ID,
			Name:       res.Name,
			DirectLink: fmt.Sprintf(directLinkFormat, res.ID),
			CreatedAt:  parseBackendTime(res.CreatedTime),
			UpdatedAt:  parseBackendTime(res.ModifiedTime),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].SortTime().After(files[j].SortTime())
	})

	hit := files[0]
	if s.memoizer != nil {
		s.memoizer.SetLookup(ctx, filename, hit)
	}

	return hit, nil
}

// Search lists cached files matching the term, newest first.
// Read-only administrative surface over the same name index.
func (s *Service) Search(ctx context.Context, term string) ([]*model.CachedFile, error) {
	resources, err := s.client.ListByName(ctx, term)
	if err != nil {
		return nil, err
	}

	files := make([]*model.CachedFile, 0, len(resources))
	for _, res := range resources {
		files = append(files, &model.CachedFile{
			ID:         res.ID,
			Name:       res.Name,
			DirectLink: fmt.Sprintf(directLinkFormat, res.ID),
			CreatedAt:  parseBackendTime(res.CreatedTime),
			UpdatedAt:  parseBackendTime(res.ModifiedTime),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].SortTime().After(files[j].SortTime())
	})

	return files, nil
}

// Store streams the asset at sourceLink into the backend under
// filename and returns the stored object id. Concurrent stores of the
// same filename may produce duplicate entries; Lookup resolves the
// newest, so duplicates are harmless.
func (s *Service) Store(ctx context.Context, sourceLink, filename string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceLink, nil)
	if err != nil {
		return "", fmt.Errorf("%w: create fetch request: %v", ErrStorageUnavailable, err)
	}

	resp, err := s.fetch.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetch source: %v", ErrStorageUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: HTTP %d fetching source", ErrStorageUnavailable, resp.StatusCode)
	}

	id, err := s.client.Create(ctx, filename, resp.Header.Get("Content-Type"), resp.Body)
	if err != nil {
		return "", err
	}

	if s.memoizer != nil {
		s.memoizer.InvalidateLookup(ctx, filename)
	}

	s.logger.Info("asset stored",
		"filename", filename,
		"object_id", id,
	)

	return id, nil
}

// Quota returns the backend's byte budget. Read-only; never affects
// fulfillment decisions.
func (s *Service) Quota(ctx context.Context) (*model.StorageQuota, error) {
	about, err := s.client.About(ctx)
	if err != nil {
		return nil, err
	}

	used := parseBytes(about.StorageQuota.Usage)
	limit := parseBytes(about.StorageQuota.Limit)

	return &model.StorageQuota{
		UsedBytes:      used,
		LimitBytes:     limit,
		RemainingBytes: limit - used,
		TrashBytes:     parseBytes(about.StorageQuota.UsageInDriveTrash),
	}, nil
}

// parseBackendTime parses the backend's RFC3339 timestamps, returning
// the zero time for absent values.
func parseBackendTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// parseBytes parses the backend's stringly-typed byte counters.
func parseBytes(value string) int64 {
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
