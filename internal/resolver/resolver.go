// Package resolver turns submitted marketplace URLs into direct
// download links and canonical filenames. One adapter per marketplace;
// adapters are stateless and never touch application state.
package resolver

import (
	"context"
	"errors"
	"strings"
)

// Errors surfaced by resolver adapters.
var (
	// ErrUnsupportedURL means no adapter recognizes the URL.
	ErrUnsupportedURL = errors.New("unsupported marketplace URL")
	// ErrResolutionFailed wraps upstream failures: network errors,
	// non-2xx responses and malformed payloads. Never retried here.
	ErrResolutionFailed = errors.New("resolution failed")
)

// Asset is the resolved view of a marketplace item.
type Asset struct {
	// AssetID is the marketplace's identifier, empty for adapters that
	// derive everything from the URL.
	AssetID string
	// Filename is the canonical name used for dedup lookups.
	Filename string
	// DirectLink is a time-limited download URL, or a placeholder for
	// adapters without a download endpoint.
	DirectLink string
}

// Resolver resolves one marketplace's URLs.
type Resolver interface {
	// Matches reports whether this adapter handles the URL.
	Matches(url string) bool
	// Resolve extracts the asset id and obtains the canonical filename
	// and direct link. Only outbound HTTP calls, no state mutation.
	Resolve(ctx context.Context, url string) (*Asset, error)
}

// Registry selects the adapter for a submitted URL.
type Registry struct {
	resolvers []Resolver
}

// NewRegistry creates a Registry over the given adapters.
// Order matters: the first match wins.
func NewRegistry(resolvers ...Resolver) *Registry {
	return &Registry{resolvers: resolvers}
}

// Select returns the adapter handling the URL, or ErrUnsupportedURL.
func (r *Registry) Select(url string) (Resolver, error) {
	for _, res := range r.resolvers {
		if res.Matches(url) {
			return res, nil
		}
	}
	return nil, ErrUnsupportedURL
}

// Supported reports whether any adapter handles the URL.
func (r *Registry) Supported(url string) bool {
	_, err := r.Select(url)
	return err == nil
}

// hostContains is a loose marketplace check over the URL string,
// matching how submissions name their source.
func hostContains(url, marker string) bool {
	return strings.Contains(strings.ToLower(url), marker)
}
