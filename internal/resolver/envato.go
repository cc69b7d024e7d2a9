package resolver

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Envato slugs end with an opaque item token, e.g.
// https://elements.envato.com/stock-photo-slug-ABC123XY
var envatoSuffixPattern = regexp.MustCompile(`-\w+$`)

// PendingDirectLink is returned for assets that have no download
// endpoint. Fulfillment records it until the cache holds the asset.
const PendingDirectLink = "waiting from server"

// EnvatoResolver derives the canonical filename heuristically from the
// URL's last path segment. There is no metadata call; the derived name
// feeds the dedup lookup directly.
type EnvatoResolver struct{}

// NewEnvatoResolver creates an EnvatoResolver.
func NewEnvatoResolver() *EnvatoResolver {
	return &EnvatoResolver{}
}

// Matches reports whether the URL belongs to Envato.
func (r *EnvatoResolver) Matches(rawURL string) bool {
	return hostContains(rawURL, "envato")
}

// Resolve derives the filename from the last path segment, stripping
// the trailing item token.
func (r *EnvatoResolver) Resolve(ctx context.Context, rawURL string) (*Asset, error) {
	trimmed := strings.TrimRight(rawURL, "/")
	segment := trimmed
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		segment = trimmed[idx+1:]
	}
	if segment == "" {
		return nil, fmt.Errorf("%w: no path segment in URL", ErrResolutionFailed)
	}

	filename := envatoSuffixPattern.ReplaceAllString(segment, "")
	if filename == "" {
		return nil, fmt.Errorf("%w: empty filename after stripping suffix", ErrResolutionFailed)
	}

	return &Asset{
		Filename:   filename,
		DirectLink: PendingDirectLink,
	}, nil
}
