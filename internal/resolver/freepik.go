package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
)

// Freepik URLs embed a numeric asset id before the .htm suffix,
// e.g. https://www.freepik.com/free-vector/some-asset_12345.htm
var freepikIDPattern = regexp.MustCompile(`_(\d+)\.htm`)

// FreepikResolver resolves Freepik URLs through the provider's
// resource metadata and download endpoints. Both calls carry the
// service API key.
type FreepikResolver struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// resourceResponse is the metadata endpoint payload.
type resourceResponse struct {
	Data struct {
		Filename string `json:"filename"`
	} `json:"data"`
}

// downloadResponse is the download endpoint payload.
type downloadResponse struct {
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
}

// NewFreepikResolver creates a FreepikResolver against the given API base.
func NewFreepikResolver(baseURL, apiKey string) *FreepikResolver {
	return &FreepikResolver{
		client:  NewHTTPClient(),
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// NewFreepikResolverWithClient creates a FreepikResolver with a custom
// HTTP client, used by tests.
func NewFreepikResolverWithClient(baseURL, apiKey string, client *http.Client) *FreepikResolver {
	return &FreepikResolver{
		client:  client,
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// Matches reports whether the URL belongs to Freepik.
func (r *FreepikResolver) Matches(rawURL string) bool {
	return hostContains(rawURL, "freepik")
}

// Resolve extracts the asset id from the URL, fetches the canonical
// filename from the metadata endpoint, then obtains a time-limited
// direct link from the download endpoint.
func (r *FreepikResolver) Resolve(ctx context.Context, rawURL string) (*Asset, error) {
	matches := freepikIDPattern.FindStringSubmatch(rawURL)
	if len(matches) < 2 {
		return nil, fmt.Errorf("%w: no asset id in URL", ErrResolutionFailed)
	}
	assetID := matches[1]

	filename, err := r.fetchFilename(ctx, assetID)
	if err != nil {
		return nil, err
	}

	directLink, err := r.fetchDirectLink(ctx, assetID)
	if err != nil {
		return nil, err
	}

	return &Asset{
		AssetID:    assetID,
		Filename:   filename,
		DirectLink: directLink,
	}, nil
}

// fetchFilename calls the resource metadata endpoint.
func (r *FreepikResolver) fetchFilename(ctx context.Context, assetID string) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/resource?id=%s", r.baseURL, url.QueryEscape(assetID))

	var payload resourceResponse
	if err := r.getJSON(ctx, endpoint, &payload); err != nil {
		return "", err
	}
	if payload.Data.Filename == "" {
		return "", fmt.Errorf("%w: empty filename for asset %s", ErrResolutionFailed, assetID)
	}

	return payload.Data.Filename, nil
}

// fetchDirectLink calls the download endpoint for a time-limited URL.
func (r *FreepikResolver) fetchDirectLink(ctx context.Context, assetID string) (string, error) {
	endpoint := fmt.Sprintf("%s/v1/resources/%s/download", r.baseURL, url.PathEscape(assetID))

	var payload downloadResponse
	if err := r.getJSON(ctx, endpoint, &payload); err != nil {
		return "", err
	}
	if payload.Data.URL == "" {
		return "", fmt.Errorf("%w: empty download URL for asset %s", ErrResolutionFailed, assetID)
	}

	return payload.Data.URL, nil
}

// getJSON performs an authenticated GET and decodes the JSON body.
func (r *FreepikResolver) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", ErrResolutionFailed, err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Language", "en")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Freepik-API-Key", r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResolutionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain to allow connection reuse
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: HTTP %d from %s", ErrResolutionFailed, resp.StatusCode, endpoint)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrResolutionFailed, err)
	}

	return nil
}
