// Package archive implements the dedup cache against a Drive-style
// storage backend: look up previously mirrored assets by filename
// before ever re-fetching them from a marketplace.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"time"
)

const (
	// ClientTimeout bounds metadata calls. Uploads stream large files
	// and use their own request context instead.
	ClientTimeout = 30 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 10 * time.Second

	// lookupPageSize bounds the candidate page returned by the name index.
	lookupPageSize = 10
)

// ErrStorageUnavailable wraps backend failures: network errors,
// non-2xx responses and malformed payloads.
var ErrStorageUnavailable = errors.New("archive storage unavailable")

// directLinkFormat renders the stable share link for a stored object.
const directLinkFormat = "https://drive.google.com/uc?id=%s"

// Client talks to the storage backend's REST API.
type Client struct {
	http        *http.Client
	uploads     *http.Client
	baseURL     string
	accessToken string
	folderID    string
}

// NewClient creates a storage client for the given API base and folder.
func NewClient(baseURL, accessToken, folderID string) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   DialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: TLSHandshakeTimeout,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		http:        &http.Client{Timeout: ClientTimeout, Transport: transport},
		uploads:     &http.Client{Transport: transport},
		baseURL:     baseURL,
		accessToken: accessToken,
		folderID:    folderID,
	}
}

// fileResource is one entry in the backend's file list payload.
type fileResource struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	MimeType     string `json:"mimeType"`
	CreatedTime  string `json:"createdTime"`
	ModifiedTime string `json:"modifiedTime"`
}

// fileListResponse is the name index payload.
type fileListResponse struct {
	Files []fileResource `json:"files"`
}

// aboutResponse is the quota introspection payload.
type aboutResponse struct {
	StorageQuota struct {
		Limit             string `json:"limit"`
		Usage             string `json:"usage"`
		UsageInDriveTrash string `json:"usageInDriveTrash"`
	} `json:"storageQuota"`
}

// createResponse is the upload result payload.
type createResponse struct {
	ID string `json:"id"`
}

// ListByName queries the name index for files in the service folder
// whose names contain the search term. Returns at most one page.
func (c *Client) ListByName(ctx context.Context, search string) ([]fileResource, error) {
	query := fmt.Sprintf("'%s' in parents", c.folderID)
	if search != "" {
		query += fmt.Sprintf(" and name contains '%s'", escapeQueryTerm(search))
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("pageSize", strconv.Itoa(lookupPageSize))
	params.Set("fields", "files(id, name, mimeType, createdTime, modifiedTime)")

	endpoint := c.baseURL + "/drive/v3/files?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrStorageUnavailable, err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: HTTP %d listing files", ErrStorageUnavailable, resp.StatusCode)
	}

	var payload fileListResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode file list: %v", ErrStorageUnavailable, err)
	}

	return payload.Files, nil
}

// Create streams body into the service folder as a multipart upload
// and returns the new object's id. Duplicate names are tolerated; the
// name index resolves the newest at lookup time.
func (c *Client) Create(ctx context.Context, name, mimeType string, body io.Reader) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		metadata := map[string]any{
			"name":    name,
			"parents": []string{c.folderID},
		}

		metaHeader := textproto.MIMEHeader{}
		metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
		metaPart, err := mw.CreatePart(metaHeader)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if err := json.NewEncoder(metaPart).Encode(metadata); err != nil {
			pw.CloseWithError(err)
			return
		}

		mediaHeader := textproto.MIMEHeader{}
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		mediaHeader.Set("Content-Type", mimeType)
		mediaPart, err := mw.CreatePart(mediaHeader)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(mediaPart, body); err != nil {
			pw.CloseWithError(err)
			return
		}

		pw.CloseWithError(mw.Close())
	}()

	endpoint := c.baseURL + "/upload/drive/v3/files?uploadType=multipart&fields=id"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		return "", fmt.Errorf("%w: create upload request: %v", ErrStorageUnavailable, err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())

	resp, err := c.uploads.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: HTTP %d uploading %s", ErrStorageUnavailable, resp.StatusCode, name)
	}

	var payload createResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: decode upload response: %v", ErrStorageUnavailable, err)
	}
	if payload.ID == "" {
		return "", fmt.Errorf("%w: upload returned no object id", ErrStorageUnavailable)
	}

	return payload.ID, nil
}

// About fetches the backend's storage quota counters.
func (c *Client) About(ctx context.Context) (*aboutResponse, error) {
	endpoint := c.baseURL + "/drive/v3/about?fields=storageQuota"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrStorageUnavailable, err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: HTTP %d fetching quota", ErrStorageUnavailable, resp.StatusCode)
	}

	var payload aboutResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode quota response: %v", ErrStorageUnavailable, err)
	}

	return &payload, nil
}

// authorize attaches the bearer credential to a backend request.
func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
}

// escapeQueryTerm escapes single quotes in a name index search term.
func escapeQueryTerm(term string) string {
	escaped := make([]byte, 0, len(term))
	for i := 0; i < len(term); i++ {
		if term[i] == '\'' {
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, term[i])
	}
	return string(escaped)
}
