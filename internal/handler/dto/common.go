// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	// Status carries the existing request's state on duplicate
	// submissions so callers can poll instead of resubmitting.
	Status string `json:"status,omitempty"`
}

// Pagination describes page-based pagination metadata.
type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
}
