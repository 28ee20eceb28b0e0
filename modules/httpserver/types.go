package httpserver

import "github.com/example/book-upload-relay/domain/book"

// UploadResponse is the body returned by a successful relay call.
type UploadResponse struct {
	Success bool   `json:"success"`
	Cover   string `json:"cover"`
	PDF     string `json:"pdf"`
	Deploy  string `json:"deploy"`
}

// ListBooksResponse is the body returned by GET /api/v1/books.
type ListBooksResponse struct {
	Books  []book.Record `json:"books"`
	Total  int           `json:"total"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status  string         `json:"status"`
	Service string         `json:"service"`
	Details map[string]any `json:"details,omitempty"`
}
