package catalog

import (
	"github.com/example/book-upload-relay/domain/book"
)

// SaveBookRequest represents a save book request.
type SaveBookRequest struct {
	Record book.Record `json:"record"`
}

// SaveBookResponse represents a save book response.
type SaveBookResponse struct {
	Record book.Record `json:"record"`
}

// GetBookRequest represents a get book request.
type GetBookRequest struct {
	ID string `json:"id"`
}

// GetBookResponse represents a get book response.
type GetBookResponse struct {
	Record book.Record `json:"record"`
}

// ListBooksRequest represents a list books request.
type ListBooksRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// ListBooksResponse represents a list books response, newest first.
type ListBooksResponse struct {
	Books []book.Record `json:"books"`
	Total int           `json:"total"`
}
