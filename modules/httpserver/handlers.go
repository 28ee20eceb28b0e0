package httpserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/example/book-upload-relay/domain/book"
	"github.com/example/book-upload-relay/modules/catalog"
	"github.com/example/book-upload-relay/modules/relay"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Relayer publishes a multipart upload and returns its public URLs.
type Relayer interface {
	Relay(ctx context.Context, contentType string, body io.Reader) (*book.PublicResult, error)
}

// Handlers contains HTTP request handlers for relay and catalog operations.
type Handlers struct {
	relay   Relayer
	catalog catalog.CatalogPort
}

// NewHandlers creates a new handlers instance.
func NewHandlers(relayer Relayer, books catalog.CatalogPort) *Handlers {
	return &Handlers{relay: relayer, catalog: books}
}

// handleRelayError writes an appropriate HTTP error response for relay errors.
func handleRelayError(c *gin.Context, err error) {
	var uploadErr *relay.FileUploadError
	switch {
	case relay.IsBadInput(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, relay.ErrNotConfigured):
		c.JSON(http.StatusInternalServerError, gin.H{"error": relay.ErrNotConfigured.Error()})
	case errors.As(err, &uploadErr):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to upload file",
			"path":    uploadErr.Path,
			"details": uploadErr.Err.Error(),
		})
	case errors.Is(err, relay.ErrDeployFailed):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to create deploy",
			"details": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"details": err.Error(),
		})
	}
}

// handleCatalogError writes an appropriate HTTP error response for catalog errors.
func handleCatalogError(c *gin.Context, err error, operation string) {
	if errors.Is(err, catalog.ErrBookNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Book not found"})
		return
	}
	if errors.Is(err, catalog.ErrInvalidBookID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid book ID format"})
		return
	}
	if errors.Is(err, catalog.ErrInvalidBook) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid book record",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   fmt.Sprintf("Failed to %s", operation),
		"details": err.Error(),
	})
}

// Upload relays a cover and pdf to the static host (POST /api/v1/upload).
// The body is streamed into the relay; gin never buffers the multipart form.
func (h *Handlers) Upload(c *gin.Context) {
	result, err := h.relay.Relay(c.Request.Context(), c.GetHeader("Content-Type"), c.Request.Body)
	if err != nil {
		handleRelayError(c, err)
		return
	}

	c.JSON(http.StatusOK, UploadResponse{
		Success: true,
		Cover:   result.Cover,
		PDF:     result.PDF,
		Deploy:  result.DeployID,
	})
}

// MethodNotAllowed answers requests whose path exists under another method.
func (h *Handlers) MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method Not Allowed"})
}

// CreateBook stores a book record (POST /api/v1/books).
func (h *Handlers) CreateBook(c *gin.Context) {
	var rec book.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid JSON body",
			"details": err.Error(),
		})
		return
	}

	saved, err := h.catalog.SaveBook(c.Request.Context(), rec)
	if err != nil {
		handleCatalogError(c, err, "save book")
		return
	}

	c.JSON(http.StatusCreated, saved)
}

// ListBooks handles book listing requests (GET /api/v1/books).
func (h *Handlers) ListBooks(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	if limit > maxPageSize {
		limit = maxPageSize
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}

	resp, err := h.catalog.ListBooks(c.Request.Context(), limit, offset)
	if err != nil {
		handleCatalogError(c, err, "list books")
		return
	}

	books := resp.Books
	if books == nil {
		books = []book.Record{}
	}
	c.JSON(http.StatusOK, ListBooksResponse{
		Books:  books,
		Total:  resp.Total,
		Limit:  limit,
		Offset: offset,
	})
}

// GetBook handles book lookup requests (GET /api/v1/books/:id).
func (h *Handlers) GetBook(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Book ID is required"})
		return
	}

	rec, err := h.catalog.GetBook(c.Request.Context(), id)
	if err != nil {
		handleCatalogError(c, err, "get book")
		return
	}

	c.JSON(http.StatusOK, rec)
}

// HealthCheck handles health check requests (GET /health).
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: "book-upload-relay",
	})
}
