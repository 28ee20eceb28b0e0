package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/example/book-upload-relay/domain/book"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// CatalogPort defines the interface for catalog operations from other modules.
type CatalogPort interface {
	SaveBook(ctx context.Context, rec book.Record) (*book.Record, error)
	GetBook(ctx context.Context, id string) (*book.Record, error)
	ListBooks(ctx context.Context, limit, offset int) (*ListBooksResponse, error)
}

// catalogAdapter wraps ServiceContainer for type-safe cross-module communication.
type catalogAdapter struct {
	container mono.ServiceContainer
}

// NewCatalogAdapter creates a new adapter for catalog services.
func NewCatalogAdapter(container mono.ServiceContainer) CatalogPort {
	if container == nil {
		panic("catalog adapter requires non-nil ServiceContainer")
	}
	return &catalogAdapter{container: container}
}

// remoteError restores the catalog sentinel carried in a service reply's error text.
func remoteError(service string, err error) error {
	for _, sentinel := range []error{ErrBookNotFound, ErrInvalidBookID, ErrInvalidBook} {
		if strings.Contains(err.Error(), sentinel.Error()) {
			return fmt.Errorf("%s service call failed: %w: %v", service, sentinel, err)
		}
	}
	return fmt.Errorf("%s service call failed: %w", service, err)
}

// SaveBook stores a record via the save-book service.
func (a *catalogAdapter) SaveBook(ctx context.Context, rec book.Record) (*book.Record, error) {
	req := SaveBookRequest{Record: rec}
	var resp SaveBookResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"save-book",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, remoteError("save-book", err)
	}
	return &resp.Record, nil
}

// GetBook retrieves a record by ID via the get-book service.
func (a *catalogAdapter) GetBook(ctx context.Context, id string) (*book.Record, error) {
	req := GetBookRequest{ID: id}
	var resp GetBookResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"get-book",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, remoteError("get-book", err)
	}
	return &resp.Record, nil
}

// ListBooks lists records via the list-books service.
func (a *catalogAdapter) ListBooks(ctx context.Context, limit, offset int) (*ListBooksResponse, error) {
	req := ListBooksRequest{Limit: limit, Offset: offset}
	var resp ListBooksResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"list-books",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, remoteError("list-books", err)
	}
	return &resp, nil
}
