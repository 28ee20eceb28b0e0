package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	fsjetstream "github.com/go-monolith/mono/plugin/fs-jetstream"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// BucketName is the fs-jetstream bucket holding book records.
const BucketName = "books"

// Module keeps generated book records in an fs-jetstream bucket and serves them to
// other modules as request-reply services.
type Module struct {
	storage *fsjetstream.PluginModule
	service *Service
	logger  types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.UsePluginModule       = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new catalog module.
func NewModule(logger types.Logger) *Module {
	return &Module{
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "catalog"
}

// SetPlugin receives the storage plugin from the framework.
func (m *Module) SetPlugin(alias string, plugin mono.PluginModule) {
	if alias == "storage" {
		storage, ok := plugin.(*fsjetstream.PluginModule)
		if !ok {
			m.logger.Error("Invalid plugin type for storage",
				"alias", alias,
				"expected", "*fsjetstream.PluginModule")
			return
		}
		m.storage = storage
		m.logger.Info("Received storage plugin", "alias", alias)
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		"save-book",
		json.Unmarshal,
		json.Marshal,
		m.saveBook,
	); err != nil {
		return fmt.Errorf("failed to register save-book service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		"get-book",
		json.Unmarshal,
		json.Marshal,
		m.getBook,
	); err != nil {
		return fmt.Errorf("failed to register get-book service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		"list-books",
		json.Unmarshal,
		json.Marshal,
		m.listBooks,
	); err != nil {
		return fmt.Errorf("failed to register list-books service: %w", err)
	}

	m.logger.Info("Registered services", "services", "save-book, get-book, list-books")
	return nil
}

// Start initializes the module and its service.
func (m *Module) Start(ctx context.Context) error {
	if m.storage == nil {
		return fmt.Errorf("required plugin 'storage' not registered")
	}

	bucket := m.storage.Bucket(BucketName)
	if bucket == nil {
		return fmt.Errorf("bucket '%s' not found in storage plugin", BucketName)
	}

	m.service = NewService(NewBucketStore(bucket))

	m.logger.Info("Catalog module started", "bucket", BucketName)
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(ctx context.Context) error {
	m.logger.Info("Catalog module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.service != nil,
		Message: "operational",
		Details: map[string]any{
			"bucket": BucketName,
		},
	}
}

func (m *Module) saveBook(ctx context.Context, req SaveBookRequest, _ *mono.Msg) (SaveBookResponse, error) {
	rec, err := m.service.Save(ctx, req.Record)
	if err != nil {
		return SaveBookResponse{}, err
	}
	m.logger.Info("Book saved", "id", rec.ID, "title", rec.Title)
	return SaveBookResponse{Record: *rec}, nil
}

func (m *Module) getBook(ctx context.Context, req GetBookRequest, _ *mono.Msg) (GetBookResponse, error) {
	rec, err := m.service.Get(ctx, req.ID)
	if err != nil {
		return GetBookResponse{}, err
	}
	return GetBookResponse{Record: *rec}, nil
}

func (m *Module) listBooks(ctx context.Context, req ListBooksRequest, _ *mono.Msg) (ListBooksResponse, error) {
	books, total, err := m.service.List(ctx, req.Limit, req.Offset)
	if err != nil {
		return ListBooksResponse{}, err
	}
	return ListBooksResponse{Books: books, Total: total}, nil
}
