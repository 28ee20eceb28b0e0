package relay

import (
	"context"
	"fmt"
	"io"

	"github.com/example/book-upload-relay/domain/book"
	"github.com/example/book-upload-relay/modules/deployapi"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
)

// Module wires the relay service into the mono application.
type Module struct {
	cfg     Config
	metrics *Metrics
	service *Service
	logger  types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new relay module and registers its collectors with registry.
func NewModule(cfg Config, registry prometheus.Registerer, logger types.Logger) *Module {
	return &Module{
		cfg:     cfg,
		metrics: MustNewMetrics(registry),
		logger:  logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "relay"
}

// Start builds the deploy client and the relay service.
// Missing credentials do not stop the module; every request reports them instead.
func (m *Module) Start(ctx context.Context) error {
	namer, err := NewNamer()
	if err != nil {
		return fmt.Errorf("failed to start relay: %w", err)
	}

	client := deployapi.NewClient(m.cfg.Deploy, nil)
	m.service = NewService(m.cfg, client, namer, m.metrics, m.logger)

	if err := m.cfg.CheckConfig(); err != nil {
		m.logger.Warn("Relay started without deploy credentials", "error", err)
	}
	m.logger.Info("Relay module started",
		"api", client.BaseURL(),
		"max_request_bytes", m.cfg.MaxRequestBytes,
		"upload_concurrency", m.cfg.UploadConcurrency)
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(ctx context.Context) error {
	m.logger.Info("Relay module stopped")
	return nil
}

// Health reports whether deploy credentials are present.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	configured := m.cfg.CheckConfig() == nil
	message := "configured"
	if !configured {
		message = "missing deploy credentials"
	}
	return mono.HealthStatus{
		Healthy: m.service != nil && configured,
		Message: message,
		Details: map[string]any{
			"site_id_set": m.cfg.Deploy.SiteID != "",
		},
	}
}

// Relay forwards to the service once the module has started.
func (m *Module) Relay(ctx context.Context, contentType string, body io.Reader) (*book.PublicResult, error) {
	if m.service == nil {
		return nil, fmt.Errorf("relay module not started")
	}
	return m.service.Relay(ctx, contentType, body)
}
