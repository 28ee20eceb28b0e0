package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/example/book-upload-relay/modules/catalog"
	"github.com/example/book-upload-relay/modules/relay"
	"github.com/gin-gonic/gin"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// uploadAlias keeps the serverless function path that existing forms post to.
const uploadAlias = "/.netlify/functions/upload"

// A relay request carries up to 150 MiB in and pushes most of it out again before answering.
const (
	DefaultReadTimeout  = 10 * time.Minute
	DefaultWriteTimeout = 15 * time.Minute
)

// Config holds the listener settings. A zero timeout disables it.
type Config struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns the listener settings used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Port:         3000,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
}

// Module implements an HTTP server using the Gin framework.
type Module struct {
	cfg         Config
	server      *http.Server
	engine      *gin.Engine
	handlers    *Handlers
	relayModule *relay.Module
	catalog     catalog.CatalogPort
	gatherer    prometheus.Gatherer
	logger      types.Logger
}

// Compile-time interface checks
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.DependentModule       = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new HTTP server module.
func NewModule(cfg Config, gatherer prometheus.Gatherer, logger types.Logger) *Module {
	return &Module{
		cfg:      cfg,
		gatherer: gatherer,
		logger:   logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "http-server"
}

// SetRelayModule sets the relay module dependency.
func (m *Module) SetRelayModule(relayModule *relay.Module) {
	m.relayModule = relayModule
}

// Dependencies returns the list of module dependencies.
func (m *Module) Dependencies() []string {
	return []string{"catalog"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "catalog":
		m.catalog = catalog.NewCatalogAdapter(container)
	}
}

// Start initializes and starts the HTTP server.
func (m *Module) Start(ctx context.Context) error {
	if m.relayModule == nil {
		return fmt.Errorf("relay module not set")
	}
	if m.catalog == nil {
		return fmt.Errorf("catalog dependency not set")
	}

	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	m.handlers = NewHandlers(m.relayModule, m.catalog)
	m.setupEngine()

	m.server = m.newServer()

	go func() {
		m.logger.Info("HTTP server starting",
			"port", m.cfg.Port,
			"read_timeout", m.cfg.ReadTimeout.String(),
			"write_timeout", m.cfg.WriteTimeout.String())
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("HTTP server error", "error", err)
		}
	}()

	return nil
}

// newServer wraps the engine in an http.Server with the configured timeouts.
func (m *Module) newServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", m.cfg.Port),
		Handler:           m.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       m.cfg.ReadTimeout,
		WriteTimeout:      m.cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}
}

// Stop gracefully shuts down the HTTP server.
func (m *Module) Stop(ctx context.Context) error {
	if m.server != nil {
		m.logger.Info("Shutting down HTTP server")
		return m.server.Shutdown(ctx)
	}
	return nil
}

// Health returns the health status of the module.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.server != nil,
		Message: "operational",
		Details: map[string]any{
			"port": m.cfg.Port,
		},
	}
}

// setupEngine builds the gin engine around m.handlers.
func (m *Module) setupEngine() {
	m.engine = gin.New()

	m.engine.Use(gin.Recovery())
	m.engine.Use(m.loggingMiddleware())
	m.engine.Use(m.corsMiddleware())

	m.engine.HandleMethodNotAllowed = true
	m.engine.NoMethod(m.handlers.MethodNotAllowed)

	m.registerRoutes()
}

// registerRoutes sets up all HTTP routes.
func (m *Module) registerRoutes() {
	m.engine.GET("/health", m.handlers.HealthCheck)

	if m.gatherer != nil {
		m.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})))
	}

	m.engine.POST(uploadAlias, m.handlers.Upload)

	v1 := m.engine.Group("/api/v1")
	{
		v1.POST("/upload", m.handlers.Upload)

		books := v1.Group("/books")
		{
			books.POST("", m.handlers.CreateBook)
			books.GET("", m.handlers.ListBooks)
			books.GET("/:id", m.handlers.GetBook)
		}
	}
}

// loggingMiddleware provides request logging.
func (m *Module) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		m.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

// corsMiddleware lets browser forms on any origin call the relay.
func (m *Module) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
