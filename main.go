package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/example/book-upload-relay/domain/book"
	catalogmod "github.com/example/book-upload-relay/modules/catalog"
	"github.com/example/book-upload-relay/modules/deployapi"
	httpservermod "github.com/example/book-upload-relay/modules/httpserver"
	relaymod "github.com/example/book-upload-relay/modules/relay"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	fsjetstream "github.com/go-monolith/mono/plugin/fs-jetstream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration from environment
	httpCfg := httpservermod.DefaultConfig()
	httpCfg.Port = getEnvInt("HTTP_PORT", httpCfg.Port)
	httpCfg.ReadTimeout = getEnvDuration("HTTP_READ_TIMEOUT", httpCfg.ReadTimeout)
	httpCfg.WriteTimeout = getEnvDuration("HTTP_WRITE_TIMEOUT", httpCfg.WriteTimeout)
	storagePath := getEnv("STORAGE_PATH", "/tmp/book-upload-relay")

	relayCfg := relaymod.DefaultConfig()
	relayCfg.MaxRequestBytes = getEnvInt64("MAX_UPLOAD_SIZE", relaymod.DefaultMaxRequestBytes)
	relayCfg.MaxPartBytes[book.KindCover] = getEnvInt64("MAX_COVER_SIZE", relaymod.DefaultMaxCoverBytes)
	relayCfg.MaxPartBytes[book.KindPDF] = getEnvInt64("MAX_PDF_SIZE", relaymod.DefaultMaxPDFBytes)
	relayCfg.UploadConcurrency = getEnvInt("UPLOAD_CONCURRENCY", relaymod.DefaultUploadConcurrency)
	relayCfg.SoftDeadline = getEnvDuration("RELAY_SOFT_DEADLINE", relaymod.DefaultSoftDeadline)
	relayCfg.Deploy.BaseURL = getEnv("NETLIFY_API_URL", deployapi.DefaultBaseURL)
	relayCfg.Deploy.Token = os.Getenv("NETLIFY_AUTH_TOKEN")
	relayCfg.Deploy.SiteID = os.Getenv("NETLIFY_SITE_ID")

	log.Println("=== Book Upload Relay ===")
	log.Printf("HTTP Port: %d", httpCfg.Port)
	log.Printf("HTTP Read/Write Timeout: %s / %s", httpCfg.ReadTimeout, httpCfg.WriteTimeout)
	log.Printf("Max Upload Size: %d bytes", relayCfg.MaxRequestBytes)
	log.Printf("Deploy API: %s", relayCfg.Deploy.BaseURL)
	log.Printf("Deploy Site Configured: %t", relayCfg.CheckConfig() == nil)
	log.Printf("Storage Path: %s", storagePath)

	// Create mono application with embedded NATS JetStream
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
		mono.WithJetStreamStorageDir(storagePath),
	)
	if err != nil {
		log.Fatalf("Failed to create mono application: %v", err)
	}

	// Book records only; the uploaded files themselves go to the static host.
	storagePlugin, err := fsjetstream.New(fsjetstream.Config{
		Buckets: []fsjetstream.BucketConfig{
			{
				Name:        catalogmod.BucketName,
				Description: "Book catalog records",
				MaxBytes:    64 * 1024 * 1024,
				Storage:     fsjetstream.FileStorage,
				Compression: true,
			},
		},
	})
	if err != nil {
		log.Fatalf("Failed to create storage plugin: %v", err)
	}

	if err := app.RegisterPlugin(storagePlugin, "storage"); err != nil {
		log.Fatalf("Failed to register storage plugin: %v", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Create modules
	relayModule := relaymod.NewModule(relayCfg, registry, app.Logger())
	catalogModule := catalogmod.NewModule(app.Logger())
	httpServerModule := httpservermod.NewModule(httpCfg, registry, app.Logger())

	// Wire up dependencies
	httpServerModule.SetRelayModule(relayModule)

	// Register modules
	app.Register(relayModule)
	app.Register(catalogModule)
	app.Register(httpServerModule)

	// Start the application
	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}

	log.Println("=== Application Started ===")
	log.Printf("API available at http://localhost:%d", httpCfg.Port)
	log.Println("Endpoints:")
	log.Println("  GET    /health                      - Health check")
	log.Println("  GET    /metrics                     - Prometheus metrics")
	log.Println("  POST   /api/v1/upload               - Relay a cover and pdf")
	log.Println("  POST   /.netlify/functions/upload   - Relay (compatibility path)")
	log.Println("  POST   /api/v1/books                - Register a book record")
	log.Println("  GET    /api/v1/books                - List book records")
	log.Println("  GET    /api/v1/books/:id            - Get a book record")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown")

	// Setup graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	// Wait for shutdown signal
	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns environment variable as int or default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: invalid int value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvInt64 returns environment variable as int64 or default.
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
		log.Printf("Warning: invalid int64 value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration returns environment variable as time.Duration or default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Warning: invalid duration value for %s: %s, using default: %s", key, value, defaultValue)
	}
	return defaultValue
}
