package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leakdex/leakdex/internal/aggregator"
	"github.com/leakdex/leakdex/internal/cache"
	"github.com/leakdex/leakdex/internal/config"
	"github.com/leakdex/leakdex/internal/handlers"
	"github.com/leakdex/leakdex/internal/ingest"
	"github.com/leakdex/leakdex/internal/logging"
	"github.com/leakdex/leakdex/internal/queue"
	"github.com/leakdex/leakdex/internal/registry"
	"github.com/leakdex/leakdex/internal/router"
	"github.com/leakdex/leakdex/internal/search"
	"github.com/leakdex/leakdex/internal/tasks"
	"github.com/leakdex/leakdex/internal/utils"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("leakdex starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	// Node registry (etcd by default)
	logger.Info("Connecting to node registry", "type", cfg.Registry.Type, "endpoints", cfg.Registry.Endpoints)
	reg, err := registry.NewStore(cfg.Registry)
	if err != nil {
		logger.Fatal("Failed to connect to node registry", "error", err)
	}
	defer func() { _ = reg.Close() }()

	// Event bus
	logger.Info("Connecting to queue", "type", cfg.Queue.Type, "url", cfg.Queue.URL)
	bus, err := queue.NewQueue(cfg.Queue)
	if err != nil {
		logger.Fatal("Failed to connect to queue", "error", err)
	}
	defer func() { _ = bus.Close() }()

	// Remote search clients, index cache, aggregator, tasks, ingest
	clients := search.NewFactory(cfg.Search.RequestTimeout)
	cacheStore := cache.New(reg, clients, cfg.Cache.SnapshotPath, cfg.Cache.ProbeTimeout, logger)
	agg := aggregator.New(cacheStore, reg, clients, cfg.Search, logger)
	taskReg := tasks.NewRegistry()
	ingestSvc := ingest.New(cfg.Ingest, reg, clients, taskReg, bus, logger)

	// Freshly ingested indices become searchable without a manual refresh.
	err = bus.Subscribe(utils.SubjectIngestCompleted, func(data []byte) error {
		ctx, cancel := context.WithTimeout(context.Background(), utils.DefaultRequestTimeout)
		defer cancel()

		if _, _, err := cacheStore.Refresh(ctx); err != nil {
			logger.Error("Cache refresh after ingest failed", "error", err)
			return err
		}
		return nil
	})
	if err != nil {
		logger.Fatal("Failed to subscribe to ingest events", "error", err)
	}

	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all admin requests will be allowed")
	}

	h := handlers.New(logger, reg, cacheStore, agg, taskReg, ingestSvc, clients, bus)
	app := router.New(logger, h, router.AuthConfig{
		Enabled: cfg.Auth.Enabled,
		APIKeys: cfg.Auth.APIKeys,
	})

	// Start server in goroutine
	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort)
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
