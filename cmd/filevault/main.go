package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Schwartzmorn/filevault/internal/httpapi"
	"github.com/Schwartzmorn/filevault/internal/logger"
	"github.com/Schwartzmorn/filevault/pkg/config"
	"github.com/Schwartzmorn/filevault/pkg/gc"
	"github.com/Schwartzmorn/filevault/pkg/metrics"
	metricsProm "github.com/Schwartzmorn/filevault/pkg/metrics/prometheus"
)

func main() {
	configPath := flag.String("config", "", fmt.Sprintf("Path to config file (default: %s)", config.GetDefaultConfigPath()))
	listenAddress := flag.String("listen", "", "Listen address override (host:port)")
	logLevel := flag.String("log-level", "", "Log level override (DEBUG, INFO, WARN, ERROR)")
	flag.Parse()

	if err := run(*configPath, *listenAddress, *logLevel); err != nil {
		logger.Fatal("%v", err)
	}
}

func run(configPath, listenAddress, logLevel string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Flags beat file and environment.
	if listenAddress != "" {
		cfg.Server.ListenAddress = listenAddress
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger.SetLevel(cfg.Logging.Level)

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
	}

	ctx := context.Background()

	vaultStore, err := config.CreateVaultStore(ctx, &cfg.Vault)
	if err != nil {
		return fmt.Errorf("failed to create vault store: %w", err)
	}
	defer func() {
		if err := vaultStore.Close(); err != nil {
			logger.Error("Failed to close vault store: %v", err)
		}
	}()

	contentStore, err := config.CreateContentStore(ctx, &cfg.Content)
	if err != nil {
		return fmt.Errorf("failed to create content store: %w", err)
	}

	collector, err := gc.NewCollector(vaultStore, contentStore, gc.Config{
		Enabled:   cfg.GC.Enabled,
		Interval:  cfg.GC.Interval,
		BatchSize: cfg.GC.BatchSize,
		DryRun:    cfg.GC.DryRun,
	}, metricsProm.NewGCMetrics())
	if err != nil {
		return fmt.Errorf("failed to create garbage collector: %w", err)
	}
	collector.Start()

	handler := httpapi.NewHandler(httpapi.Config{
		Store:            vaultStore,
		Contents:         contentStore,
		Metrics:          metricsProm.NewHTTPMetrics(),
		MaxSnapshotBytes: cfg.Server.MaxSnapshotBytes,
	})

	server := &http.Server{
		Addr:         cfg.Server.ListenAddress,
		Handler:      httpapi.NewRouter(handler, metrics.GetRegistry()),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Listening on %s (vault=%s content=%s)", cfg.Server.ListenAddress, cfg.Vault.Type, cfg.Content.Type)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-sigChan:
		logger.Info("Received %s, shutting down...", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown: %v", err)
	}
	if err := collector.Stop(shutdownCtx); err != nil {
		logger.Warn("Garbage collector shutdown: %v", err)
	}

	logger.Info("Shutdown complete")
	return nil
}
