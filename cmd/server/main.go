package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/filmfolio/internal/catalog"
	"github.com/JonMunkholm/filmfolio/internal/catalog/layouts"
	"github.com/JonMunkholm/filmfolio/internal/config"
	"github.com/JonMunkholm/filmfolio/internal/importer"
	"github.com/JonMunkholm/filmfolio/internal/logging"
	"github.com/JonMunkholm/filmfolio/internal/store"
	"github.com/JonMunkholm/filmfolio/internal/web"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	if cfg.Import.LayoutsFile != "" {
		extra, err := layouts.LoadFile(cfg.Import.LayoutsFile)
		if err != nil {
			slog.Error("failed to load layouts file", "path", cfg.Import.LayoutsFile, "error", err)
			os.Exit(1)
		}
		slog.Info("layouts file loaded", "path", cfg.Import.LayoutsFile, "count", len(extra))
	}
	for _, l := range catalog.Layouts() {
		slog.Debug("layout registered", "name", l.Name, "media_type", l.MediaType, "min_fields", l.MinFields())
	}

	ctx := context.Background()
	backend, closeStore, err := store.Open(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	if err := backend.Migrate(ctx); err != nil {
		slog.Error("failed to migrate schema", "error", err)
		os.Exit(1)
	}

	limiter := importer.NewLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime)
	service := importer.NewService(backend, limiter, importer.ServiceConfig{
		MaxLineBytes:     cfg.Import.MaxLineBytes,
		Timeout:          cfg.Import.Timeout,
		ReportDir:        cfg.Import.ReportDir,
		RejectionPreview: cfg.Import.RejectionPreview,
	})

	server := web.NewServer(service, backend, cfg)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if active := limiter.ActiveCount(); active > 0 {
			slog.Info("waiting for imports to complete", "active", active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		closeStore()
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
