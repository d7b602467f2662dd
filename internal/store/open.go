// Package store opens the record store selected by configuration.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/JonMunkholm/filmfolio/internal/config"
	"github.com/JonMunkholm/filmfolio/internal/importer"
	"github.com/JonMunkholm/filmfolio/internal/store/postgres"
	"github.com/JonMunkholm/filmfolio/internal/store/sqlite"
)

// Backend is a record store the commands can run against.
type Backend interface {
	importer.Store
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
}

// Open connects to the configured store and verifies the connection. The
// returned func releases it.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Backend, func(), error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, postgres.Config{
			URL:             cfg.URL,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: cfg.MaxConnLifetime,
			MaxConnIdleTime: cfg.MaxConnIdleTime,
		})
		if err != nil {
			return nil, nil, err
		}
		slog.Info("connected to database", "driver", config.DriverPostgres, "name", databaseName(cfg.URL))
		return s, s.Close, nil

	case config.DriverSQLite:
		sc := sqlite.DefaultConfig()
		if cfg.SQLiteBusyTimeout > 0 {
			sc.BusyTimeout = cfg.SQLiteBusyTimeout
		}
		s, err := sqlite.Open(cfg.SQLitePath, sc)
		if err != nil {
			return nil, nil, err
		}
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("sqlite: ping: %w", err)
		}
		slog.Info("connected to database", "driver", config.DriverSQLite, "path", cfg.SQLitePath)
		return s, func() {
			if err := s.Close(); err != nil {
				slog.Warn("close sqlite store", "error", err)
			}
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// databaseName extracts the database name without credentials.
func databaseName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
