package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/todo-api/internal/config"
	"github.com/phrazzld/todo-api/internal/platform/postgres"
	"github.com/phrazzld/todo-api/internal/platform/sqlite"
)

const (
	driverPostgres = "postgres"
	driverSQLite   = "sqlite"
)

// connectTimeout bounds the initial connection and ping.
const connectTimeout = 5 * time.Second

// setupAppDatabase opens the configured database and verifies the connection.
func setupAppDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*sql.DB, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	var (
		db  *sql.DB
		err error
	)
	switch cfg.Driver {
	case driverPostgres:
		db, err = postgres.Open(ctx, cfg.URL, postgres.PoolConfig{
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: 5 * time.Minute,
		})
	case driverSQLite:
		db, err = sqlite.Open(ctx, cfg.URL)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}

	logger.Info("database connection established", slog.String("driver", cfg.Driver))
	return db, nil
}
