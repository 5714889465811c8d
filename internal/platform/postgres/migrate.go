package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/todo-api/internal/platform/postgres/migrations"
	"github.com/pressly/goose/v3"
)

// goose keeps its base FS, dialect and logger in package state.
var gooseMu sync.Mutex

// slogGooseLogger adapts goose's logger to slog. Fatalf does not exit; goose
// returns the error to the caller as well.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

// RunMigrations runs a goose command ("up", "down", "status", "version",
// "redo", "reset", ...) against the embedded migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger, command string, args ...string) error {
	if logger == nil {
		logger = slog.Default()
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetLogger(&slogGooseLogger{logger: logger.With(slog.String("component", "migrations"))})
	goose.SetBaseFS(migrations.FS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.RunContext(ctx, command, db, ".", args...); err != nil {
		return fmt.Errorf("migration %q failed: %w", command, MapError(err))
	}
	return nil
}

// Migrate applies every pending migration.
func Migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	return RunMigrations(ctx, db, logger, "up")
}
