package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/phrazzld/todo-api/internal/platform/postgres"
	"github.com/phrazzld/todo-api/internal/platform/sqlite"
)

// migrationCommands are the commands accepted by the migrate subcommand.
var migrationCommands = []string{"up", "down", "status", "version"}

// runMigrations executes a migration command against db. PostgreSQL
// schemas are managed by goose, SQLite schemas by golang-migrate; status
// and version output for SQLite is written to out.
func runMigrations(
	ctx context.Context,
	db *sql.DB,
	driver string,
	logger *slog.Logger,
	out io.Writer,
	command string,
) error {
	logger.Info("executing migrations",
		slog.String("driver", driver),
		slog.String("command", command))

	switch driver {
	case driverPostgres:
		return postgres.RunMigrations(ctx, db, logger, command)
	case driverSQLite:
		return runSQLiteMigrations(db, out, command)
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}
}

func runSQLiteMigrations(db *sql.DB, out io.Writer, command string) error {
	switch command {
	case "up":
		return sqlite.Migrate(db)
	case "down":
		return sqlite.MigrateDown(db)
	case "status", "version":
		version, dirty, err := sqlite.Version(db)
		if err != nil {
			return err
		}
		if command == "version" {
			_, err = fmt.Fprintln(out, version)
			return err
		}
		_, err = fmt.Fprintf(out, "version %d, dirty %t\n", version, dirty)
		return err
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
}
