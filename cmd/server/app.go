package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/todo-api/internal/config"
	"github.com/phrazzld/todo-api/internal/platform/postgres"
	"github.com/phrazzld/todo-api/internal/platform/sqlite"
	"github.com/phrazzld/todo-api/internal/service"
	"github.com/phrazzld/todo-api/internal/service/auth"
	"github.com/phrazzld/todo-api/internal/store"
)

// application holds the shared dependencies of the server so they can be
// built once and released together on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	userStore store.UserStore
	taskStore store.TaskStore

	jwtService  auth.JWTService
	userService service.UserService
	taskService service.TaskService
}

// newApplication wires stores and services over an open database. The
// clock is nil outside tests.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB, clock service.Clock) (*application, error) {
	if cfg == nil || logger == nil || db == nil {
		return nil, errors.New("application: config, logger and db are required")
	}

	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	switch cfg.Database.Driver {
	case driverPostgres:
		app.userStore = postgres.NewPostgresUserStore(db, logger)
		app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	case driverSQLite:
		app.userStore = sqlite.NewSQLiteUserStore(db, logger)
		app.taskStore = sqlite.NewSQLiteTaskStore(db, logger)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		slog.Int("token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes))

	hasher := auth.NewBcryptHasher(cfg.Auth.BCryptCost)

	app.userService, err = service.NewUserService(service.UserServiceDeps{
		DB:           db,
		Users:        app.userStore,
		Tokens:       app.jwtService,
		Hasher:       hasher,
		Verifier:     hasher,
		QueryTimeout: cfg.Database.QueryTimeout,
		Clock:        clock,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user service: %w", err)
	}

	app.taskService, err = service.NewTaskService(
		app.taskStore,
		service.OwnerOnlyPolicy,
		service.TaskServiceConfig{
			AllowPastDueDates: cfg.Tasks.AllowPastDueDates,
			DefaultPageSize:   cfg.Tasks.DefaultPageSize,
			MaxPageSize:       cfg.Tasks.MaxPageSize,
			QueryTimeout:      cfg.Database.QueryTimeout,
		},
		clock,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	logger.Info("application initialized successfully")
	return app, nil
}

// runServer connects to the database, applies migrations when configured,
// and serves HTTP until ctx is cancelled.
func runServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	db, err := setupAppDatabase(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}

	if cfg.Database.AutoMigrate {
		if err := runMigrations(ctx, db, cfg.Database.Driver, logger, nil, "up"); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply migrations: %w", err)
		}
	}

	app, err := newApplication(cfg, logger, db, nil)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer app.cleanup()

	return app.Run(ctx)
}

// Run serves HTTP until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup releases application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}
	app.logger.Info("application shutdown completed")
}
