package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/phrazzld/todo-api/internal/config"
	"github.com/phrazzld/todo-api/internal/platform/logger"
	"github.com/phrazzld/todo-api/internal/service/auth"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// newRootCmd builds the todo-api command tree. Running the root command
// without a subcommand starts the server.
func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "todo-api",
		Short:         "Multi-user task tracker API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `todo-api serves a JSON API for personal task lists. Users register and
log in to receive bearer tokens; each task moves through a fixed lifecycle
(open, in_progress, completed, cancelled) and is visible only to its owner.`,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"config file (default is ./config.yaml if present)")

	serve := newServeCmd(&configFile)
	root.RunE = serve.RunE

	root.AddCommand(
		serve,
		newMigrateCmd(&configFile),
		newHashPasswordCmd(),
	)
	return root
}

func newServeCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadAppConfig(*configFile)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := runServer(ctx, cfg, log); err != nil {
				log.Error("server exited with error", slog.String("error", err.Error()))
				return err
			}
			return nil
		},
	}
}

func newMigrateCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status|version]",
		Short:     "Apply or inspect database migrations",
		Long:      "Runs the embedded schema migrations for the configured database driver. The default command is up.",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: migrationCommands,
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}

			cfg, log, err := loadAppConfig(*configFile)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}

			ctx := cmd.Context()
			db, err := setupAppDatabase(ctx, cfg.Database, log)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			if err := runMigrations(ctx, db, cfg.Database.Driver, log, cmd.OutOrStdout(), command); err != nil {
				log.Error("migration failed",
					slog.String("command", command),
					slog.String("error", err.Error()))
				return err
			}
			return nil
		},
	}
}

func newHashPasswordCmd() *cobra.Command {
	var cost int

	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash of a password",
		Long:  "Hashes the given password, or the first line of stdin when no argument is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := readLine(cmd.InOrStdin())
				if err != nil {
					return err
				}
				password = line
			}
			if password == "" {
				return errors.New("password must not be empty")
			}

			hash, err := auth.NewBcryptHasher(cost).Hash(password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost factor")
	return cmd
}

// loadAppConfig loads configuration and installs the configured logger.
func loadAppConfig(path string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("database_driver", cfg.Database.Driver))
	return cfg, log, nil
}

func readLine(r io.Reader) (string, error) {
	if f, ok := r.(*os.File); ok {
		if info, err := f.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
			return "", errors.New("no password given: pass it as an argument or on stdin")
		}
	}
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
