// Package logger provides structured logging functionality for the application.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/phrazzld/todo-api/internal/config"
)

// Setup initializes and configures the application's logging system based on
// the provided configuration. It creates a structured logger writing to stdout
// with the configured level and format, and installs it as the slog default.
func Setup(cfg config.ServerConfig) (*slog.Logger, error) {
	l := New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(l)
	return l, nil
}

// New builds a logger writing to w. Unknown levels fall back to info and
// unknown formats fall back to JSON.
func New(w io.Writer, level, format string) *slog.Logger {
	lvl, ok := ParseLevel(level)
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	l := slog.New(handler)
	if !ok {
		l.Warn("invalid log level configured, using default level",
			slog.String("configured_level", level),
			slog.String("default_level", "info"))
	}
	return l
}

// ParseLevel parses a case-insensitive level name. The boolean reports
// whether the name was recognised; unrecognised names yield slog.LevelInfo.
func ParseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
