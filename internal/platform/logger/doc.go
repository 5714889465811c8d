// Package logger provides structured logging functionality for the application.
//
// It builds log/slog loggers (JSON or text) from server configuration and
// carries request-scoped loggers through context.Context so that every layer
// logs with the request's trace ID attached.
package logger
