// Package logging configures structured logging with log/slog.
//
// Commands log to stderr so that stdout stays reserved for command output.
// Operation loggers carry an op_id so the lines of one import, export or
// bulk delete can be correlated.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

// Setup configures the global slog logger.
//
// Level values: "debug", "info", "warn", "error" (default: "warn")
// Format values: "text", "json" (default: "text")
func Setup(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: ParseLevel(level),
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel converts a string log level to slog.Level.
// A CLI is quiet by default, so unknown values map to warn.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

type opKey struct{}

// WithOperation returns a context tagged with a fresh operation ID.
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, opKey{}, op+"-"+uuid.NewString()[:8])
}

// FromContext returns the default logger, enriched with the operation ID
// stored in ctx if any.
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()
	if op, ok := ctx.Value(opKey{}).(string); ok && op != "" {
		logger = logger.With("op_id", op)
	}
	return logger
}

// WithFields returns a context logger with additional structured fields.
//
// Usage:
//
//	log := logging.WithFields(ctx, "file", path)
//	log.Info("import started")
//	// ... later ...
//	log.Info("import finished", "imported", n)
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
