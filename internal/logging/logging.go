// Package logging carries a request-scoped slog.Logger through contexts so
// services and handlers enrich one logger instead of creating their own.
package logging

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// WithLogger returns a derived context carrying the logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger attached to the context, or nil.
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return nil
	}
	logger, _ := ctx.Value(loggerKey{}).(*slog.Logger)
	return logger
}

// OrDefault returns the context logger when present, then the fallback, then
// slog.Default.
func OrDefault(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if logger := FromContext(ctx); logger != nil {
		return logger
	}
	if fallback != nil {
		return fallback
	}
	return slog.Default()
}
