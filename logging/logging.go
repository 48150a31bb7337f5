// Package logging provides structured logger construction and context
// propagation on top of log/slog, the teacher's logging choice throughout
// observability/reporter.go.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Format selects the slog handler used by New.
type Format int

const (
	JSON Format = iota
	Text
)

// Config configures a runtime-wide logger.
type Config struct {
	Format Format
	Level  slog.Level
	Output io.Writer
}

// DefaultConfig returns a JSON logger at Info level writing to stderr.
func DefaultConfig() Config {
	return Config{Format: JSON, Level: slog.LevelInfo, Output: os.Stderr}
}

// New builds a *slog.Logger per cfg.
func New(cfg Config) *slog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler
	switch cfg.Format {
	case Text:
		handler = slog.NewTextHandler(cfg.Output, opts)
	default:
		handler = slog.NewJSONHandler(cfg.Output, opts)
	}
	return slog.New(handler)
}

type contextKey struct{}

// WithLogger returns a context carrying logger, retrievable via FromContext.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger stored in ctx by WithLogger, or
// slog.Default() if none was stored.
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithRequestID returns a logger annotated with request_id, for per-call
// correlation with the executor's generated request IDs.
func WithRequestID(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With(slog.String("request_id", requestID))
}
