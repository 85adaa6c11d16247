package logging

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// WithLogger stores the provided logger on the context.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext retrieves the logger from context, falling back to the provided default.
// Sweep code paths use this so every log line carries the sweep-scoped fields.
func FromContext(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return logger
	}
	return fallback
}

// WithSweep derives a sweep-scoped logger carrying the sweep id and stores it
// on the context, so per-park reconcile logs correlate back to their sweep.
func WithSweep(ctx context.Context, logger *zap.Logger, sweepID string) (context.Context, *zap.Logger) {
	log := logger.With(zap.String("sweep_id", sweepID))
	return WithLogger(ctx, log), log
}
