package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContextFallback(t *testing.T) {
	fallback := zap.NewNop()
	require.Same(t, fallback, FromContext(context.Background(), fallback))
}

func TestWithSweepScopesLogs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := zap.New(core)

	ctx, log := WithSweep(context.Background(), base, "sweep-123")
	require.Same(t, log, FromContext(ctx, zap.NewNop()))

	FromContext(ctx, zap.NewNop()).Info("park reconciled")
	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "sweep-123", entries[0].ContextMap()["sweep_id"])
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	_, err := NewLogger(Config{Level: "shouty"})
	require.Error(t, err)
}
