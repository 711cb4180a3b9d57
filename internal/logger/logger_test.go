package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug": zapcore.DebugLevel,
		"info":  zapcore.InfoLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
		"fatal": zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)

	got, ok := ParseLogLevel("  WARN ")
	require.True(t, ok)
	require.Equal(t, zapcore.WarnLevel, got)
}

// TestFromContext verifies the fallback to the global logger
// and round-tripping a scoped logger through a context.
func TestFromContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	require.Same(t, global, FromContext(ctx))

	scoped := New(zapcore.DebugLevel)
	ctx = ToContext(ctx, scoped)
	require.Same(t, scoped, FromContext(ctx))
}

// TestWithKV verifies that key-value pairs added through the context
// end up on emitted log entries.
func TestWithKV(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())
	ctx = WithKV(ctx, "instance", "skyblock")
	ctx = WithName(ctx, "install")

	Infof(ctx, "resolving %d files", 3)

	entries := observed.All()
	require.Len(t, entries, 1)
	require.Equal(t, "resolving 3 files", entries[0].Message)
	require.Equal(t, "install", entries[0].LoggerName)

	fields := entries[0].ContextMap()
	require.Equal(t, "skyblock", fields["instance"])
}

// TestWithLevel verifies that a core wrapped with WithLevel filters
// entries below the pinned level regardless of the outer level.
func TestWithLevel(t *testing.T) {
	t.Parallel()

	core, observed := observer.New(zapcore.DebugLevel)
	l := zap.New(core).WithOptions(WithLevel(zapcore.WarnLevel)).Sugar()

	l.Info("hidden")
	l.Warn("visible")

	entries := observed.All()
	require.Len(t, entries, 1)
	require.Equal(t, "visible", entries[0].Message)
}
