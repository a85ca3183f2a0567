package logger

import (
	"context"
	"path/filepath"
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
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		" WARN ":  zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"fatal":   zapcore.FatalLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok, s)
		require.Equal(t, lvl, got)
	}

	_, ok := ParseLogLevel("unknown")
	require.False(t, ok)
}

// TestContextHelpers checks that named and annotated loggers travel with the context.
func TestContextHelpers(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := toContext(context.Background(), zap.New(core).Sugar())
	ctx = WithName(ctx, "sos")
	ctx = WithKV(ctx, "session", "abc")

	InfoKV(ctx, "armed", "countdown", 5)

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "sos", entries[0].LoggerName)
	require.Equal(t, "armed", entries[0].Message)
	require.Equal(t, "abc", entries[0].ContextMap()["session"])
	require.EqualValues(t, 5, entries[0].ContextMap()["countdown"])
}

// TestLevelHelpers checks that each helper logs at its own level through the context logger.
func TestLevelHelpers(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	ctx := toContext(context.Background(), zap.New(core).Sugar())

	Debug(ctx, "debug")
	DebugKV(ctx, "debug kv", "k", 1)
	Info(ctx, "info")
	InfoKV(ctx, "info kv", "k", 2)
	Warn(ctx, "warn")
	WarnKV(ctx, "warn kv", "k", 3)
	ErrorKV(ctx, "error kv", "k", 4)

	levels := make([]zapcore.Level, 0, logs.Len())
	for _, e := range logs.All() {
		levels = append(levels, e.Level)
	}

	require.Equal(t, []zapcore.Level{
		zapcore.DebugLevel, zapcore.DebugLevel,
		zapcore.InfoLevel, zapcore.InfoLevel,
		zapcore.WarnLevel, zapcore.WarnLevel,
		zapcore.ErrorLevel,
	}, levels)
	require.EqualValues(t, 4, logs.All()[6].ContextMap()["k"])
}

// TestFromContext_FallsBackToGlobal ensures a bare context yields the global logger.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestNewWithFile creates a rotating file logger and closes it.
func TestNewWithFile(t *testing.T) {
	t.Parallel()

	l, closer := NewWithFile(filepath.Join(t.TempDir(), "safeguardian.log"), zapcore.InfoLevel)
	l.Info("hello")

	_ = l.Sync()
	require.NoError(t, closer.Close())
}
