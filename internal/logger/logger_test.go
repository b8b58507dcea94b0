package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

// TestParseLogLevel verifies mapping from strings to zapcore.Level and handling of unknown values.
func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]zapcore.Level{
		"debug":  zapcore.DebugLevel,
		" INFO ": zapcore.InfoLevel,
		"warn":   zapcore.WarnLevel,
		"error":  zapcore.ErrorLevel,
		"panic":  zapcore.PanicLevel,
		"fatal":  zapcore.FatalLevel,
		"dpanic": zapcore.DPanicLevel,
	}
	for s, lvl := range cases {
		got, ok := ParseLogLevel(s)
		require.True(t, ok)
		require.Equal(t, lvl, got)
	}

	got, ok := ParseLogLevel("unknown")
	require.False(t, ok)
	require.Equal(t, zapcore.InfoLevel, got)
}

// TestContextHelpers checks that scoped loggers travel through the context.
func TestContextHelpers(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))

	var buf bytes.Buffer

	l := NewWithSink(zapcore.DebugLevel, zapcore.AddSync(&buf))
	ctx := ToContext(context.Background(), l)
	ctx = WithName(ctx, "guardian-test")
	ctx = WithKV(ctx, "alert_id", "A1")

	InfoKV(ctx, "Alert refreshed", "status", "active")

	out := buf.String()
	require.Contains(t, out, "guardian-test")
	require.Contains(t, out, "Alert refreshed")
	require.Contains(t, out, "A1")
	require.Contains(t, out, "active")
}

func TestLevelGating(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	ctx := ToContext(context.Background(), NewWithSink(zapcore.WarnLevel, zapcore.AddSync(&buf)))

	DebugKV(ctx, "Poll tick", "query", "assigned-alerts")
	WarnKV(ctx, "Refresh after submission failed", "error", "boom")

	out := buf.String()
	require.NotContains(t, out, "Poll tick")
	require.Contains(t, out, "Refresh after submission failed")
}
