package cache

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input       string
		expected    LogLevel
		expectError bool
	}{
		{input: "debug", expected: LogLevelDebug},
		{input: "info", expected: LogLevelInfo},
		{input: "warn", expected: LogLevelWarn},
		{input: "warning", expected: LogLevelWarn},
		{input: "error", expected: LogLevelError},
		{input: "ERROR", expected: LogLevelError},
		{input: "verbose", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLogLevel(tt.input)
			if tt.expectError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestLogger_ContextFields(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, nil)))

	logger.WithOperation("set").WithKey("user:42").WithTier(1).Info(ctx, "entry stored")

	out := buf.String()
	assert.Contains(t, out, "operation=set")
	assert.Contains(t, out, "key=user:42")
	assert.Contains(t, out, "tier=1")
	assert.Contains(t, out, "entry stored")
}

func TestLogger_LevelFiltering(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := NewSlogLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: LogLevelWarn.slogLevel(),
	})))

	logger.Debug(ctx, "hidden")
	logger.Info(ctx, "hidden")
	logger.Warn(ctx, "shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestNopLogger(t *testing.T) {
	logger := NewNopLogger()
	// Must be safe to call at every level.
	ctx := context.Background()
	logger.Debug(ctx, "msg")
	logger.Info(ctx, "msg")
	logger.Warn(ctx, "msg")
	logger.Error(ctx, "msg", "error", assert.AnError)
}
