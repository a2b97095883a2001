package cache

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LogLevel represents the minimum severity of messages a Logger emits.
type LogLevel int

// Log levels in increasing order of severity.
const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

// LogConfig holds configuration for the cache logger.
type LogConfig struct {
	// Level sets the minimum log level.
	Level LogLevel
	// EnableCallerInfo includes file and line number in logs.
	EnableCallerInfo bool
}

// DefaultLogConfig returns a default logging configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{Level: LogLevelInfo}
}

// Logger provides structured logging for the cache system. It is a thin
// wrapper over log/slog so caches can carry contextual fields (operation,
// key, tier) without callers threading them through every call.
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a structured logger writing to stderr with the given
// configuration.
func NewLogger(config LogConfig) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     config.Level.slogLevel(),
		AddSource: config.EnableCallerInfo,
	})
	return &Logger{logger: slog.New(handler)}
}

// NewSlogLogger wraps an existing slog.Logger for use by the cache system.
func NewSlogLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

// NewNopLogger creates a logger that discards all messages.
func NewNopLogger() *Logger {
	return &Logger{logger: slog.New(slog.DiscardHandler)}
}

func (level LogLevel) slogLevel() slog.Level {
	switch level {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLogLevel parses a string log level into a LogLevel.
func ParseLogLevel(level string) (LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return LogLevelDebug, nil
	case "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	default:
		return LogLevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

// Debug logs debug-level messages.
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.logger.DebugContext(ctx, msg, args...)
}

// Info logs info-level messages.
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.logger.InfoContext(ctx, msg, args...)
}

// Warn logs warning-level messages.
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.logger.WarnContext(ctx, msg, args...)
}

// Error logs error-level messages.
func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.logger.ErrorContext(ctx, msg, args...)
}

// With returns a logger carrying additional context fields.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

// WithOperation returns a logger with operation context.
func (l *Logger) WithOperation(operation string) *Logger {
	return l.With("operation", operation)
}

// WithKey returns a logger with cache key context.
func (l *Logger) WithKey(key string) *Logger {
	return l.With("key", key)
}

// WithTier returns a logger with tier index context.
func (l *Logger) WithTier(tier int) *Logger {
	return l.With("tier", tier)
}

// logEviction logs an eviction event.
func logEviction(ctx context.Context, logger *Logger, key string, size int64, reason string) {
	logger.Debug(ctx, "cache entry evicted",
		"key", key,
		"size", size,
		"reason", reason)
}

// logCleanup logs the outcome of an expiry sweep.
func logCleanup(ctx context.Context, logger *Logger, entriesRemoved int, bytesFreed int64, duration time.Duration) {
	logger.Info(ctx, "cache cleanup completed",
		"entries_removed", entriesRemoved,
		"bytes_freed", bytesFreed,
		"duration_ms", duration.Milliseconds())
}
