// Package logger provides structured logging for the engine and the log sink used by log steps.
package logger

import (
	"context"
	"strings"
)

// Logger defines structured logging used across the engine
type Logger interface {
	Debug(msg string, keysAndValues ...any)

	Info(msg string, keysAndValues ...any)

	Warn(msg string, keysAndValues ...any)

	Error(msg string, keysAndValues ...any)

	// With returns a Logger with the key-value pairs added to every entry
	With(keysAndValues ...any) Logger
}

// DefaultLogger is returned by Ctx when context carries no logger
var DefaultLogger Logger = NewDevNullLogger()

type contextKey string

const loggerKey contextKey = "flowmind.logger"

// WithLogger returns a new context with the given logger.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// Ctx returns the logger from the given context.
func Ctx(ctx context.Context) Logger {
	if ctx == nil {
		return DefaultLogger
	}
	if logger, ok := ctx.Value(loggerKey).(Logger); ok && logger != nil {
		return logger
	}
	return DefaultLogger
}

// LevelFromString converts a string to a LogLevel.
func LevelFromString(level string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error", "critical":
		return LevelError
	default:
		return DefaultLogLevel
	}
}
