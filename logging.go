package gooseberry

import (
	"context"
	"log/slog"
)

// Logger defines the logging interface for gooseberry.
// It is designed to be compatible with standard logging libraries
// such as slog, zap, and zerolog.
//
// Implementations must be safe for concurrent use.
type Logger interface {
	// Debug logs a debug-level message with optional key-value pairs.
	// Used for verbose diagnostic information such as sent greetings.
	Debug(msg string, keysAndValues ...any)

	// Info logs an info-level message with optional key-value pairs.
	// Used for significant events like connection establishment.
	Info(msg string, keysAndValues ...any)

	// Warn logs a warning-level message with optional key-value pairs.
	// Used for recoverable issues like failed exchanges.
	Warn(msg string, keysAndValues ...any)

	// Error logs an error-level message with optional key-value pairs.
	// Used for serious errors that may impact functionality.
	Error(msg string, keysAndValues ...any)
}

// NopLogger is a no-op logger implementation that discards all log messages.
// It is the default logger when no logger is configured.
type NopLogger struct{}

// Ensure NopLogger implements Logger.
var _ Logger = NopLogger{}

// Debug implements Logger.Debug (no-op).
func (NopLogger) Debug(msg string, keysAndValues ...any) {}

// Info implements Logger.Info (no-op).
func (NopLogger) Info(msg string, keysAndValues ...any) {}

// Warn implements Logger.Warn (no-op).
func (NopLogger) Warn(msg string, keysAndValues ...any) {}

// Error implements Logger.Error (no-op).
func (NopLogger) Error(msg string, keysAndValues ...any) {}

// SlogLogger adapts a *slog.Logger to Logger.
type SlogLogger struct {
	logger *slog.Logger
}

var _ Logger = (*SlogLogger)(nil)

// NewSlogLogger wraps l. A nil l uses slog.Default().
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	if l == nil {
		l = slog.Default()
	}
	return &SlogLogger{logger: l}
}

// Debug implements Logger.Debug.
func (s *SlogLogger) Debug(msg string, keysAndValues ...any) {
	s.logger.Log(context.Background(), slog.LevelDebug, msg, keysAndValues...)
}

// Info implements Logger.Info.
func (s *SlogLogger) Info(msg string, keysAndValues ...any) {
	s.logger.Log(context.Background(), slog.LevelInfo, msg, keysAndValues...)
}

// Warn implements Logger.Warn.
func (s *SlogLogger) Warn(msg string, keysAndValues ...any) {
	s.logger.Log(context.Background(), slog.LevelWarn, msg, keysAndValues...)
}

// Error implements Logger.Error.
func (s *SlogLogger) Error(msg string, keysAndValues ...any) {
	s.logger.Log(context.Background(), slog.LevelError, msg, keysAndValues...)
}

// With returns a logger that adds keysAndValues to every record.
func (s *SlogLogger) With(keysAndValues ...any) *SlogLogger {
	return &SlogLogger{logger: s.logger.With(keysAndValues...)}
}
