package log

import (
	"context"
	"log/slog"
	"os"
	"sync"
)

// DefaultContextProvider returns the context used by context-unaware logging
// functions.
var DefaultContextProvider = context.TODO

var (
	defaultMu  sync.RWMutex
	defaultLog = Make(os.Stderr)
)

func current() Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()

	return defaultLog
}

// Default returns the package-level logger.
func Default() Logger { return current() }

// Config reconfigures the package-level logger with opts.
func Config(opts ...Option) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	defaultLog = defaultLog.Wrap(opts...)
}

// TraceContext logs at Trace level using the package-level logger.
func TraceContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	current().log(ctx, LevelTrace, msg, attrs...)
}

// DebugContext logs at Debug level using the package-level logger.
func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	current().log(ctx, LevelDebug, msg, attrs...)
}

// Debug logs at Debug level using the package-level logger.
func Debug(msg string, attrs ...slog.Attr) {
	current().log(DefaultContextProvider(), LevelDebug, msg, attrs...)
}

// InfoContext logs at Info level using the package-level logger.
func InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	current().log(ctx, LevelInfo, msg, attrs...)
}

// Info logs at Info level using the package-level logger.
func Info(msg string, attrs ...slog.Attr) {
	current().log(DefaultContextProvider(), LevelInfo, msg, attrs...)
}

// WarnContext logs at Warn level using the package-level logger.
func WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	current().log(ctx, LevelWarn, msg, attrs...)
}

// Warn logs at Warn level using the package-level logger.
func Warn(msg string, attrs ...slog.Attr) {
	current().log(DefaultContextProvider(), LevelWarn, msg, attrs...)
}

// ErrorContext logs at Error level using the package-level logger.
func ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	current().log(ctx, LevelError, msg, attrs...)
}

// Error logs at Error level using the package-level logger.
func Error(msg string, attrs ...slog.Attr) {
	current().log(DefaultContextProvider(), LevelError, msg, attrs...)
}

// With returns the package-level logger with attrs added to each message.
func With(attrs ...slog.Attr) Logger {
	return current().With(attrs...)
}
