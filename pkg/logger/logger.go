// Package logger provides slog-based structured logging.
//
// Core features:
//   - Init() configures the default logger (JSON/Text)
//   - FromContext() context-aware logging
//   - package-level helpers (Info/Error/Warn/Debug/Fatal)
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

// defaultLogger uses atomic.Pointer so concurrent Init/log calls are race-free.
var defaultLogger atomic.Pointer[slog.Logger]

func init() { defaultLogger.Store(newLogger(false)) }

func getLogger() *slog.Logger { return defaultLogger.Load() }

func storeLogger(l *slog.Logger) {
	defaultLogger.Store(l)
	slog.SetDefault(l)
}

// replaceTimeAttr formats slog timestamps as a compact readable string.
func replaceTimeAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		if t, ok := a.Value.Any().(time.Time); ok {
			a.Value = slog.StringValue(t.Format("2006-01-02 15:04:05"))
		}
	}
	return a
}

func newLogger(development bool) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       slog.LevelInfo,
		AddSource:   development,
		ReplaceAttr: replaceTimeAttr,
	}
	var handler slog.Handler
	if development {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// Init configures logging. env: "development"/"dev" or "production" (default).
func Init(env string) {
	dev := env == "development" || env == "dev"
	storeLogger(newLogger(dev))
}

// ========================================
// Context-aware logging
// ========================================

type ctxKey struct{}

// WithContext injects a logger into the context.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext extracts the logger from the context, falling back to the default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return getLogger()
}

// ========================================
// Package-level helpers
// ========================================

// Info/Error/Warn/Debug log structured records. args are key-value pairs.
func Info(msg string, args ...any)  { getLogger().Info(msg, args...) }
func Error(msg string, args ...any) { getLogger().Error(msg, args...) }
func Warn(msg string, args ...any)  { getLogger().Warn(msg, args...) }
func Debug(msg string, args ...any) { getLogger().Debug(msg, args...) }

// Infof/Errorf/Warnf/Debugf log formatted messages.
func Infof(format string, args ...any)  { getLogger().Info(fmt.Sprintf(format, args...)) }
func Errorf(format string, args ...any) { getLogger().Error(fmt.Sprintf(format, args...)) }
func Warnf(format string, args ...any)  { getLogger().Warn(fmt.Sprintf(format, args...)) }
func Debugf(format string, args ...any) { getLogger().Debug(fmt.Sprintf(format, args...)) }

// Fatal logs at error level and exits.
func Fatal(msg string, args ...any) {
	getLogger().Error(msg, args...)
	os.Exit(1)
}

// With returns a logger carrying extra context attributes.
func With(args ...any) *slog.Logger { return getLogger().With(args...) }

// Get returns the underlying slog.Logger.
func Get() *slog.Logger { return getLogger() }

// Reserved field keys. Use these constants, not hardcoded strings.
const (
	FieldSessionID  = "session_id"
	FieldComponent  = "component"
	FieldError      = "error"
	FieldStatus     = "status"
	FieldCount      = "count"
	FieldURL        = "url"
	FieldAddr       = "addr"
	FieldEventType  = "event_type"
	FieldDurationMS = "duration_ms"
	FieldBytes      = "bytes"
	FieldID         = "id"
	FieldBody       = "body"
	FieldAttempt    = "attempt"
)
