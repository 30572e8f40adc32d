// Package debuglog builds the trace loggers flowgate primitives use when
// their Debug flag is set.
package debuglog

import (
	"context"
	"log/slog"
	"os"
)

// Logger emits debug records tagged with a component and instance name.
// The zero value discards everything.
type Logger struct {
	l *slog.Logger
}

// New returns a Logger for component. When enabled is false the Logger is a
// no-op. A nil base logs to stderr with a text handler at debug level.
func New(base *slog.Logger, component, name string, enabled bool) Logger {
	if !enabled {
		return Logger{}
	}
	if base == nil {
		base = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	l := base.With("component", component)
	if name != "" {
		l = l.With("name", name)
	}
	return Logger{l: l}
}

// Enabled reports whether records are emitted.
func (l Logger) Enabled() bool {
	return l.l != nil
}

// Debug logs a trace record.
func (l Logger) Debug(msg string, args ...any) {
	if l.l == nil {
		return
	}
	l.l.Log(context.Background(), slog.LevelDebug, msg, args...)
}

// Error logs a failure record.
func (l Logger) Error(msg string, args ...any) {
	if l.l == nil {
		return
	}
	l.l.Log(context.Background(), slog.LevelError, msg, args...)
}

// With returns a Logger that adds args to every record.
func (l Logger) With(args ...any) Logger {
	if l.l == nil {
		return l
	}
	return Logger{l: l.l.With(args...)}
}
