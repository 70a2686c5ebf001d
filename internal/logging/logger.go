package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/telhawk-systems/eventlog/internal/middleware"
)

// Logger is a slog.Logger whose *Context methods attach the delivery's
// request ID.
type Logger struct {
	*slog.Logger
}

// New returns a stdout Logger. format is "json" (default) or "text".
func New(level slog.Level, format string) *Logger {
	return NewWriter(os.Stdout, level, format)
}

// NewWriter is New writing to w.
func NewWriter(w io.Writer, level slog.Level, format string) *Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == "text" {
		return &Logger{Logger: slog.New(slog.NewTextHandler(w, opts))}
	}
	return &Logger{Logger: slog.New(slog.NewJSONHandler(w, opts))}
}

func Default() *Logger { return &Logger{Logger: slog.Default()} }

func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func (l *Logger) forDelivery(ctx context.Context) *slog.Logger {
	if id := middleware.GetRequestID(ctx); id != "" {
		return l.Logger.With(slog.String(FieldRequestID, id))
	}
	return l.Logger
}

func (l *Logger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.forDelivery(ctx).WarnContext(ctx, msg, args...)
}

func (l *Logger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.forDelivery(ctx).DebugContext(ctx, msg, args...)
}

// With returns a Logger that adds args to every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// ParseLevel maps debug, info, warn and error to slog levels; anything else is info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// SetDefault installs l as the slog and log package default.
func SetDefault(l *Logger) {
	slog.SetDefault(l.Logger)
}
