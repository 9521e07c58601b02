// Package logger provides structured logging for Resonance.
//
// Every logger built by New shares one level, so SetLevel retunes the
// agent while it runs. Attributes that look like credentials are masked
// before they reach the handler.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger is the application logger interface.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger
}

// Config selects level, encoding and destination.
type Config struct {
	Level  string    // debug, info, warn or error; empty means info
	Format string    // json or text; empty means json
	Output io.Writer // nil means stderr
}

var level = new(slog.LevelVar)

// ParseLevel maps a level name to its slog level. Names are case
// insensitive and "warning" is accepted for warn.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// New builds a logger and resets the shared level to cfg.Level.
func New(cfg Config) (Logger, error) {
	lv, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := handlerOptions()

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		h = slog.NewJSONHandler(out, opts)
	case "text", "console":
		h = slog.NewTextHandler(out, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	level.Set(lv)
	return wrap(slog.New(h)), nil
}

// Discard returns a logger that drops everything.
func Discard() Logger {
	return wrap(slog.New(slog.DiscardHandler))
}

// SetLevel changes the level of every logger built by New.
func SetLevel(name string) error {
	lv, err := ParseLevel(name)
	if err != nil {
		return err
	}
	level.Set(lv)
	return nil
}

// Level returns the current shared level name in lower case.
func Level() string {
	return strings.ToLower(level.Level().String())
}

func handlerOptions() *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			return redactSensitive(a)
		},
	}
}

type slogLogger struct {
	sl  *slog.Logger
	ctx context.Context
}

func wrap(sl *slog.Logger) *slogLogger {
	return &slogLogger{sl: sl, ctx: context.Background()}
}

func (l *slogLogger) Debug(msg string, args ...any) { l.sl.DebugContext(l.ctx, msg, args...) }
func (l *slogLogger) Info(msg string, args ...any)  { l.sl.InfoContext(l.ctx, msg, args...) }
func (l *slogLogger) Warn(msg string, args ...any)  { l.sl.WarnContext(l.ctx, msg, args...) }
func (l *slogLogger) Error(msg string, args ...any) { l.sl.ErrorContext(l.ctx, msg, args...) }

func (l *slogLogger) With(args ...any) Logger {
	return &slogLogger{sl: l.sl.With(args...), ctx: l.ctx}
}

// WithContext binds ctx and tags entries with its request ID, if any.
func (l *slogLogger) WithContext(ctx context.Context) Logger {
	sl := l.sl
	if id := RequestIDFromContext(ctx); id != "" {
		sl = sl.With("request_id", id)
	}
	return &slogLogger{sl: sl, ctx: ctx}
}

var fallback atomic.Pointer[slogLogger]

func init() {
	fallback.Store(wrap(slog.New(slog.NewJSONHandler(os.Stderr, handlerOptions()))))
}

// SetDefault makes l the logger returned by Default. Loggers not built by
// this package are ignored.
func SetDefault(l Logger) {
	if sl, ok := l.(*slogLogger); ok {
		fallback.Store(sl)
	}
}

// Default returns the process-wide logger.
func Default() Logger {
	return fallback.Load()
}

// OrDefault returns l, or Default when l is nil.
func OrDefault(l Logger) Logger {
	if l == nil {
		return Default()
	}
	return l
}
