package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// New returns a JSON structured logger on stdout.
// level overrides the env-derived default when non-empty.
func New(appEnv, level string) *slog.Logger {
	return NewWithWriter(os.Stdout, appEnv, level)
}

func NewWithWriter(w io.Writer, appEnv, level string) *slog.Logger {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: parseLevel(appEnv, level)})
	return slog.New(h)
}

func parseLevel(appEnv, level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if appEnv == "local" || appEnv == "dev" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Discard is a logger that drops everything; handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type ctxKey struct{}

// With stores a logger in context.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From gets a logger from context, falling back to slog.Default().
func From(ctx context.Context) *slog.Logger {
	if v := ctx.Value(ctxKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}
