// Package logging wires the simulator's diagnostics (unknown
// instructions, unknown transactions, invariant violations) to a
// process-wide structured logger.
//
// Grounded on the teacher's pkg/logger package: a once-initialized
// global slog.Logger configurable by level/format, plus a
// WithTraceID helper — adapted here to key the trace on a per-run
// correlation id (google/uuid) rather than an inbound request context,
// since a simulation run has no request boundary.
package logging

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
)

// Config controls the global logger's verbosity and output encoding.
type Config struct {
	Level     string // DEBUG, INFO, WARN, ERROR
	Format    string // json, text
	AddSource bool
}

var (
	once   sync.Once
	logger *slog.Logger
)

// Init sets up the global logger. Subsequent calls are no-ops.
func Init(cfg Config) {
	once.Do(func() {
		var level slog.Level
		switch cfg.Level {
		case "DEBUG":
			level = slog.LevelDebug
		case "WARN":
			level = slog.LevelWarn
		case "ERROR":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}

		var handler slog.Handler
		if cfg.Format == "json" {
			handler = slog.NewJSONHandler(os.Stderr, opts)
		} else {
			handler = slog.NewTextHandler(os.Stderr, opts)
		}

		logger = slog.New(handler)
		slog.SetDefault(logger)
	})
}

// Get returns the global logger, initializing it with sane defaults
// if no caller has called Init yet.
func Get() *slog.Logger {
	if logger == nil {
		Init(Config{Level: "INFO", Format: "text"})
	}
	return logger
}

type runIDKey struct{}

// NewRunContext stamps ctx with a fresh per-run correlation id, used
// to tie together every log line emitted while processing one script.
func NewRunContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, runIDKey{}, uuid.NewString())
}

// WithRunID returns a logger annotated with the run id carried on ctx,
// or the base logger unchanged if ctx carries none.
func WithRunID(ctx context.Context, base *slog.Logger) *slog.Logger {
	id, ok := ctx.Value(runIDKey{}).(string)
	if !ok || id == "" {
		return base
	}
	return base.With("run_id", id)
}

func Info(msg string, args ...any)  { Get().Info(msg, args...) }
func Warn(msg string, args ...any)  { Get().Warn(msg, args...) }
func Error(msg string, args ...any) { Get().Error(msg, args...) }
func Debug(msg string, args ...any) { Get().Debug(msg, args...) }
