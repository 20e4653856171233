package fvec

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/fvec/chunk"
)

// Logger wraps slog.Logger with fvec-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithVec adds a vec name field to the logger.
func (l *Logger) WithVec(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("vec", name),
	}
}

// WithChunk adds a chunk ID field to the logger.
func (l *Logger) WithChunk(id string) *Logger {
	return &Logger{
		Logger: l.Logger.With("chunk", id),
	}
}

// LogFetch logs a chunk or manifest fetch.
func (l *Logger) LogFetch(ctx context.Context, id string, size int, cached bool, err error) {
	if err != nil {
		l.DebugContext(ctx, "fetch failed",
			"id", id,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "fetch completed",
		"id", id,
		"bytes", size,
		"cached", cached,
	)
}

// LogPublish logs a chunk or manifest publish.
func (l *Logger) LogPublish(ctx context.Context, id string, size, stored int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "publish failed",
			"id", id,
			"bytes", size,
			"error", err,
		)
		return
	}
	l.DebugContext(ctx, "publish completed",
		"id", id,
		"bytes", size,
		"stored", stored,
	)
}

// LogEncode logs the encoding chosen for a chunk.
func (l *Logger) LogEncode(ctx context.Context, id string, f *chunk.Frozen) {
	l.DebugContext(ctx, "chunk encoded",
		"id", id,
		"tag", f.Tag().String(),
		"rows", f.Len(),
		"stored", f.StoredLen(),
		"bytes", f.Size(),
	)
}

// LogInflate logs a write that decompressed a chunk.
func (l *Logger) LogInflate(ctx context.Context, id string, rows int) {
	l.DebugContext(ctx, "chunk inflated",
		"id", id,
		"rows", rows,
	)
}

// LogManifest logs a manifest commit.
func (l *Logger) LogManifest(ctx context.Context, name string, chunks int, rows int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "manifest write failed",
			"vec", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "vec committed",
		"vec", name,
		"chunks", chunks,
		"rows", rows,
	)
}
