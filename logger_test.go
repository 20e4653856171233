package fvec

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/hupe1980/fvec/chunk"
	"github.com/stretchr/testify/assert"
)

func newBufferLogger(buf *bytes.Buffer, level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level}))
}

func TestLogger(t *testing.T) {
	ctx := context.Background()

	t.Run("Encode", func(t *testing.T) {
		var buf bytes.Buffer
		l := newBufferLogger(&buf, slog.LevelDebug).WithVec("price")

		b := chunk.NewBuilder()
		b.AppendInt(1, 0)
		b.AppendInt(2, 0)
		l.LogEncode(ctx, "price/chunk-000000", chunk.Encode(b))

		out := buf.String()
		assert.Contains(t, out, "chunk encoded")
		assert.Contains(t, out, "vec=price")
		assert.Contains(t, out, "tag=C1N")
		assert.Contains(t, out, "rows=2")
	})

	t.Run("PublishFailure", func(t *testing.T) {
		var buf bytes.Buffer
		l := newBufferLogger(&buf, slog.LevelError)

		l.LogPublish(ctx, "a", 10, 0, nil)
		assert.Empty(t, buf.String())

		l.LogPublish(ctx, "a", 10, 0, errors.New("boom"))
		assert.Contains(t, buf.String(), "publish failed")
		assert.Contains(t, buf.String(), "error=boom")
	})

	t.Run("Manifest", func(t *testing.T) {
		var buf bytes.Buffer
		l := newBufferLogger(&buf, slog.LevelInfo)

		l.LogFetch(ctx, "a", 1, true, nil)
		l.LogManifest(ctx, "a", 3, 10, nil)
		assert.NotContains(t, buf.String(), "fetch completed")
		assert.Contains(t, buf.String(), "vec committed")
		assert.Contains(t, buf.String(), "chunks=3")
	})

	t.Run("WithChunk", func(t *testing.T) {
		var buf bytes.Buffer
		l := newBufferLogger(&buf, slog.LevelDebug).WithChunk("a/chunk-000001")

		l.LogInflate(ctx, "a/chunk-000001", 64)
		assert.Contains(t, buf.String(), "chunk=a/chunk-000001")
	})

	t.Run("Noop", func(t *testing.T) {
		assert.NotPanics(t, func() {
			NoopLogger().LogManifest(ctx, "a", 0, 0, errors.New("boom"))
		})
	})
}
