package blobstore

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	data := []byte{18, 3, 0, 0, 0}
	require.NoError(t, s.Put(ctx, "vecs/x/chunk-000000", data))
	data[0] = 0 // Put copies

	got, err := Get(ctx, s, "vecs/x/chunk-000000")
	require.NoError(t, err)
	assert.Equal(t, byte(18), got[0])

	b, err := s.Open(ctx, "vecs/x/chunk-000000")
	require.NoError(t, err)
	assert.Equal(t, int64(5), b.Size())
	buf := make([]byte, 3)
	n, err := b.ReadAt(ctx, buf, 3)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, n)
	require.NoError(t, b.Close())

	require.NoError(t, s.Put(ctx, "vecs/x/manifest", []byte("{}")))
	require.NoError(t, s.Put(ctx, "vecs/y/manifest", []byte("{}")))

	names, err := s.List(ctx, "vecs/x/")
	require.NoError(t, err)
	assert.Equal(t, []string{"vecs/x/chunk-000000", "vecs/x/manifest"}, names)
	assert.Equal(t, 3, s.Len())

	require.NoError(t, s.Delete(ctx, "vecs/x/manifest"))
	require.NoError(t, s.Delete(ctx, "missing"))
	_, err = s.Open(ctx, "vecs/x/manifest")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewMemoryStore()
	assert.ErrorIs(t, s.Put(ctx, "a", nil), context.Canceled)
	_, err := s.Open(ctx, "a")
	assert.ErrorIs(t, err, context.Canceled)
}
