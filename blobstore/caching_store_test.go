package blobstore

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/hupe1980/fvec/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingBlob struct {
	Blob
	mu        sync.Mutex
	reads     int
	readBytes int
}

func (c *countingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	n, err := c.Blob.ReadAt(ctx, p, off)
	c.mu.Lock()
	c.reads++
	c.readBytes += n
	c.mu.Unlock()
	return n, err
}

type countingStore struct {
	*MemoryStore
	blobs map[string]*countingBlob
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStore: NewMemoryStore(), blobs: map[string]*countingBlob{}}
}

func (s *countingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.MemoryStore.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	cb := &countingBlob{Blob: b}
	s.blobs[name] = cb
	return cb, nil
}

func TestCachingStore_ReadAt(t *testing.T) {
	ctx := context.Background()
	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i % 255)
	}

	inner := newCountingStore()
	require.NoError(t, inner.Put(ctx, "test", data))

	c := cache.NewLRUBlockCache(1<<20, nil)
	store := NewCachingStore(inner, c, 256)

	blob, err := store.Open(ctx, "test")
	require.NoError(t, err)
	defer blob.Close()
	counter := inner.blobs["test"]

	buf := make([]byte, 100)
	n, err := blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, data[:100], buf)
	assert.Equal(t, 1, counter.reads)
	assert.Equal(t, 256, counter.readBytes)

	// same range is served from cache
	_, err = blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, counter.reads)

	// spans block 0 (cached) and block 1 (not cached)
	n, err = blob.ReadAt(ctx, buf, 200)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, data[200:300], buf)
	assert.Equal(t, 2, counter.reads)
	assert.Equal(t, 512, counter.readBytes)

	// blocks 2 and 3 are fetched in one run
	big := make([]byte, 512)
	n, err = blob.ReadAt(ctx, big, 512)
	require.NoError(t, err)
	assert.Equal(t, 512, n)
	assert.Equal(t, data[512:], big)
	assert.Equal(t, 3, counter.reads)
}

func TestCachingStore_ShortRead(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	require.NoError(t, inner.Put(ctx, "small", []byte("hello")))

	store := NewCachingStore(inner, cache.NewLRUBlockCache(1024, nil), 256)
	blob, err := store.Open(ctx, "small")
	require.NoError(t, err)

	buf := make([]byte, 10)
	n, err := blob.ReadAt(ctx, buf, 0)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf[:n]))

	_, err = blob.ReadAt(ctx, buf, 5)
	assert.ErrorIs(t, err, io.EOF)

	all, err := ReadAll(ctx, blob)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(all))
}

func TestCachingStore_PutInvalidates(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	c := cache.NewLRUBlockCache(1<<20, nil)
	store := NewCachingStore(inner, c, 4)

	require.NoError(t, store.Put(ctx, "vecs/a/chunk-000000", []byte("old-bytes")))
	got, err := Get(ctx, store, "vecs/a/chunk-000000")
	require.NoError(t, err)
	assert.Equal(t, "old-bytes", string(got))
	assert.Positive(t, c.Size())

	require.NoError(t, store.Put(ctx, "vecs/a/chunk-000000", []byte("new-bytes")))
	assert.Zero(t, c.Size())
	got, err = Get(ctx, store, "vecs/a/chunk-000000")
	require.NoError(t, err)
	assert.Equal(t, "new-bytes", string(got))

	require.NoError(t, store.Delete(ctx, "vecs/a/chunk-000000"))
	assert.Zero(t, c.Size())
	_, err = store.Open(ctx, "vecs/a/chunk-000000")
	assert.ErrorIs(t, err, ErrNotFound)

	names, err := store.List(ctx, "vecs/")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestCachingStore_Concurrent(t *testing.T) {
	ctx := context.Background()
	inner := NewMemoryStore()
	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, inner.Put(ctx, "blob", data))
	store := NewCachingStore(inner, cache.NewShardedLRUBlockCache(1<<20, nil), 128)

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := store.Open(ctx, "blob")
			if !assert.NoError(t, err) {
				return
			}
			defer b.Close()
			buf := make([]byte, 300)
			off := int64(w * 400)
			n, err := b.ReadAt(ctx, buf, off)
			assert.NoError(t, err)
			assert.Equal(t, data[off:off+int64(n)], buf[:n])
		}()
	}
	wg.Wait()
}
