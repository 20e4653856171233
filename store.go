package fvec

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/hupe1980/fvec/blobstore"
	"github.com/hupe1980/fvec/chunk"
	"github.com/hupe1980/fvec/internal/cache"
	"github.com/hupe1980/fvec/internal/envelope"
)

// Store fetches and publishes chunk bytes by ID. IDs are blob names below
// the configured prefix. Every blob is written inside a compression
// envelope; reads detect the envelope's compression.
//
// Store is safe for concurrent use.
type Store struct {
	bs    blobstore.BlobStore
	cache BlockCache
	opts  options
}

var _ chunk.Publisher = (*Store)(nil)

// NewStore creates a Store on top of bs.
func NewStore(bs blobstore.BlobStore, opts ...Option) *Store {
	o := defaultOptions()
	o.apply(opts)

	c := o.cache
	if c == nil && o.cacheSize > 0 {
		c = cache.NewShardedLRUBlockCache(o.cacheSize, o.rc)
	}
	return &Store{bs: bs, cache: c, opts: o}
}

// Cache returns the blob cache, or nil when caching is disabled.
func (s *Store) Cache() BlockCache { return s.cache }

func (s *Store) blobName(id string) string {
	if s.opts.prefix == "" {
		return id
	}
	return path.Join(s.opts.prefix, id)
}

func cacheKey(id string) cache.Key {
	if strings.HasSuffix(id, manifestSuffix) {
		return cache.Key{Kind: cache.KindManifest, Name: id}
	}
	return cache.Key{Kind: cache.KindChunk, Name: id}
}

// GetBytes returns the decoded bytes stored under id. The result may be
// shared with the cache and must not be modified.
func (s *Store) GetBytes(ctx context.Context, id string) ([]byte, error) {
	start := time.Now()
	if s.cache != nil {
		if b, ok := s.cache.Get(ctx, cacheKey(id)); ok {
			s.opts.metrics.RecordFetch(len(b), true, time.Since(start), nil)
			s.opts.logger.LogFetch(ctx, id, len(b), true, nil)
			return b, nil
		}
	}

	b, err := s.fetch(ctx, id)
	s.opts.metrics.RecordFetch(len(b), false, time.Since(start), err)
	s.opts.logger.LogFetch(ctx, id, len(b), false, err)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, cacheKey(id), b)
	}
	return b, nil
}

func (s *Store) fetch(ctx context.Context, id string) ([]byte, error) {
	env, err := blobstore.Get(ctx, s.bs, s.blobName(id))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", id, translateError(err))
	}
	b, err := envelope.Open(env)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", id, err)
	}
	return b, nil
}

// PutBytes publishes data under id, replacing any previous content. It
// waits for publish bandwidth when a resource controller limits it.
func (s *Store) PutBytes(ctx context.Context, id string, data []byte) error {
	start := time.Now()
	stored, err := s.put(ctx, id, data)
	s.opts.metrics.RecordPublish(len(data), stored, time.Since(start), err)
	s.opts.logger.LogPublish(ctx, id, len(data), stored, err)
	return err
}

func (s *Store) put(ctx context.Context, id string, data []byte) (int, error) {
	env, err := envelope.Seal(data, s.opts.compression)
	if err != nil {
		return 0, fmt.Errorf("publish %s: %w", id, err)
	}
	if err := s.opts.rc.WaitPublish(ctx, len(env)); err != nil {
		return 0, fmt.Errorf("publish %s: %w", id, err)
	}
	if err := s.bs.Put(ctx, s.blobName(id), env); err != nil {
		return 0, fmt.Errorf("publish %s: %w", id, err)
	}
	if s.cache != nil {
		s.cache.Invalidate(cache.ByName(id))
	}
	return len(env), nil
}

// Delete removes the blob stored under id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if s.cache != nil {
		s.cache.Invalidate(cache.ByName(id))
	}
	if err := s.bs.Delete(ctx, s.blobName(id)); err != nil {
		return fmt.Errorf("delete %s: %w", id, translateError(err))
	}
	return nil
}

// List returns the IDs starting with prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	full := prefix
	if s.opts.prefix != "" {
		full = s.opts.prefix + "/" + prefix
	}
	names, err := s.bs.List(ctx, full)
	if err != nil {
		return nil, err
	}
	if s.opts.prefix == "" {
		return names, nil
	}
	ids := make([]string, len(names))
	for i, n := range names {
		ids[i] = n[len(s.opts.prefix)+1:]
	}
	return ids, nil
}

// OpenChunk fetches and decodes the chunk stored under id. start is the
// global row of its first row.
func (s *Store) OpenChunk(ctx context.Context, id string, start int64) (*chunk.Chunk, error) {
	b, err := s.GetBytes(ctx, id)
	if err != nil {
		return nil, err
	}
	return chunk.Open(id, start, b)
}

// CloseChunk encodes the pending writes of c and publishes the result.
// It records an inflate when the writes decompressed the chunk.
func (s *Store) CloseChunk(ctx context.Context, c *chunk.Chunk) (*chunk.Frozen, error) {
	if c.State() != chunk.StateWritable {
		return c.Frozen(), nil
	}
	if c.Inflated() {
		s.opts.metrics.RecordInflate(c.Len())
		s.opts.logger.LogInflate(ctx, c.ID(), c.Len())
	}
	start := time.Now()
	f, err := c.Close(ctx, s)
	if err != nil {
		return nil, err
	}
	s.opts.metrics.RecordEncode(f.Tag(), f.Len(), f.Size(), time.Since(start))
	s.opts.logger.LogEncode(ctx, c.ID(), f)
	return f, nil
}
