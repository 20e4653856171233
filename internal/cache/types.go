package cache

import "context"

// Kind separates key spaces that share one cache.
type Kind uint8

const (
	KindUnknown  Kind = iota
	KindChunk         // raw chunk blobs as fetched from the blob store
	KindManifest      // vec manifests
	KindBlock         // fixed-size blocks of a generic blob
)

// Key identifies one cached value. Name is the blob name; Offset selects a
// block within it and is zero for whole-blob entries.
type Key struct {
	Kind   Kind
	Name   string
	Offset uint64
}

// BlockCache is a byte-oriented cache for immutable values.
// Returned slices must be treated as read-only.
type BlockCache interface {
	// Get returns a cached value. ok=false if missing.
	Get(ctx context.Context, key Key) (b []byte, ok bool)
	// Set caches a value. The caller must treat b as immutable afterwards.
	Set(ctx context.Context, key Key, b []byte)
	// Invalidate removes entries matching the predicate.
	Invalidate(predicate func(key Key) bool)
	// Stats returns hit and miss counts.
	Stats() (hits, misses int64)
	// Size returns the cached bytes.
	Size() int64
}

// ByName matches every entry of the named blob.
func ByName(name string) func(Key) bool {
	return func(k Key) bool { return k.Name == name }
}
