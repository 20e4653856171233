package fvec

import (
	"runtime"

	"github.com/hupe1980/fvec/codec"
	"github.com/hupe1980/fvec/internal/cache"
	"github.com/hupe1980/fvec/internal/envelope"
	"github.com/hupe1980/fvec/resource"
)

// Compression selects the envelope applied to persisted blobs.
type Compression = envelope.Compression

const (
	// CompressionNone stores chunk bytes as encoded.
	CompressionNone = envelope.None
	// CompressionLZ4 is fast block compression, good for hot data.
	CompressionLZ4 = envelope.LZ4
	// CompressionZSTD has a better ratio, good for cold data.
	CompressionZSTD = envelope.ZSTD
)

// BlockCache caches fetched blobs. CacheKey identifies an entry.
type (
	BlockCache = cache.BlockCache
	CacheKey   = cache.Key
)

// DefaultChunkSize is the number of rows per chunk written by a VecWriter.
const DefaultChunkSize = 1 << 16

type options struct {
	logger      *Logger
	metrics     MetricsCollector
	compression Compression
	cache       BlockCache
	cacheSize   int64
	rc          *resource.Controller
	codec       codec.Codec
	prefix      string
	chunkSize   int
	parallelism int
}

func defaultOptions() options {
	return options{
		logger:      NoopLogger(),
		metrics:     NoopMetricsCollector{},
		compression: CompressionNone,
		codec:       codec.Default,
		prefix:      "vecs",
		chunkSize:   DefaultChunkSize,
		parallelism: runtime.GOMAXPROCS(0),
	}
}

func (o *options) apply(opts []Option) {
	for _, opt := range opts {
		opt(o)
	}
}

// Option configures a Store or a VecWriter.
//
// Options given to NewVecWriter override the Store's for that writer only.
// WithCache and WithCacheSize have no effect there.
type Option func(*options)

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetrics sets the metrics collector. If nil is passed, metrics are
// disabled.
func WithMetrics(m MetricsCollector) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		o.metrics = m
	}
}

// WithCompression sets the envelope compression for published blobs.
// Reads detect the compression of each blob, so it can change at any time.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithCache sets the cache for decoded blobs. It takes precedence over
// WithCacheSize.
func WithCache(c BlockCache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithCacheSize enables a sharded LRU cache of the given size in bytes.
// Zero disables caching.
func WithCacheSize(bytes int64) Option {
	return func(o *options) {
		o.cacheSize = bytes
	}
}

// WithResourceController sets the controller that bounds cache memory,
// encode workers and publish bandwidth.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithCodec sets the codec for newly written manifests.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithPrefix sets the blob name prefix under which vecs are stored.
// The default is "vecs".
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithChunkSize sets the rows per chunk. Values <= 0 select
// DefaultChunkSize.
func WithChunkSize(rows int) Option {
	return func(o *options) {
		if rows <= 0 {
			rows = DefaultChunkSize
		}
		o.chunkSize = rows
	}
}

// WithParallelism bounds concurrent chunk encodes, publishes and loads.
// Values <= 0 select GOMAXPROCS.
func WithParallelism(n int) Option {
	return func(o *options) {
		if n <= 0 {
			n = runtime.GOMAXPROCS(0)
		}
		o.parallelism = n
	}
}
