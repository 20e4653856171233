package fvec

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/fvec/chunk"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// prommetrics package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordFetch is called after each blob fetch. size is the decoded
	// size and cached reports a block cache hit.
	RecordFetch(size int, cached bool, duration time.Duration, err error)

	// RecordPublish is called after each blob put. size is the raw size,
	// stored the size after the compression envelope.
	RecordPublish(size, stored int, duration time.Duration, err error)

	// RecordEncode is called after a chunk is encoded.
	RecordEncode(tag chunk.Tag, rows, size int, duration time.Duration)

	// RecordInflate is called when a write decompresses a chunk.
	RecordInflate(rows int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordFetch(int, bool, time.Duration, error)     {}
func (NoopMetricsCollector) RecordPublish(int, int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordEncode(chunk.Tag, int, int, time.Duration) {}
func (NoopMetricsCollector) RecordInflate(int)                               {}

// maxTag bounds the per-tag counters; tags are small persisted constants.
const maxTag = 32

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and tests without external dependencies.
type BasicMetricsCollector struct {
	FetchCount        atomic.Int64
	FetchErrors       atomic.Int64
	FetchCacheHits    atomic.Int64
	FetchBytes        atomic.Int64
	FetchTotalNanos   atomic.Int64
	PublishCount      atomic.Int64
	PublishErrors     atomic.Int64
	PublishBytes      atomic.Int64
	PublishStored     atomic.Int64
	PublishTotalNanos atomic.Int64
	EncodeCount       atomic.Int64
	EncodeRows        atomic.Int64
	EncodeBytes       atomic.Int64
	EncodeTotalNanos  atomic.Int64
	InflateCount      atomic.Int64
	InflateRows       atomic.Int64

	tags [maxTag]atomic.Int64
}

// RecordFetch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFetch(size int, cached bool, duration time.Duration, err error) {
	b.FetchCount.Add(1)
	b.FetchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FetchErrors.Add(1)
		return
	}
	b.FetchBytes.Add(int64(size))
	if cached {
		b.FetchCacheHits.Add(1)
	}
}

// RecordPublish implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPublish(size, stored int, duration time.Duration, err error) {
	b.PublishCount.Add(1)
	b.PublishTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.PublishErrors.Add(1)
		return
	}
	b.PublishBytes.Add(int64(size))
	b.PublishStored.Add(int64(stored))
}

// RecordEncode implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEncode(tag chunk.Tag, rows, size int, duration time.Duration) {
	b.EncodeCount.Add(1)
	b.EncodeRows.Add(int64(rows))
	b.EncodeBytes.Add(int64(size))
	b.EncodeTotalNanos.Add(duration.Nanoseconds())
	if int(tag) < maxTag {
		b.tags[tag].Add(1)
	}
}

// RecordInflate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInflate(rows int) {
	b.InflateCount.Add(1)
	b.InflateRows.Add(int64(rows))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	st := BasicMetricsStats{
		FetchCount:      b.FetchCount.Load(),
		FetchErrors:     b.FetchErrors.Load(),
		FetchCacheHits:  b.FetchCacheHits.Load(),
		FetchBytes:      b.FetchBytes.Load(),
		FetchAvgNanos:   avg(b.FetchTotalNanos.Load(), b.FetchCount.Load()),
		PublishCount:    b.PublishCount.Load(),
		PublishErrors:   b.PublishErrors.Load(),
		PublishBytes:    b.PublishBytes.Load(),
		PublishStored:   b.PublishStored.Load(),
		PublishAvgNanos: avg(b.PublishTotalNanos.Load(), b.PublishCount.Load()),
		EncodeCount:     b.EncodeCount.Load(),
		EncodeRows:      b.EncodeRows.Load(),
		EncodeBytes:     b.EncodeBytes.Load(),
		EncodeAvgNanos:  avg(b.EncodeTotalNanos.Load(), b.EncodeCount.Load()),
		InflateCount:    b.InflateCount.Load(),
		InflateRows:     b.InflateRows.Load(),
		EncodingsByTag:  make(map[chunk.Tag]int64),
	}
	for i := range b.tags {
		if n := b.tags[i].Load(); n > 0 {
			st.EncodingsByTag[chunk.Tag(i)] = n
		}
	}
	return st
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	FetchCount      int64
	FetchErrors     int64
	FetchCacheHits  int64
	FetchBytes      int64
	FetchAvgNanos   int64
	PublishCount    int64
	PublishErrors   int64
	PublishBytes    int64
	PublishStored   int64
	PublishAvgNanos int64
	EncodeCount     int64
	EncodeRows      int64
	EncodeBytes     int64
	EncodeAvgNanos  int64
	InflateCount    int64
	InflateRows     int64
	EncodingsByTag  map[chunk.Tag]int64
}
