package fvec

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/fvec/chunk"
	"github.com/stretchr/testify/assert"
)

func TestBasicMetricsCollector(t *testing.T) {
	m := &BasicMetricsCollector{}

	m.RecordFetch(100, false, 2*time.Millisecond, nil)
	m.RecordFetch(100, true, 0, nil)
	m.RecordFetch(0, false, time.Millisecond, errors.New("boom"))
	m.RecordPublish(1000, 400, time.Millisecond, nil)
	m.RecordPublish(10, 0, time.Millisecond, errors.New("boom"))
	m.RecordEncode(chunk.TagC1, 64, 69, time.Microsecond)
	m.RecordEncode(chunk.TagC1, 64, 69, time.Microsecond)
	m.RecordEncode(chunk.TagCStr, 8, 120, time.Microsecond)
	m.RecordInflate(64)

	s := m.GetStats()
	assert.Equal(t, int64(3), s.FetchCount)
	assert.Equal(t, int64(1), s.FetchErrors)
	assert.Equal(t, int64(1), s.FetchCacheHits)
	assert.Equal(t, int64(200), s.FetchBytes)
	assert.Equal(t, int64(time.Millisecond), s.FetchAvgNanos)

	assert.Equal(t, int64(2), s.PublishCount)
	assert.Equal(t, int64(1), s.PublishErrors)
	assert.Equal(t, int64(1000), s.PublishBytes)
	assert.Equal(t, int64(400), s.PublishStored)

	assert.Equal(t, int64(3), s.EncodeCount)
	assert.Equal(t, int64(136), s.EncodeRows)
	assert.Equal(t, int64(258), s.EncodeBytes)
	assert.Equal(t, map[chunk.Tag]int64{chunk.TagC1: 2, chunk.TagCStr: 1}, s.EncodingsByTag)

	assert.Equal(t, int64(1), s.InflateCount)
	assert.Equal(t, int64(64), s.InflateRows)
}

func TestBasicMetricsCollector_Concurrent(t *testing.T) {
	m := &BasicMetricsCollector{}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				m.RecordEncode(chunk.TagC8D, 1, 8, time.Nanosecond)
			}
		}()
	}
	wg.Wait()

	s := m.GetStats()
	assert.Equal(t, int64(800), s.EncodeCount)
	assert.Equal(t, int64(800), s.EncodingsByTag[chunk.TagC8D])
}

func TestNoopMetricsCollector(t *testing.T) {
	var m MetricsCollector = NoopMetricsCollector{}
	assert.NotPanics(t, func() {
		m.RecordFetch(1, true, 0, nil)
		m.RecordPublish(1, 1, 0, nil)
		m.RecordEncode(chunk.TagC0L, 1, 13, 0)
		m.RecordInflate(1)
	})
}
