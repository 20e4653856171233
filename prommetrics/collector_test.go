package prommetrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/fvec"
	"github.com/hupe1980/fvec/blobstore"
	"github.com/hupe1980/fvec/chunk"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	c.RecordFetch(100, false, time.Millisecond, nil)
	c.RecordFetch(100, true, 0, nil)
	c.RecordFetch(0, false, time.Millisecond, errors.New("boom"))
	c.RecordPublish(1000, 300, time.Millisecond, nil)
	c.RecordEncode(chunk.TagC2S, 64, 145, time.Microsecond)
	c.RecordEncode(chunk.TagC2S, 64, 145, time.Microsecond)
	c.RecordInflate(64)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.fetches.WithLabelValues("store", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fetches.WithLabelValues("cache", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fetches.WithLabelValues("store", "error")))
	assert.Equal(t, 200.0, testutil.ToFloat64(c.fetchBytes))
	assert.Equal(t, 1000.0, testutil.ToFloat64(c.publishBytes.WithLabelValues("raw")))
	assert.Equal(t, 300.0, testutil.ToFloat64(c.publishBytes.WithLabelValues("stored")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.encodes.WithLabelValues("C2S")))
	assert.Equal(t, 128.0, testutil.ToFloat64(c.encodeRows))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.inflates))

	n, err := testutil.GatherAndCount(reg, "fvec_encodes_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCollector_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)

	_, err = New(reg)
	require.Error(t, err)

	_, err = New(reg, WithNamespace("other"))
	require.NoError(t, err)
}

func TestCollector_Store(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	c, err := New(reg, WithBuckets([]float64{0.001, 0.1}))
	require.NoError(t, err)

	st := fvec.NewStore(blobstore.NewMemoryStore(), fvec.WithMetrics(c), fvec.WithChunkSize(8))
	w, err := st.NewVecWriter(ctx, "v")
	require.NoError(t, err)
	for i := range 20 {
		require.NoError(t, w.AppendInt(int64(i)))
	}
	v, err := w.Close()
	require.NoError(t, err)

	_, err = v.At(ctx, 19)
	require.NoError(t, err)

	assert.Equal(t, 20.0, testutil.ToFloat64(c.encodeRows))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.publishes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fetches.WithLabelValues("store", "ok")))
}
