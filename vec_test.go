package fvec

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/hupe1980/fvec/blobstore"
	"github.com/hupe1980/fvec/chunk"
	"github.com/hupe1980/fvec/codec"
	"github.com/hupe1980/fvec/internal/envelope"
	"github.com/hupe1980/fvec/resource"
	"github.com/hupe1980/fvec/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeInts(t *testing.T, st *Store, name string, vals []int64, opts ...Option) *Vec {
	t.Helper()
	w, err := st.NewVecWriter(context.Background(), name, opts...)
	require.NoError(t, err)
	for _, v := range vals {
		require.NoError(t, w.AppendInt(v))
	}
	v, err := w.Close()
	require.NoError(t, err)
	return v
}

func TestVecWriter_Chunking(t *testing.T) {
	ctx := context.Background()
	st, ms, m := newTestStore(t, WithChunkSize(4))

	v := writeInts(t, st, "ids", []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	assert.Equal(t, int64(10), v.Len())
	assert.Equal(t, 3, v.NumChunks())
	assert.Equal(t, []int64{0, 4, 8, 10}, v.Espc())
	assert.Equal(t, 2, v.ChunkLen(2))
	assert.Equal(t, int64(8), v.ChunkStart(2))
	assert.Equal(t, "ids/chunk-000002", v.ChunkID(2))

	// three chunks and a manifest
	assert.Equal(t, 4, ms.Len())
	assert.Equal(t, int64(3), m.GetStats().EncodeCount)
	assert.Equal(t, int64(10), m.GetStats().EncodeRows)

	opened, err := st.OpenVec(ctx, "ids")
	require.NoError(t, err)
	assert.Equal(t, v.Espc(), opened.Espc())
	assert.Equal(t, "go-json", opened.Codec().Name())

	for row := range int64(10) {
		d, err := opened.At(ctx, row)
		require.NoError(t, err)
		assert.Equal(t, float64(row), d)
	}
}

func TestVec_ChunkIndex(t *testing.T) {
	st, _, _ := newTestStore(t, WithChunkSize(3))
	v := writeInts(t, st, "v", make([]int64, 7))

	tests := []struct {
		row          int64
		chunk, local int
	}{
		{0, 0, 0},
		{2, 0, 2},
		{3, 1, 0},
		{5, 1, 2},
		{6, 2, 0},
	}
	for _, tt := range tests {
		idx, local, err := v.ChunkIndex(tt.row)
		require.NoError(t, err)
		assert.Equal(t, tt.chunk, idx, "row %d", tt.row)
		assert.Equal(t, tt.local, local, "row %d", tt.row)
	}

	for _, row := range []int64{-1, 7, 100} {
		_, _, err := v.ChunkIndex(row)
		var rerr *ErrRowOutOfRange
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, row, rerr.Row)
		assert.Equal(t, int64(7), rerr.Rows)
		assert.ErrorIs(t, err, chunk.ErrIndexOutOfRange)
	}

	_, err := v.Chunk(context.Background(), 3)
	var cerr *ErrChunkOutOfRange
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 3, cerr.Chunks)
}

func TestVecWriter_ValueKinds(t *testing.T) {
	ctx := context.Background()
	st, _, _ := newTestStore(t, WithCompression(CompressionZSTD))
	rng := testutil.NewRNG(4711)

	t.Run("Decimal", func(t *testing.T) {
		cents := rng.Mantissas(500, 5)
		w, err := st.NewVecWriter(ctx, "price", WithChunkSize(128))
		require.NoError(t, err)
		for _, c := range cents {
			require.NoError(t, w.AppendDecimal(c, -2))
		}
		v, err := w.Close()
		require.NoError(t, err)

		for _, row := range []int64{0, 127, 128, 499} {
			d, err := v.At(ctx, row)
			require.NoError(t, err)
			assert.Equal(t, float64(cents[row])/100, d)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		mask := rng.Missing(300, 0.1)
		w, err := st.NewVecWriter(ctx, "sparse", WithChunkSize(100))
		require.NoError(t, err)
		for i, na := range mask {
			if na {
				require.NoError(t, w.AppendMissing())
			} else {
				require.NoError(t, w.AppendReal(float64(i)+0.5))
			}
		}
		v, err := w.Close()
		require.NoError(t, err)

		chunks, err := v.Load(ctx)
		require.NoError(t, err)
		require.Len(t, chunks, 3)
		for i, na := range mask {
			c := chunks[i/100]
			assert.Equal(t, na, c.IsMissing(i%100), "row %d", i)
			d, err := v.At(ctx, int64(i))
			require.NoError(t, err)
			if na {
				assert.True(t, math.IsNaN(d))
			} else {
				assert.Equal(t, float64(i)+0.5, d)
			}
		}
	})

	t.Run("Text", func(t *testing.T) {
		texts := rng.Texts(50, 12)
		w, err := st.NewVecWriter(ctx, "names")
		require.NoError(t, err)
		for _, tx := range texts {
			require.NoError(t, w.AppendText(tx))
		}
		v, err := w.Close()
		require.NoError(t, err)

		c, err := v.Chunk(ctx, 0)
		require.NoError(t, err)
		for i, tx := range texts {
			got, ok := c.AtText(i)
			require.True(t, ok)
			assert.Equal(t, tx, got)
		}
	})

	t.Run("UUID", func(t *testing.T) {
		lo, hi := rng.UUIDs(20)
		w, err := st.NewVecWriter(ctx, "uuids")
		require.NoError(t, err)
		for i := range lo {
			require.NoError(t, w.AppendValue(chunk.UUID(lo[i], hi[i])))
		}
		v, err := w.Close()
		require.NoError(t, err)

		c, err := v.Chunk(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, chunk.TagC16, c.Frozen().Tag())
		gotLo, gotHi := c.AtUUID(7)
		assert.Equal(t, lo[7], gotLo)
		assert.Equal(t, hi[7], gotHi)
	})

	t.Run("Enum", func(t *testing.T) {
		codes := rng.Zipf(200, 4, 1.5)
		w, err := st.NewVecWriter(ctx, "levels")
		require.NoError(t, err)
		w.SetEnumDomain(4)
		for _, c := range codes {
			require.NoError(t, w.AppendEnum(c))
		}
		v, err := w.Close()
		require.NoError(t, err)

		for _, row := range []int64{0, 99, 199} {
			d, err := v.At(ctx, row)
			require.NoError(t, err)
			assert.Equal(t, float64(codes[row]), d)
		}
	})

	names, err := st.Vecs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"price", "sparse", "names", "uuids", "levels"}, names)
}

func TestVec_Update(t *testing.T) {
	ctx := context.Background()
	st, _, m := newTestStore(t, WithChunkSize(4), WithCacheSize(1<<20))
	v := writeInts(t, st, "v", []int64{1, 2, 3, 4, 5, 6, 7, 8})

	d, err := v.At(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, 6.0, d)

	f, err := v.Update(ctx, 1, func(c *chunk.Chunk) error {
		c.SetReal(1, 2.5)
		c.SetMissing(2)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, f.Len())
	assert.Equal(t, int64(1), m.GetStats().InflateCount)

	d, err = v.At(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 2.5, d)
	d, err = v.At(ctx, 6)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(d))

	t.Run("CallbackError", func(t *testing.T) {
		boom := errors.New("boom")
		before := m.GetStats().PublishCount
		_, err := v.Update(ctx, 0, func(c *chunk.Chunk) error {
			c.SetInt(0, 100)
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, before, m.GetStats().PublishCount)

		d, err := v.At(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, 1.0, d)
	})

	t.Run("NoWrites", func(t *testing.T) {
		before := m.GetStats().PublishCount
		f, err := v.Update(ctx, 0, func(*chunk.Chunk) error { return nil })
		require.NoError(t, err)
		assert.Equal(t, 4, f.Len())
		assert.Equal(t, before, m.GetStats().PublishCount)
	})
}

func TestVecWriter_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("InvalidName", func(t *testing.T) {
		st, _, _ := newTestStore(t)
		for _, name := range []string{"", "a/b", "..", "/abs"} {
			_, err := st.NewVecWriter(ctx, name)
			assert.ErrorIs(t, err, ErrInvalidName, name)
		}
		_, err := st.OpenVec(ctx, "a/b")
		assert.ErrorIs(t, err, ErrInvalidName)
	})

	t.Run("Closed", func(t *testing.T) {
		st, _, _ := newTestStore(t)
		w, err := st.NewVecWriter(ctx, "v")
		require.NoError(t, err)
		require.NoError(t, w.AppendInt(1))
		_, err = w.Close()
		require.NoError(t, err)

		assert.ErrorIs(t, w.AppendInt(2), ErrClosed)
		_, err = w.Close()
		assert.ErrorIs(t, err, ErrClosed)
		assert.ErrorIs(t, w.Abort(ctx), ErrClosed)
	})

	t.Run("PublishFailure", func(t *testing.T) {
		boom := errors.New("boom")
		fs := &failingStore{MemoryStore: blobstore.NewMemoryStore(), err: boom}
		st := NewStore(fs, WithChunkSize(2), WithLogger(NoopLogger()))

		w, err := st.NewVecWriter(ctx, "v")
		require.NoError(t, err)
		for i := range 5 {
			if err := w.AppendInt(int64(i)); err != nil {
				assert.ErrorIs(t, err, boom)
				break
			}
		}
		_, err = w.Close()
		assert.ErrorIs(t, err, boom)

		_, err = st.OpenVec(ctx, "v")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("MemoryLimit", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 8})
		st, _, _ := newTestStore(t, WithResourceController(rc), WithChunkSize(4))

		w, err := st.NewVecWriter(ctx, "v")
		require.NoError(t, err)
		for i := range 3 {
			require.NoError(t, w.AppendInt(int64(i)))
		}
		assert.ErrorIs(t, w.AppendInt(3), resource.ErrMemoryLimitExceeded)
		assert.Zero(t, rc.MemoryInUse())
	})

	t.Run("Canceled", func(t *testing.T) {
		st, _, _ := newTestStore(t)
		cctx, cancel := context.WithCancel(ctx)
		w, err := st.NewVecWriter(cctx, "v")
		require.NoError(t, err)
		cancel()

		assert.ErrorIs(t, w.AppendInt(1), context.Canceled)
		_, err = w.Close()
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestVecWriter_WarmCache(t *testing.T) {
	const limit = 4096
	rc := resource.NewController(resource.Config{MemoryLimitBytes: limit})
	st, _, _ := newTestStore(t, WithResourceController(rc), WithCacheSize(1<<20), WithChunkSize(64))
	rng := testutil.NewRNG(99)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	writeReals := func(name string) *Vec {
		w, err := st.NewVecWriter(ctx, name)
		require.NoError(t, err)
		for _, d := range rng.Reals(1024, 0, 1) {
			require.NoError(t, w.AppendReal(d))
		}
		v, err := w.Close()
		require.NoError(t, err)
		return v
	}

	v := writeReals("warm")
	_, err := v.Load(ctx)
	require.NoError(t, err)
	require.Greater(t, rc.MemoryInUse(), int64(limit-64*bytesPerRow), "the cache holds most of the budget")

	cold := writeReals("cold")
	assert.Equal(t, int64(1024), cold.Len())
	assert.LessOrEqual(t, rc.MemoryInUse(), int64(limit))
}

func TestVecWriter_Empty(t *testing.T) {
	ctx := context.Background()
	st, _, _ := newTestStore(t)

	v := writeInts(t, st, "empty", nil)
	assert.Zero(t, v.Len())
	assert.Zero(t, v.NumChunks())

	opened, err := st.OpenVec(ctx, "empty")
	require.NoError(t, err)
	assert.Zero(t, opened.Len())

	_, err = opened.At(ctx, 0)
	assert.ErrorIs(t, err, chunk.ErrIndexOutOfRange)

	chunks, err := opened.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestVecWriter_Abort(t *testing.T) {
	ctx := context.Background()
	st, ms, _ := newTestStore(t, WithChunkSize(2))

	w, err := st.NewVecWriter(ctx, "v")
	require.NoError(t, err)
	for i := range 5 {
		require.NoError(t, w.AppendInt(int64(i)))
	}
	assert.Equal(t, int64(5), w.Len())

	require.NoError(t, w.Abort(ctx))
	assert.Zero(t, ms.Len())
	assert.ErrorIs(t, w.AppendInt(1), ErrClosed)
}

func TestStore_DeleteVec(t *testing.T) {
	ctx := context.Background()
	st, ms, _ := newTestStore(t, WithChunkSize(2), WithCacheSize(1<<20))

	writeInts(t, st, "a", []int64{1, 2, 3, 4, 5})
	writeInts(t, st, "b", []int64{1})
	_, err := st.OpenVec(ctx, "a")
	require.NoError(t, err)

	require.NoError(t, st.DeleteVec(ctx, "a"))
	assert.Equal(t, 2, ms.Len())

	_, err = st.OpenVec(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)

	names, err := st.Vecs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names)
}

func TestVec_ManifestCodec(t *testing.T) {
	ctx := context.Background()
	st, _, _ := newTestStore(t, WithCodec(codec.JSON{}))
	writeInts(t, st, "v", []int64{1, 2, 3})

	// Readers detect the codec of each manifest.
	reader := NewStore(storeBlobs(st))
	v, err := reader.OpenVec(ctx, "v")
	require.NoError(t, err)
	assert.Equal(t, "json", v.Codec().Name())
	assert.Equal(t, int64(3), v.Len())
}

func TestVec_CorruptManifest(t *testing.T) {
	ctx := context.Background()
	st, _, _ := newTestStore(t)

	b, err := codec.Wrap(nil, &manifest{Version: manifestVersion, Name: "v", Espc: []int64{0, 4, 4}})
	require.NoError(t, err)
	require.NoError(t, st.PutBytes(ctx, manifestID("v"), b))

	_, err = st.OpenVec(ctx, "v")
	assert.ErrorContains(t, err, "empty or out of order")
}

func storeBlobs(s *Store) blobstore.BlobStore { return s.bs }

func TestVecWriter_OptionOverride(t *testing.T) {
	ctx := context.Background()
	st, ms, _ := newTestStore(t)

	vals := make([]int64, 1000)
	for i := range vals {
		vals[i] = int64(i % 3)
	}
	writeInts(t, st, "v", vals, WithCompression(CompressionLZ4), WithCodec(codec.JSON{}))

	raw, err := blobstore.Get(ctx, ms, "vecs/v/chunk-000000")
	require.NoError(t, err)
	assert.True(t, envelope.Compressed(raw))

	v, err := st.OpenVec(ctx, "v")
	require.NoError(t, err)
	assert.Equal(t, "json", v.Codec().Name())

	// The store itself keeps its own settings.
	require.NoError(t, st.PutBytes(ctx, "plain", make([]byte, 1024)))
	raw, err = blobstore.Get(ctx, ms, "vecs/plain")
	require.NoError(t, err)
	assert.False(t, envelope.Compressed(raw))
}
