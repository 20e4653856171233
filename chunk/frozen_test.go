package chunk

import (
	"math"
	"sync"
	"testing"

	"github.com/hupe1980/fvec/internal/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Corrupt(t *testing.T) {
	valid := Encode(build(ints(1, 2, 300)...)).Bytes()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short prefix", []byte{byte(TagC8), 1, 0}},
		{"unknown tag", []byte{99, 0, 0, 0, 0}},
		{"zero tag", []byte{0, 0, 0, 0, 0}},
		{"truncated payload", valid[:len(valid)-1]},
		{"trailing bytes", append(append([]byte{}, valid...), 0)},
		{"constant with payload", append(constLong(3, 1), 7)},
		{"bad bits per value", func() []byte {
			buf := frame(TagCBS, 8, 1)
			buf[prefixSize+1] = 3
			return buf
		}()},
		{"bad gap", func() []byte {
			buf := frame(TagCBS, 4, 1)
			buf[prefixSize+1] = 1
			return buf
		}()},
		{"sparse rows out of order", func() []byte {
			buf := frame(TagCX0, 10, 4)
			buf[prefixSize] = 2
			layout.Set2(buf, prefixSize+2, 5)
			layout.Set2(buf, prefixSize+4, 3)
			return buf
		}()},
		{"sparse row beyond length", func() []byte {
			buf := frame(TagCX0, 10, 2)
			buf[prefixSize] = 2
			layout.Set2(buf, prefixSize+2, 10)
			return buf
		}()},
		{"sparse value width", func() []byte {
			buf := frame(TagCXI, 10, 5)
			buf[prefixSize], buf[prefixSize+1] = 2, 3
			return buf
		}()},
		{"text offset outside pool", func() []byte {
			buf := frame(TagCStr, 1, 4+2)
			layout.SetU4(buf, prefixSize, 2)
			layout.Set4(buf, prefixSize+4, 9)
			return buf
		}()},
		{"text entry past pool", func() []byte {
			buf := frame(TagCStr, 1, 4+2)
			layout.SetU4(buf, prefixSize, 2)
			buf[prefixSize+8] = 5
			return buf
		}()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			require.ErrorIs(t, err, ErrCorrupt)
		})
	}

	_, err := Decode(valid)
	require.NoError(t, err)
}

func TestFrozen_Float32(t *testing.T) {
	buf := frame(TagC4F, 3, 12)
	layout.Set4f(buf, prefixSize, 1.5)
	layout.Set4f(buf, prefixSize+4, math.NaN())
	layout.Set4f(buf, prefixSize+8, -2)

	f, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, 1.5, f.At(0))
	assert.True(t, f.IsMissing(1))
	assert.Equal(t, int64(-2), f.AtInt(2))

	g := f.clone()
	assert.True(t, g.setReal(0, 0.25))
	assert.False(t, g.setReal(0, 0.1))
	assert.Equal(t, 0.25, g.At(0))
	assert.Equal(t, 1.5, f.At(0), "clone must not alias")

	b := f.Inflate()
	assert.Equal(t, 3, b.Len())
	assert.True(t, b.IsMissing(1))
}

func TestFrozen_Panics(t *testing.T) {
	f := Encode(build(Int(1, 0), na, Int(300, 0)))

	var ie *IndexError
	require.ErrorAs(t, capturePanic(func() { f.At(-1) }), &ie)
	assert.Equal(t, -1, ie.Index)
	require.ErrorIs(t, capturePanic(func() { f.At(3) }), ErrIndexOutOfRange)
	require.ErrorIs(t, capturePanic(func() { f.IsMissing(3) }), ErrIndexOutOfRange)

	require.ErrorIs(t, capturePanic(func() { f.AtInt(1) }), ErrMissingValue)
	require.ErrorIs(t, capturePanic(func() { f.AtText(0) }), ErrUnsupported)
	require.ErrorIs(t, capturePanic(func() { f.AtUUID(0) }), ErrUnsupported)

	text := Encode(build(Text([]byte("a"))))
	require.ErrorIs(t, capturePanic(func() { text.At(0) }), ErrUnsupported)
}

func TestFrozen_AllMissing(t *testing.T) {
	f := Encode(build(na, na, na))
	require.Equal(t, TagC0D, f.Tag())

	for i := range 3 {
		assert.True(t, f.IsMissing(i))
		got, ok := f.AtText(i)
		assert.False(t, ok)
		assert.Nil(t, got)

		var mv *MissingValueError
		require.ErrorAs(t, capturePanic(func() { f.AtUUID(i) }), &mv)
		assert.Equal(t, i, mv.Index)
	}

	t.Run("inflated", func(t *testing.T) {
		b := f.Inflate()
		_, ok := b.AtText(1)
		assert.False(t, ok)
		require.ErrorIs(t, capturePanic(func() { b.AtUUID(1) }), ErrMissingValue)
	})

	t.Run("constant stays unsupported", func(t *testing.T) {
		c := Encode(build(Real(0.1), Real(0.1)))
		require.Equal(t, TagC0D, c.Tag())
		require.ErrorIs(t, capturePanic(func() { c.AtText(0) }), ErrUnsupported)
		require.ErrorIs(t, capturePanic(func() { c.AtUUID(0) }), ErrUnsupported)
	})
}

func TestFrozen_ConcurrentReads(t *testing.T) {
	b := NewBuilder()
	for i := range 10_000 {
		if i%97 == 0 {
			b.AppendInt(int64(i), 0)
		} else {
			b.AppendInt(0, 0)
		}
	}
	f := Encode(b)
	require.True(t, f.Sparse())

	var wg sync.WaitGroup
	for w := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := w; i < f.Len(); i += 3 {
				want := int64(0)
				if i%97 == 0 {
					want = int64(i)
				}
				if got := f.AtInt(i); got != want {
					t.Errorf("row %d: got %d, want %d", i, got, want)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestFrozen_MissingMask(t *testing.T) {
	f := Encode(build(Real(0.5), na, Real(1.25), na))
	require.Equal(t, TagC8D, f.Tag())
	mask := f.MissingMask()
	assert.Equal(t, uint(2), mask.Count())
	assert.True(t, mask.Test(1))
	assert.True(t, mask.Test(3))

	rows := f.NonZeroRows()
	assert.Equal(t, uint64(4), rows.GetCardinality())
	assert.Equal(t, 1, f.NextNonZero(0))
}
