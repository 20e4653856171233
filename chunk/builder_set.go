package chunk

import (
	"math"

	"github.com/hupe1980/fvec/internal/layout"
)

// writable returns the storage index for an overwrite of row i, going dense
// when the row is an implicit zero.
func (b *Builder) writable(i int) int {
	checkIndex(i, b.n)
	b.touch()
	k, ok := b.slot(i)
	if ok {
		return k
	}
	b.cancelSparse()
	return i
}

// SetInt overwrites row i with the integer v.
func (b *Builder) SetInt(i int, v int64) {
	b.SetDecimal(i, v, 0)
}

// SetDecimal overwrites row i with m * 10^x.
func (b *Builder) SetDecimal(i int, m int64, x int) {
	checkIndex(i, b.n)
	switch b.rep {
	case repReal:
		b.SetReal(i, decimal(m, x))
		return
	case repUUID, repText:
		unsupported("SetDecimal", b.Kind())
	}
	if x <= expEnum || x > math.MaxInt32 {
		b.SetReal(i, decimal(m, x))
		return
	}
	m, x = layout.Normalize(m, x)
	k := b.writable(i)
	b.dec.m[k], b.dec.x[k] = m, int32(x)
}

// SetReal overwrites row i with d. NaN marks the row missing.
func (b *Builder) SetReal(i int, d float64) {
	checkIndex(i, b.n)
	if math.IsNaN(d) {
		b.SetMissing(i)
		return
	}
	switch b.rep {
	case repUUID, repText:
		unsupported("SetReal", b.Kind())
	case repDecimal, repNone:
		b.cancelSparseIfNone()
		b.switchToReals()
	}
	k := b.writable(i)
	b.ds[k] = d
}

// cancelSparseIfNone gives an all-zero sparse buffer a dense decimal body so
// it can be converted.
func (b *Builder) cancelSparseIfNone() {
	if b.rep == repNone {
		b.cancelSparse()
		b.rep = repDecimal
	}
}

// SetMissing marks row i missing.
func (b *Builder) SetMissing(i int) {
	if b.IsMissing(i) {
		return
	}
	b.cancelSparseIfNone()
	k := b.writable(i)
	switch b.rep {
	case repDecimal:
		b.dec.m[k], b.dec.x[k] = 0, expNA
	case repReal:
		b.ds[k] = math.NaN()
	case repUUID:
		b.uu.lo[k], b.uu.hi[k] = layout.UUIDLoNA, layout.UUIDHiNA
	case repText:
		b.offs[k] = -1
	}
}

// SetEnum overwrites row i with an enum code. Buffers that cannot hold codes
// record a missing entry instead.
func (b *Builder) SetEnum(i int, code uint32) {
	checkIndex(i, b.n)
	b.cancelSparseIfNone()
	if b.rep != repDecimal {
		b.SetMissing(i)
		return
	}
	k := b.writable(i)
	b.dec.m[k], b.dec.x[k] = int64(code), expEnum
}

// SetUUID overwrites row i of a UUID buffer.
func (b *Builder) SetUUID(i int, lo, hi int64) {
	checkIndex(i, b.n)
	if b.rep != repUUID {
		unsupported("SetUUID", b.Kind())
	}
	b.touch()
	b.uu.lo[i], b.uu.hi[i] = lo, hi
}

// SetText overwrites row i of a text buffer. nil marks the row missing. The
// previous bytes stay in the pool until the buffer is encoded.
func (b *Builder) SetText(i int, t []byte) {
	checkIndex(i, b.n)
	if b.rep != repText {
		unsupported("SetText", b.Kind())
	}
	if t == nil {
		b.SetMissing(i)
		return
	}
	b.touch()
	n := b.n
	b.appendText(t)
	b.n = n
	b.offs[i] = b.offs[len(b.offs)-1]
	b.offs = b.offs[:len(b.offs)-1]
}

// Set overwrites row i with v.
func (b *Builder) Set(i int, v Value) {
	switch v.typ {
	case TypeInteger:
		b.SetDecimal(i, v.m, int(v.x))
	case TypeReal:
		b.SetReal(i, v.f)
	case TypeEnum:
		b.SetEnum(i, uint32(v.m))
	case TypeUUID:
		b.SetUUID(i, v.m, v.hi)
	case TypeText:
		b.SetText(i, v.text)
	default:
		b.SetMissing(i)
	}
}
