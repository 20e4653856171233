package chunk

import (
	"encoding/binary"
	"math"

	"github.com/hupe1980/fvec/internal/layout"
)

func decimal(m int64, x int) float64 { return layout.Decimal(m, x) }

// toLong converts a decimal to an int64, truncating any fraction.
func toLong(m int64, x int) int64 {
	if x >= 0 && x < len(layout.Pow10i) {
		return m * layout.Pow10i[x]
	}
	return int64(decimal(m, x))
}

// fixed loads row i of a dense fixed width integer encoding and reports
// whether it holds the width's missing sentinel.
func (f *Frozen) fixed(i int) (int64, bool) {
	w := f.tag.width()
	v := layout.GetN(f.mem, f.off+i*w, w)
	return v, f.tag != TagC1N && v == layout.NAForWidth(w)
}

func (f *Frozen) uuid(i int) (lo, hi int64) {
	off := f.off + 16*i
	return layout.Get8(f.mem, off), layout.Get8(f.mem, off+8)
}

func (f *Frozen) text(i int) ([]byte, bool) {
	o := int(layout.Get4(f.mem, f.off+4*i))
	if o == -1 {
		return nil, false
	}
	pool := f.mem[f.pool:]
	l, k := binary.Uvarint(pool[o:])
	start := o + k
	return pool[start : start+int(l) : start+int(l)], true
}

func (f *Frozen) bit(i int) byte {
	return layout.ReadBits(f.mem[f.off:], i, f.bpv)
}

func (f *Frozen) atd(i int) float64 {
	switch f.tag {
	case TagC0L:
		return float64(f.con)
	case TagC0D:
		return f.conD
	case TagC1N, TagC1, TagC2, TagC4, TagC8:
		v, na := f.fixed(i)
		if na {
			return math.NaN()
		}
		return float64(v)
	case TagC1S, TagC2S, TagC4S:
		v, na := f.fixed(i)
		if na {
			return math.NaN()
		}
		return decimal(v+f.bias, f.scale)
	case TagC4F:
		return layout.Get4f(f.mem, f.off+4*i)
	case TagC8D:
		return layout.Get8d(f.mem, f.off+8*i)
	case TagCBS:
		c := f.bit(i)
		if f.bpv == 2 && c == layout.BitNA {
			return math.NaN()
		}
		return float64(c)
	case TagCX0:
		if _, ok := f.lookup(i); ok {
			return 1
		}
		return 0
	case TagCXI:
		k, ok := f.lookup(i)
		if !ok {
			return 0
		}
		v := f.sparseInt(k)
		if v == layout.NAForWidth(f.valsz) {
			return math.NaN()
		}
		return float64(v)
	case TagCXD:
		k, ok := f.lookup(i)
		if !ok {
			return 0
		}
		return f.sparseReal(k)
	}
	unsupported("At", f.tag)
	return 0
}

func (f *Frozen) at8(i int) int64 {
	switch f.tag {
	case TagC0L:
		return f.con
	case TagC1N, TagC1, TagC2, TagC4, TagC8:
		v, na := f.fixed(i)
		if na {
			missing(i)
		}
		return v
	case TagC1S, TagC2S, TagC4S:
		v, na := f.fixed(i)
		if na {
			missing(i)
		}
		return toLong(v+f.bias, f.scale)
	case TagCBS:
		c := f.bit(i)
		if f.bpv == 2 && c == layout.BitNA {
			missing(i)
		}
		return int64(c)
	case TagCX0:
		if _, ok := f.lookup(i); ok {
			return 1
		}
		return 0
	case TagCXI:
		k, ok := f.lookup(i)
		if !ok {
			return 0
		}
		v := f.sparseInt(k)
		if v == layout.NAForWidth(f.valsz) {
			missing(i)
		}
		return v
	case TagC0D, TagC4F, TagC8D, TagCXD:
		d := f.atd(i)
		if math.IsNaN(d) {
			missing(i)
		}
		return int64(d)
	}
	unsupported("AtInt", f.tag)
	return 0
}

func (f *Frozen) isNA(i int) bool {
	switch f.tag {
	case TagC0L, TagC1N, TagCX0:
		return false
	case TagC0D:
		return math.IsNaN(f.conD)
	case TagC1, TagC1S, TagC2, TagC2S, TagC4, TagC4S, TagC8:
		_, na := f.fixed(i)
		return na
	case TagC4F, TagC8D:
		return math.IsNaN(f.atd(i))
	case TagCBS:
		return f.bpv == 2 && f.bit(i) == layout.BitNA
	case TagCXI, TagCXD:
		k, ok := f.lookup(i)
		return ok && f.sparseNA(k)
	case TagC16:
		lo, hi := f.uuid(i)
		return lo == layout.UUIDLoNA && hi == layout.UUIDHiNA
	case TagCStr:
		return layout.Get4(f.mem, f.off+4*i) == -1
	}
	return false
}

// The set methods below patch a private copy in place. They return false
// when the value cannot be represented by the current encoding, in which
// case the caller inflates to a Builder.

func (f *Frozen) setInt(i int, v int64) bool {
	switch f.tag {
	case TagC0L:
		return v == f.con
	case TagC0D, TagC4F, TagC8D:
		d := float64(v)
		if d >= 0x1p63 || int64(d) != v {
			return false
		}
		return f.setReal(i, d)
	case TagC1N, TagC1, TagC2, TagC4, TagC8:
		return f.store(i, v)
	case TagC1S, TagC2S, TagC4S:
		return f.setDecimal(i, v, 0)
	case TagCBS:
		if v != 0 && v != 1 {
			return false
		}
		layout.WriteBits(f.mem[f.off:], i, f.bpv, byte(v))
		return true
	}
	return false
}

func (f *Frozen) setReal(i int, d float64) bool {
	if math.IsNaN(d) {
		return f.setMissing(i)
	}
	switch f.tag {
	case TagC0D:
		return d == f.conD
	case TagC8D:
		layout.Set8d(f.mem, f.off+8*i, d)
		return true
	case TagC4F:
		if float64(float32(d)) != d {
			return false
		}
		layout.Set4f(f.mem, f.off+4*i, d)
		return true
	case TagC1S, TagC2S, TagC4S:
		le := math.Round(d * layout.Pow10(-f.scale))
		if math.Abs(le) >= 0x1p63 || decimal(int64(le), f.scale) != d {
			return false
		}
		return f.setDecimal(i, int64(le), f.scale)
	}
	if math.Abs(d) >= 0x1p63 || float64(int64(d)) != d {
		return false
	}
	return f.setInt(i, int64(d))
}

// setDecimal stores m * 10^x into a scaled encoding when it is exactly
// representable at the chunk's scale.
func (f *Frozen) setDecimal(i int, m int64, x int) bool {
	var le int64
	if d := x - f.scale; d >= 0 {
		var ok bool
		if le, ok = layout.Rescale(m, d); !ok {
			return false
		}
	} else {
		if -d >= len(layout.Pow10i) {
			return m == 0 && f.setDecimal(i, 0, f.scale)
		}
		p := layout.Pow10i[-d]
		if m%p != 0 {
			return false
		}
		le = m / p
	}
	s := le - f.bias
	if (f.bias > 0 && s > le) || (f.bias < 0 && s < le) {
		return false
	}
	return f.store(i, s)
}

func (f *Frozen) store(i int, v int64) bool {
	if lo, hi := f.tag.valueRange(); v < lo || v > hi {
		return false
	}
	w := f.tag.width()
	layout.SetN(f.mem, f.off+i*w, w, v)
	return true
}

func (f *Frozen) setMissing(i int) bool {
	switch f.tag {
	case TagC0D:
		return math.IsNaN(f.conD)
	case TagC1, TagC1S, TagC2, TagC2S, TagC4, TagC4S, TagC8:
		w := f.tag.width()
		layout.SetN(f.mem, f.off+i*w, w, layout.NAForWidth(w))
		return true
	case TagC4F:
		layout.Set4f(f.mem, f.off+4*i, math.NaN())
		return true
	case TagC8D:
		layout.Set8d(f.mem, f.off+8*i, math.NaN())
		return true
	case TagCBS:
		if f.bpv != 2 {
			return false
		}
		layout.WriteBits(f.mem[f.off:], i, 2, layout.BitNA)
		return true
	case TagC16:
		return f.setUUID(i, layout.UUIDLoNA, layout.UUIDHiNA)
	}
	return false
}

func (f *Frozen) setUUID(i int, lo, hi int64) bool {
	if f.tag != TagC16 {
		return false
	}
	off := f.off + 16*i
	layout.Set8(f.mem, off, lo)
	layout.Set8(f.mem, off+8, hi)
	return true
}

// setDecimalAny stores m * 10^x into any numeric encoding when exactly
// representable.
func (f *Frozen) setDecimalAny(i int, m int64, x int) bool {
	if f.tag.Scaled() {
		return f.setDecimal(i, m, x)
	}
	m, x = layout.Normalize(m, x)
	if x >= 0 {
		v, ok := layout.Rescale(m, x)
		return ok && f.setInt(i, v)
	}
	return f.setReal(i, decimal(m, x))
}
