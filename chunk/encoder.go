package chunk

import (
	"math"

	"github.com/hupe1980/fvec/internal/layout"
)

// Encode compresses b into the most compact encoding that represents every
// value exactly, falling back to 8-byte reals when nothing smaller fits.
// Encoding consumes b: its buffers are released and it must not be used
// afterwards.
func Encode(b *Builder) *Frozen {
	data := encode(b)
	b.release()
	return mustDecode(data)
}

// release drops the buffers of an encoded Builder and closes it.
func (b *Builder) release() {
	b.dec, b.ds, b.uu, b.offs, b.pool, b.ids = decimals{}, nil, pairs{}, nil, nil, nil
	b.n, b.rep, b.stValid, b.closed = 0, repNone, false, true
}

// numbers summarizes the decimal entries of a buffer at the common scale
// xmin.
type numbers struct {
	xmin         int
	lemin, lemax int64 // extremes scaled to xmin
	overflow     bool  // some entry does not fit an int64 at xmin
	same         bool  // every entry equals the first
	m0           int64 // first entry, normalized
	x0           int
}

func encode(b *Builder) []byte {
	n := b.n
	if b.rep == repNone {
		if n == 0 {
			return constReal(0, math.NaN())
		}
		return constLong(n, 0)
	}
	st := b.Stats()
	if st.Missing == n {
		return constReal(n, math.NaN())
	}
	switch b.rep {
	case repText:
		return encodeText(b)
	case repUUID:
		return encodeUUID(b)
	}

	if st.Enums > 0 {
		b.resolveEnums(st.Enums+st.Missing == n)
		st = b.Stats()
		if st.Missing == n {
			return constReal(n, math.NaN())
		}
	}

	if SparseFactor*(st.Missing+st.NonZero) < n {
		b.setSparse()
	} else {
		b.cancelSparse()
	}
	sparse := b.ids != nil

	if b.rep == repReal {
		if !b.integral() {
			switch {
			case sparse:
				return encodeSparseReal(b)
			case st.Missing == 0 && allEqual(b.ds):
				return constReal(n, b.ds[0])
			}
			return encodeReal(b)
		}
		b.realsToDecimals()
	}

	num, ok := b.summarize()
	if !ok {
		return encodeReal(b)
	}
	na := st.Missing

	if na == 0 && num.same {
		if num.x0 == 0 {
			return constLong(n, num.m0)
		}
		if v, ok := layout.Rescale(num.m0, num.x0); ok {
			return constLong(n, v)
		}
		return constReal(n, decimal(num.m0, num.x0))
	}

	if !num.overflow && num.xmin == 0 && num.lemin == 0 && num.lemax == 1 {
		switch {
		case sparse && na == 0:
			return encodeSparseBits(b)
		case sparse:
			return orReal(encodeSparseInt(b, 1))
		case na > 0:
			return encodeBits(b, 2)
		default:
			return encodeBits(b, 1)
		}
	}

	// values as integers, valid when !fpoint
	imin, okMin := layout.Rescale(num.lemin, max(num.xmin, 0))
	imax, okMax := layout.Rescale(num.lemax, max(num.xmin, 0))
	fpoint := num.xmin < 0 || num.overflow || !okMin || !okMax

	if sparse {
		if fpoint {
			return encodeSparseReal(b)
		}
		switch {
		case imin >= 0 && imax < 255:
			return orReal(encodeSparseInt(b, 1))
		case imin > math.MinInt16 && imax <= math.MaxInt16:
			return orReal(encodeSparseInt(b, 2))
		case imin > math.MinInt32 && imax <= math.MaxInt32:
			return orReal(encodeSparseInt(b, 4))
		}
		return orReal(encodeSparseInt(b, 8))
	}

	if num.overflow || num.xmin < -35 || num.xmin > 35 {
		return encodeReal(b)
	}
	lemin, lemax, xmin := num.lemin, num.lemax, num.xmin
	span, spanOK := sub(lemax, lemin)

	if fpoint {
		if !spanOK {
			return encodeReal(b)
		}
		if lemin >= math.MinInt32 && lemax <= math.MaxInt32 {
			if span < 255 {
				return orReal(encodeFixed(b, TagC1S, lemin, xmin))
			}
			if span < 65535 {
				return orReal(encodeFixed(b, TagC2S, lemin+math.MaxInt16, xmin))
			}
		}
		if span < math.MaxUint32 {
			if bias, ok := add(lemin, math.MaxInt32); ok {
				return orReal(encodeFixed(b, TagC4S, bias, xmin))
			}
		}
		return encodeReal(b)
	}

	if xmin == 0 && lemin >= 0 && lemax <= 255 && na == 0 {
		return orReal(encodeFixed(b, TagC1N, 0, 0))
	}
	if imin < math.MinInt32 || !spanOK {
		return orReal(encodeFixed(b, TagC8, 0, 0))
	}
	if span < 255 {
		if imin >= 0 && imax < 255 {
			return orReal(encodeFixed(b, TagC1, 0, 0))
		}
		return orReal(encodeFixed(b, TagC1S, lemin, xmin))
	}
	if span < 65535 {
		if xmin == 0 && lemin > math.MinInt16 && lemax <= math.MaxInt16 {
			return orReal(encodeFixed(b, TagC2, 0, 0))
		}
		if bias, ok := add(lemin, math.MaxInt16); ok {
			return orReal(encodeFixed(b, TagC2S, bias, xmin))
		}
	}
	if imin > math.MinInt32 && imax <= math.MaxInt32 {
		return orReal(encodeFixed(b, TagC4, 0, 0))
	}
	return orReal(encodeFixed(b, TagC8, 0, 0))
}

// resolveEnums applies the chunk mode to enum entries. In enum mode codes
// become plain integers and codes outside the domain become missing;
// otherwise every code becomes missing.
func (b *Builder) resolveEnums(enumMode bool) {
	for k := range b.dec.len() {
		if !b.dec.isEnum(k) {
			continue
		}
		if enumMode && (b.enumDomain <= 0 || b.dec.m[k] < int64(b.enumDomain)) {
			b.dec.x[k] = 0
		} else {
			b.dec.m[k], b.dec.x[k] = 0, expNA
		}
	}
	b.touch()
}

// integral reports whether every non-missing real is an integer that fits
// an int64.
func (b *Builder) integral() bool {
	for _, d := range b.ds {
		if math.IsNaN(d) {
			continue
		}
		if d != math.Trunc(d) || d < -0x1p63 || d >= 0x1p63 {
			return false
		}
	}
	return true
}

func (b *Builder) realsToDecimals() {
	dec := decimals{m: make([]int64, len(b.ds)), x: make([]int32, len(b.ds))}
	for k, d := range b.ds {
		if math.IsNaN(d) {
			dec.x[k] = expNA
		} else {
			dec.m[k] = int64(d)
		}
	}
	b.dec, b.ds, b.rep = dec, nil, repDecimal
	b.touch()
}

// summarize scans the decimal entries, folding in the implicit zeros of a
// sparse buffer. ok is false when exponents are out of any usable range.
func (b *Builder) summarize() (numbers, bool) {
	num := numbers{xmin: math.MaxInt32, same: true}
	first := true
	visit := func(m int64, x int) {
		m, x = layout.Normalize(m, x)
		if first {
			num.m0, num.x0, first = m, x, false
		} else if m != num.m0 || x != num.x0 {
			num.same = false
		}
		num.xmin = min(num.xmin, x)
	}
	for k := range b.dec.len() {
		if !b.dec.isNA(k) {
			visit(b.dec.m[k], int(b.dec.x[k]))
		}
	}
	implicitZero := b.ids != nil && len(b.ids) < b.n
	if implicitZero {
		visit(0, 0)
	}
	if first {
		return num, false
	}

	num.lemin, num.lemax = math.MaxInt64, math.MinInt64
	scaled := func(m int64, x int) {
		le, ok := layout.Rescale(m, x-num.xmin)
		if !ok {
			num.overflow = true
			return
		}
		num.lemin = min(num.lemin, le)
		num.lemax = max(num.lemax, le)
	}
	for k := range b.dec.len() {
		if !b.dec.isNA(k) {
			m, x := layout.Normalize(b.dec.m[k], int(b.dec.x[k]))
			scaled(m, x)
		}
	}
	if implicitZero {
		scaled(0, num.xmin)
	}
	return num, true
}

func allEqual(ds []float64) bool {
	for _, d := range ds[1:] {
		if d != ds[0] {
			return false
		}
	}
	return true
}

// sub returns a-b and whether it did not overflow.
func sub(a, b int64) (int64, bool) {
	r := a - b
	return r, (b >= 0) == (r <= a)
}

// add returns a+b and whether it did not overflow.
func add(a, b int64) (int64, bool) {
	r := a + b
	return r, (b >= 0) == (r >= a)
}

// frame allocates an encoded chunk and writes its common prefix.
func frame(t Tag, n, payload int) []byte {
	buf := make([]byte, prefixSize+t.headerSize()+payload)
	buf[0] = byte(t)
	layout.SetU4(buf, 1, uint32(n))
	return buf
}

func constLong(n int, v int64) []byte {
	buf := frame(TagC0L, n, 0)
	layout.Set8(buf, prefixSize, v)
	return buf
}

func constReal(n int, d float64) []byte {
	buf := frame(TagC0D, n, 0)
	layout.Set8d(buf, prefixSize, d)
	return buf
}

// orReal replaces a failed compact encoding with C8D. It is reached only
// when an entry escapes the range the encoding was chosen for.
func orReal(buf []byte, b *Builder) []byte {
	if buf != nil {
		return buf
	}
	return encodeReal(b)
}

// entry returns the float64 value of stored entry k.
func (b *Builder) entry(k int) float64 {
	if b.rep == repReal {
		return b.ds[k]
	}
	if b.dec.isNA(k) {
		return math.NaN()
	}
	return decimal(b.dec.m[k], int(b.dec.x[k]))
}

// encodeReal writes C8D.
func encodeReal(b *Builder) []byte {
	b.cancelSparse()
	buf := frame(TagC8D, b.n, 8*b.n)
	p := prefixSize
	for i := range b.n {
		layout.Set8d(buf, p+8*i, b.entry(i))
	}
	return buf
}

// encodeFixed writes a dense fixed width integer encoding storing
// m*10^(x-scale) - bias per row. It returns nil, b when an entry does not
// fit.
func encodeFixed(b *Builder, t Tag, bias int64, scale int) ([]byte, *Builder) {
	w := t.width()
	buf := frame(t, b.n, b.n*w)
	p := prefixSize
	if t.Scaled() {
		layout.Set8(buf, p, bias)
		layout.Set4(buf, p+8, int64(scale))
		p += t.headerSize()
	}
	lo, hi := t.valueRange()
	for i := range b.n {
		if b.dec.isNA(i) {
			layout.SetN(buf, p+i*w, w, layout.NAForWidth(w))
			continue
		}
		m, x := layout.Normalize(b.dec.m[i], int(b.dec.x[i]))
		le, ok := layout.Rescale(m, x-scale)
		if !ok {
			return nil, b
		}
		s, ok := sub(le, bias)
		if !ok || s < lo || s > hi {
			return nil, b
		}
		layout.SetN(buf, p+i*w, w, s)
	}
	return buf, b
}

// encodeBits writes CBS with one or two bits per value.
func encodeBits(b *Builder, bpv int) []byte {
	buf := frame(TagCBS, b.n, layout.PackedLen(b.n, bpv))
	buf[prefixSize] = byte(layout.Gap(b.n, bpv))
	buf[prefixSize+1] = byte(bpv)
	bits := buf[prefixSize+2:]
	for i := range b.n {
		var v byte = layout.BitNA
		if !b.dec.isNA(i) {
			v = byte(b.dec.m[i])
		}
		layout.WriteBits(bits, i, bpv, v)
	}
	return buf
}

// sparseFrame allocates a sparse encoding for the stored entries of b.
func sparseFrame(b *Builder, t Tag, valsz int) ([]byte, int) {
	ridsz := ridWidth(b.n)
	stored := len(b.ids)
	buf := frame(t, b.n, stored*(ridsz+valsz))
	buf[prefixSize] = byte(ridsz)
	buf[prefixSize+1] = byte(valsz)
	p := prefixSize + 2
	for k, id := range b.ids {
		layout.SetN(buf, p+k*(ridsz+valsz), ridsz, int64(id))
	}
	return buf, ridsz
}

// encodeSparseBits writes CX0: row indexes of the ones.
func encodeSparseBits(b *Builder) []byte {
	buf, _ := sparseFrame(b, TagCX0, 0)
	return buf
}

// encodeSparseInt writes CXI with valsz-byte integers.
func encodeSparseInt(b *Builder, valsz int) ([]byte, *Builder) {
	buf, ridsz := sparseFrame(b, TagCXI, valsz)
	lo, hi := widthRange(valsz)
	p := prefixSize + 2 + ridsz
	for k := range b.ids {
		off := p + k*(ridsz+valsz)
		if b.dec.isNA(k) {
			layout.SetN(buf, off, valsz, layout.NAForWidth(valsz))
			continue
		}
		v, ok := layout.Rescale(layout.Normalize(b.dec.m[k], int(b.dec.x[k])))
		if !ok || v < lo || v > hi {
			return nil, b
		}
		layout.SetN(buf, off, valsz, v)
	}
	return buf, b
}

// encodeSparseReal writes CXD with 8-byte reals.
func encodeSparseReal(b *Builder) []byte {
	buf, ridsz := sparseFrame(b, TagCXD, 8)
	p := prefixSize + 2 + ridsz
	for k := range b.ids {
		layout.Set8d(buf, p+k*(ridsz+8), b.entry(k))
	}
	return buf
}

// encodeUUID writes C16.
func encodeUUID(b *Builder) []byte {
	buf := frame(TagC16, b.n, 16*b.n)
	for i := range b.n {
		off := prefixSize + 16*i
		layout.Set8(buf, off, b.uu.lo[i])
		layout.Set8(buf, off+8, b.uu.hi[i])
	}
	return buf
}

// encodeText writes CStr, compacting the pool to the live entries.
func encodeText(b *Builder) []byte {
	var pool []byte
	offs := make([]int32, b.n)
	for i := range b.n {
		t, ok := b.AtText(i)
		if !ok {
			offs[i] = -1
			continue
		}
		offs[i] = int32(len(pool))
		pool = appendEntry(pool, t)
	}
	buf := frame(TagCStr, b.n, 4*b.n+len(pool))
	layout.SetU4(buf, prefixSize, uint32(len(pool)))
	p := prefixSize + 4
	for i, o := range offs {
		layout.Set4(buf, p+4*i, int64(o))
	}
	copy(buf[p+4*b.n:], pool)
	return buf
}
