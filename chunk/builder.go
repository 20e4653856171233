package chunk

import (
	"encoding/binary"
	"iter"
	"math"
	"slices"

	"github.com/hupe1980/fvec/internal/layout"
)

// SparseFactor is the zero to non-zero ratio above which a chunk is kept
// sparse: a chunk of n rows with k stored entries is sparse when
// SparseFactor*k < n.
const SparseFactor = 32

// exponent sentinels of the decimal representation
const (
	expNA   = math.MinInt32
	expEnum = math.MinInt32 + 1
)

type rep uint8

const (
	repNone rep = iota
	repDecimal
	repReal
	repUUID
	repText
)

// decimals holds mantissas and exponents as parallel slices of equal length.
type decimals struct {
	m []int64
	x []int32
}

func (d *decimals) len() int { return len(d.m) }

func (d *decimals) cap() int { return cap(d.m) }

func (d *decimals) push(m int64, x int32) {
	d.m = append(d.m, m)
	d.x = append(d.x, x)
}

func (d *decimals) grow(n int) {
	d.m = slices.Grow(d.m, n)
	d.x = slices.Grow(d.x, n)
}

func (d *decimals) truncate(n int) {
	d.m = d.m[:n]
	d.x = d.x[:n]
}

func (d *decimals) isNA(k int) bool { return d.x[k] == expNA }

func (d *decimals) isEnum(k int) bool { return d.x[k] == expEnum }

func (d *decimals) isZero(k int) bool { return d.m[k] == 0 && d.x[k] == 0 }

// pairs holds UUID halves as parallel slices of equal length.
type pairs struct {
	lo []int64
	hi []int64
}

func (p *pairs) len() int { return len(p.lo) }

func (p *pairs) push(lo, hi int64) {
	p.lo = append(p.lo, lo)
	p.hi = append(p.hi, hi)
}

func (p *pairs) isNA(k int) bool {
	return p.lo[k] == layout.UUIDLoNA && p.hi[k] == layout.UUIDHiNA
}

// Rollups are the per-chunk statistics the encoder decides on.
type Rollups struct {
	Missing int
	NonZero int
	Enums   int
	Texts   int
	UUIDs   int
	Times   int
}

// Builder is an append-only buffer of typed values used to build one chunk.
// It holds exactly one active representation (decimals, reals, UUIDs or
// text) and switches representation, copying the accumulated values, when an
// append requires it. Numeric buffers drop zeros and record row indexes once
// zeros outnumber stored values SparseFactor to one.
//
// A Builder is not safe for concurrent use.
type Builder struct {
	n   int
	rep rep

	dec  decimals
	ds   []float64
	uu   pairs
	offs []int32
	pool []byte

	// ids holds the row of each stored entry in sparse mode, nil when dense.
	ids []int32

	times      int
	enumDomain int

	st      Rollups
	stValid bool
	closed  bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Len returns the logical number of rows.
func (b *Builder) Len() int { return b.n }

// StoredLen returns the number of explicitly stored entries.
func (b *Builder) StoredLen() int {
	switch b.rep {
	case repDecimal:
		return b.dec.len()
	case repReal:
		return len(b.ds)
	case repUUID:
		return b.uu.len()
	case repText:
		return len(b.offs)
	}
	return 0
}

// Sparse reports whether zeros are currently implicit.
func (b *Builder) Sparse() bool { return b.ids != nil }

// Closed reports whether Close was called.
func (b *Builder) Closed() bool { return b.closed }

// Close seals the buffer. Further appends panic with ErrClosed.
func (b *Builder) Close() { b.closed = true }

// SetEnumDomain bounds enum codes to [0, n). Codes outside the domain are
// recorded as missing when the chunk is encoded. Zero means unbounded.
func (b *Builder) SetEnumDomain(n int) { b.enumDomain = n }

func (b *Builder) checkOpen() {
	if b.closed {
		panic(ErrClosed)
	}
}

func (b *Builder) touch() { b.stValid = false }

// AppendInt appends the decimal m * 10^x. Trailing decimal zeros of a
// negative exponent are stripped and zero is stored with exponent 0.
func (b *Builder) AppendInt(m int64, x int) {
	b.checkOpen()
	switch b.rep {
	case repUUID, repText:
		b.AppendMissing()
		return
	case repReal:
		b.appendReal(decimal(m, x))
		return
	}
	if x <= expEnum || x > math.MaxInt32 {
		b.AppendReal(decimal(m, x))
		return
	}
	if m == 0 {
		x = 0
	}
	for x < 0 && m%10 == 0 {
		m /= 10
		x++
	}
	b.rep = repDecimal
	b.appendDecimal(m, int32(x))
}

// AppendTime appends a timestamp in milliseconds since the epoch.
func (b *Builder) AppendTime(ms int64) {
	b.AppendInt(ms, 0)
	b.times++
}

// AppendReal appends a float64. NaN is recorded as missing. A decimal buffer
// is converted to reals first.
func (b *Builder) AppendReal(d float64) {
	b.checkOpen()
	switch b.rep {
	case repUUID, repText:
		b.AppendMissing()
		return
	case repDecimal:
		b.switchToReals()
	}
	b.rep = repReal
	b.appendReal(d)
}

// AppendMissing appends a missing entry in the current representation.
func (b *Builder) AppendMissing() {
	b.checkOpen()
	switch b.rep {
	case repUUID:
		b.appendUUID(layout.UUIDLoNA, layout.UUIDHiNA)
	case repText:
		b.appendText(nil)
	case repReal:
		b.appendReal(math.NaN())
	default:
		b.rep = repDecimal
		b.appendDecimal(0, expNA)
	}
}

// AppendEnum appends a categorical code. Buffers that cannot hold codes
// record a missing entry instead.
func (b *Builder) AppendEnum(code uint32) {
	b.checkOpen()
	if b.rep != repNone && b.rep != repDecimal {
		b.AppendMissing()
		return
	}
	b.rep = repDecimal
	b.appendDecimal(int64(code), expEnum)
}

// AppendUUID appends a 128-bit identifier. A numeric buffer is converted to
// UUIDs, with its existing entries recorded as missing.
func (b *Builder) AppendUUID(lo, hi int64) {
	b.checkOpen()
	switch b.rep {
	case repText:
		b.AppendMissing()
		return
	case repUUID:
	default:
		if b.n > 0 {
			b.switchToUUID()
		}
	}
	b.rep = repUUID
	b.appendUUID(lo, hi)
}

// AppendText appends a byte string; nil appends a missing entry. A numeric
// buffer is converted to text, with its existing entries recorded as
// missing.
func (b *Builder) AppendText(t []byte) {
	b.checkOpen()
	if t == nil {
		b.AppendMissing()
		return
	}
	switch b.rep {
	case repUUID:
		b.AppendMissing()
		return
	case repText:
	default:
		if b.n > 0 {
			b.switchToText()
		}
	}
	b.rep = repText
	b.appendText(t)
}

// AppendZeros appends n zeros. Sparse buffers only extend their length.
func (b *Builder) AppendZeros(n int) {
	b.checkOpen()
	if b.ids != nil {
		b.n += n
		b.touch()
		return
	}
	for range n {
		b.AppendInt(0, 0)
	}
}

// AppendValue appends v.
func (b *Builder) AppendValue(v Value) {
	switch v.typ {
	case TypeInteger:
		b.AppendInt(v.m, int(v.x))
	case TypeReal:
		b.AppendReal(v.f)
	case TypeEnum:
		b.AppendEnum(uint32(v.m))
	case TypeUUID:
		b.AppendUUID(v.m, v.hi)
	case TypeText:
		b.AppendText(v.text)
	default:
		b.AppendMissing()
	}
}

// Append appends every row of o. o is left unchanged.
func (b *Builder) Append(o *Builder) {
	b.checkOpen()
	if o.n == 0 {
		return
	}
	if b.rep == o.rep && (b.rep == repDecimal || b.rep == repReal) && b.Sparse() == o.Sparse() {
		base := b.n
		switch b.rep {
		case repDecimal:
			b.dec.m = append(b.dec.m, o.dec.m...)
			b.dec.x = append(b.dec.x, o.dec.x...)
		case repReal:
			b.ds = append(b.ds, o.ds...)
		}
		if b.ids != nil {
			for _, id := range o.ids {
				b.ids = append(b.ids, int32(base)+id)
			}
		}
		b.n += o.n
		b.times += o.times
		b.touch()
		return
	}
	base := b.n
	for row, v := range o.Values(0, o.n) {
		if gap := base + row - b.n; gap > 0 {
			b.AppendZeros(gap)
		}
		b.AppendValue(v)
	}
	if tail := base + o.n - b.n; tail > 0 {
		b.AppendZeros(tail)
	}
	b.times += o.times
}

func (b *Builder) appendDecimal(m int64, x int32) {
	if b.ids != nil && m == 0 && x == 0 {
		b.n++
		b.touch()
		return
	}
	if b.dec.len() == b.dec.cap() {
		b.growDecimal()
	}
	if b.ids != nil {
		b.ids = append(b.ids, int32(b.n))
	}
	b.dec.push(m, x)
	b.n++
	b.touch()
}

func (b *Builder) appendReal(d float64) {
	if b.ids != nil && d == 0 {
		b.n++
		b.touch()
		return
	}
	if len(b.ds) == cap(b.ds) {
		b.growReal()
	}
	if b.ids != nil {
		b.ids = append(b.ids, int32(b.n))
	}
	b.ds = append(b.ds, d)
	b.n++
	b.touch()
}

func (b *Builder) appendUUID(lo, hi int64) {
	b.uu.push(lo, hi)
	b.n++
	b.touch()
}

func (b *Builder) appendText(t []byte) {
	if t == nil {
		b.offs = append(b.offs, -1)
	} else {
		b.offs = append(b.offs, int32(len(b.pool)))
		b.pool = appendEntry(b.pool, t)
	}
	b.n++
	b.touch()
}

// appendEntry appends t to a text pool as a uvarint length and the bytes.
func appendEntry(pool, t []byte) []byte {
	pool = binary.AppendUvarint(pool, uint64(len(t)))
	return append(pool, t...)
}

// growDecimal runs when the decimal buffer is full. It is the point where the
// buffer switches to sparse, or back to dense, before doubling its capacity.
func (b *Builder) growDecimal() {
	if s := b.dec.len(); s > 0 {
		if b.ids == nil {
			nz := 0
			for k := range s {
				if !b.dec.isZero(k) {
					nz++
				}
			}
			if (nz+1)*SparseFactor < b.n {
				b.setSparse()
			}
		} else if (SparseFactor*s)>>1 > b.n {
			b.cancelSparse()
		}
	}
	b.dec.grow(max(4, b.dec.len()))
}

func (b *Builder) growReal() {
	if s := len(b.ds); s > 0 {
		if b.ids == nil {
			nz := 0
			for _, d := range b.ds {
				if d != 0 {
					nz++
				}
			}
			if (nz+1)*SparseFactor < b.n {
				b.setSparse()
			}
		} else if (SparseFactor*s)>>1 > b.n {
			b.cancelSparse()
		}
	}
	b.ds = slices.Grow(b.ds, max(4, len(b.ds)))
}

// setSparse drops stored zeros and records the rows of the remaining
// entries. NA and enum entries are never zero.
func (b *Builder) setSparse() {
	switch b.rep {
	case repDecimal:
		ids := b.rows()
		j := 0
		for k := range b.dec.len() {
			if b.dec.isZero(k) {
				continue
			}
			b.dec.m[j], b.dec.x[j] = b.dec.m[k], b.dec.x[k]
			ids[j] = ids[k]
			j++
		}
		b.dec.truncate(j)
		b.ids = ids[:j]
	case repReal:
		ids := b.rows()
		j := 0
		for k, d := range b.ds {
			if d == 0 {
				continue
			}
			b.ds[j] = d
			ids[j] = ids[k]
			j++
		}
		b.ds = b.ds[:j]
		b.ids = ids[:j]
	case repNone:
		b.ids = []int32{}
	}
	b.touch()
}

// rows returns the row of every stored entry, materializing the dense
// identity mapping when needed.
func (b *Builder) rows() []int32 {
	if b.ids != nil {
		return b.ids
	}
	ids := make([]int32, b.StoredLen())
	for k := range ids {
		ids[k] = int32(k)
	}
	return ids
}

// cancelSparse restores the dense layout, materializing implicit zeros.
func (b *Builder) cancelSparse() {
	if b.ids == nil {
		return
	}
	switch b.rep {
	case repDecimal:
		var dense decimals
		dense.grow(b.n)
		dense.m = dense.m[:b.n]
		dense.x = dense.x[:b.n]
		for k, id := range b.ids {
			dense.m[id], dense.x[id] = b.dec.m[k], b.dec.x[k]
		}
		b.dec = dense
	case repReal:
		dense := make([]float64, b.n)
		for k, id := range b.ids {
			dense[id] = b.ds[k]
		}
		b.ds = dense
	case repNone:
		if b.n > 0 {
			b.rep = repDecimal
			b.dec.grow(b.n)
			b.dec.m = b.dec.m[:b.n]
			b.dec.x = b.dec.x[:b.n]
		}
	}
	b.ids = nil
	b.touch()
}

// switchToReals converts the decimal buffer to float64. Enum codes become
// NaN.
func (b *Builder) switchToReals() {
	ds := make([]float64, b.dec.len(), b.dec.cap())
	for k := range ds {
		switch b.dec.x[k] {
		case expNA, expEnum:
			ds[k] = math.NaN()
		default:
			ds[k] = decimal(b.dec.m[k], int(b.dec.x[k]))
		}
	}
	b.ds = ds
	b.dec = decimals{}
	b.rep = repReal
	b.touch()
}

// switchToUUID discards the numeric entries; every prior row becomes a
// missing UUID.
func (b *Builder) switchToUUID() {
	b.cancelSparse()
	b.uu = pairs{lo: make([]int64, b.n, b.n+1), hi: make([]int64, b.n, b.n+1)}
	for k := range b.n {
		b.uu.lo[k], b.uu.hi[k] = layout.UUIDLoNA, layout.UUIDHiNA
	}
	b.dec, b.ds = decimals{}, nil
	b.rep = repUUID
	b.touch()
}

// switchToText discards the numeric entries; every prior row becomes a
// missing string.
func (b *Builder) switchToText() {
	b.cancelSparse()
	b.offs = make([]int32, b.n, b.n+1)
	for k := range b.offs {
		b.offs[k] = -1
	}
	b.dec, b.ds = decimals{}, nil
	b.rep = repText
	b.touch()
}

// slot maps row i to its storage index. ok is false for an implicit zero.
func (b *Builder) slot(i int) (int, bool) {
	if b.ids == nil {
		return i, true
	}
	return slices.BinarySearch(b.ids, int32(i))
}

// At returns row i as a float64, NaN when missing. Enum codes read as their
// code.
func (b *Builder) At(i int) float64 {
	checkIndex(i, b.n)
	k, ok := b.slot(i)
	if !ok {
		return 0
	}
	switch b.rep {
	case repDecimal:
		switch x := b.dec.x[k]; x {
		case expNA:
			return math.NaN()
		case expEnum:
			return float64(b.dec.m[k])
		default:
			return decimal(b.dec.m[k], int(x))
		}
	case repReal:
		return b.ds[k]
	}
	unsupported("At", b.Kind())
	return 0
}

// AtInt returns row i as an int64, truncating fractions. It panics with a
// *MissingValueError when the row is missing.
func (b *Builder) AtInt(i int) int64 {
	checkIndex(i, b.n)
	k, ok := b.slot(i)
	if !ok {
		return 0
	}
	switch b.rep {
	case repDecimal:
		switch x := b.dec.x[k]; x {
		case expNA:
			missing(i)
		case expEnum:
			return b.dec.m[k]
		default:
			return toLong(b.dec.m[k], int(x))
		}
	case repReal:
		d := b.ds[k]
		if math.IsNaN(d) {
			missing(i)
		}
		return int64(d)
	}
	unsupported("AtInt", b.Kind())
	return 0
}

// IsMissing reports whether row i is missing.
func (b *Builder) IsMissing(i int) bool {
	checkIndex(i, b.n)
	k, ok := b.slot(i)
	if !ok {
		return false
	}
	switch b.rep {
	case repDecimal:
		return b.dec.isNA(k)
	case repReal:
		return math.IsNaN(b.ds[k])
	case repUUID:
		return b.uu.isNA(k)
	case repText:
		return b.offs[k] == -1
	}
	return false
}

// AtUUID returns the two halves of the UUID at row i.
func (b *Builder) AtUUID(i int) (lo, hi int64) {
	checkIndex(i, b.n)
	if b.rep != repUUID {
		if b.IsMissing(i) {
			missing(i)
		}
		unsupported("AtUUID", b.Kind())
	}
	if b.uu.isNA(i) {
		missing(i)
	}
	return b.uu.lo[i], b.uu.hi[i]
}

// AtText returns the bytes at row i; ok is false when the row is missing.
// The slice aliases the buffer and must not be modified.
func (b *Builder) AtText(i int) (t []byte, ok bool) {
	checkIndex(i, b.n)
	if b.rep != repText {
		if b.IsMissing(i) {
			return nil, false
		}
		unsupported("AtText", b.Kind())
	}
	o := b.offs[i]
	if o == -1 {
		return nil, false
	}
	l, k := binary.Uvarint(b.pool[o:])
	start := int(o) + k
	return b.pool[start : start+int(l) : start+int(l)], true
}

// value returns the stored entry k as a Value.
func (b *Builder) value(k int) Value {
	switch b.rep {
	case repDecimal:
		switch x := b.dec.x[k]; x {
		case expNA:
			return Missing()
		case expEnum:
			return Enum(uint32(b.dec.m[k]))
		default:
			return Int(b.dec.m[k], int(x))
		}
	case repReal:
		return Real(b.ds[k])
	case repUUID:
		if b.uu.isNA(k) {
			return Missing()
		}
		return UUID(b.uu.lo[k], b.uu.hi[k])
	case repText:
		t, _ := b.AtText(k)
		return Text(t)
	}
	return Missing()
}

// Values iterates the explicitly stored entries with rows in [from, to),
// yielding each row with its value. Implicit zeros of a sparse buffer are
// skipped.
func (b *Builder) Values(from, to int) iter.Seq2[int, Value] {
	return func(yield func(int, Value) bool) {
		to = min(to, b.n)
		if from >= to {
			return
		}
		if b.ids == nil {
			for i := from; i < to; i++ {
				if !yield(i, b.value(i)) {
					return
				}
			}
			return
		}
		k, _ := slices.BinarySearch(b.ids, int32(from))
		for ; k < len(b.ids) && int(b.ids[k]) < to; k++ {
			if !yield(int(b.ids[k]), b.value(k)) {
				return
			}
		}
	}
}

// Stats returns the rollups of the buffer.
func (b *Builder) Stats() Rollups {
	if b.stValid {
		return b.st
	}
	var st Rollups
	switch b.rep {
	case repDecimal:
		for k := range b.dec.len() {
			switch {
			case b.dec.isNA(k):
				st.Missing++
			case b.dec.isEnum(k):
				st.Enums++
			case b.dec.m[k] != 0:
				st.NonZero++
			}
		}
	case repReal:
		for _, d := range b.ds {
			switch {
			case math.IsNaN(d):
				st.Missing++
			case d != 0:
				st.NonZero++
			}
		}
	case repUUID:
		for k := range b.uu.len() {
			if b.uu.isNA(k) {
				st.Missing++
			} else {
				st.UUIDs++
			}
		}
	case repText:
		for _, o := range b.offs {
			if o == -1 {
				st.Missing++
			} else {
				st.Texts++
			}
		}
	}
	st.Times = b.times
	b.st, b.stValid = st, true
	return st
}

// Kind returns the value kind the buffer would encode to.
func (b *Builder) Kind() Kind {
	return kindOf(b.n, b.Stats())
}

func kindOf(n int, st Rollups) Kind {
	switch {
	case st.Missing == n:
		return KindMissing
	case st.Texts > 0:
		return KindText
	case st.UUIDs > 0:
		return KindUUID
	case st.Enums > 0 && st.Enums+st.Missing == n:
		return KindEnum
	case st.Times > 0 && st.Times >= n-st.Missing-st.Times:
		return KindTime
	}
	return KindNumeric
}

// EnumToText replaces enum codes with their labels from domain. Codes outside
// the domain, numbers and missing entries become missing strings.
func (b *Builder) EnumToText(domain [][]byte) {
	if b.rep == repText {
		return
	}
	n := b.n
	var labels []int
	if b.rep == repDecimal {
		b.cancelSparse()
		labels = make([]int, n)
		for k := range n {
			labels[k] = -1
			if b.dec.isEnum(k) && b.dec.m[k] < int64(len(domain)) {
				labels[k] = int(b.dec.m[k])
			}
		}
	}
	b.dec, b.ds, b.uu, b.ids = decimals{}, nil, pairs{}, nil
	b.offs, b.pool, b.n, b.times = make([]int32, 0, n), nil, 0, 0
	b.rep = repText
	for k := range n {
		if labels == nil || labels[k] < 0 {
			b.appendText(nil)
		} else {
			b.appendText(domain[labels[k]])
		}
	}
}
