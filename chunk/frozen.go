package chunk

import (
	"bytes"
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bits-and-blooms/bitset"
	"github.com/hupe1980/fvec/internal/conv"
	"github.com/hupe1980/fvec/internal/layout"
)

// header holds the decoded per-tag parameters of a frozen chunk.
type header struct {
	tag Tag
	n   int // logical length
	off int // payload offset in mem

	con   int64   // TagC0L
	conD  float64 // TagC0D
	bias  int64   // scaled encodings
	scale int

	gap int // TagCBS
	bpv int

	ridsz  int // sparse encodings
	valsz  int
	stored int

	pool int // TagCStr pool offset in mem
}

// Frozen is an immutable, randomly addressable view over one encoded chunk.
// All reads are safe for concurrent use.
type Frozen struct {
	header
	mem []byte

	// sparse last-access hint; only affects lookup speed
	last atomic.Int32
}

// Decode parses an encoded chunk. The returned Frozen aliases data; the
// caller must not modify it afterwards.
func Decode(data []byte) (*Frozen, error) {
	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	return &Frozen{header: h, mem: data}, nil
}

func mustDecode(data []byte) *Frozen {
	f, err := Decode(data)
	if err != nil {
		panic(err)
	}
	return f
}

func parseHeader(data []byte) (header, error) {
	var h header
	if len(data) < prefixSize {
		return h, corrupt("short header: %d bytes", len(data))
	}
	h.tag = Tag(data[0])
	if !h.tag.Valid() {
		return h, corrupt("unknown tag %d", data[0])
	}
	n, err := conv.Uint32ToInt(layout.GetU4(data, 1))
	if err != nil {
		return h, corrupt("length: %v", err)
	}
	h.n = n
	h.off = prefixSize + h.tag.headerSize()
	if len(data) < h.off {
		return h, corrupt("%s: short header: %d bytes", h.tag, len(data))
	}
	payload := len(data) - h.off
	hd := data[prefixSize:]

	switch h.tag {
	case TagC0L:
		h.con = layout.Get8(hd, 0)
		return h, expectPayload(h.tag, payload, 0)
	case TagC0D:
		h.conD = layout.Get8d(hd, 0)
		return h, expectPayload(h.tag, payload, 0)
	case TagCBS:
		h.gap, h.bpv = int(hd[0]), int(hd[1])
		if h.bpv != 1 && h.bpv != 2 {
			return h, corrupt("CBS: bits per value %d", h.bpv)
		}
		if h.gap != layout.Gap(h.n, h.bpv) {
			return h, corrupt("CBS: gap %d does not match length %d", h.gap, h.n)
		}
		return h, expectPayload(h.tag, payload, layout.PackedLen(h.n, h.bpv))
	case TagCX0, TagCXI, TagCXD:
		return h, parseSparse(&h, hd, data, payload)
	case TagCStr:
		pool := int(layout.GetU4(hd, 0))
		if err := expectPayload(h.tag, payload, 4*h.n+pool); err != nil {
			return h, err
		}
		h.pool = h.off + 4*h.n
		return h, validateText(h, data)
	}
	if h.tag.Scaled() {
		h.bias = layout.Get8(hd, 0)
		h.scale = int(layout.Get4(hd, 8))
	}
	return h, expectPayload(h.tag, payload, h.n*h.tag.width())
}

func expectPayload(t Tag, got, want int) error {
	if got != want {
		return corrupt("%s: payload is %d bytes, want %d", t, got, want)
	}
	return nil
}

func parseSparse(h *header, hd, data []byte, payload int) error {
	h.ridsz, h.valsz = int(hd[0]), int(hd[1])
	if h.ridsz != 2 && h.ridsz != 4 {
		return corrupt("%s: row id width %d", h.tag, h.ridsz)
	}
	switch h.tag {
	case TagCX0:
		if h.valsz != 0 {
			return corrupt("CX0: value width %d", h.valsz)
		}
	case TagCXI:
		if h.valsz != 1 && h.valsz != 2 && h.valsz != 4 && h.valsz != 8 {
			return corrupt("CXI: value width %d", h.valsz)
		}
	case TagCXD:
		if h.valsz != 4 && h.valsz != 8 {
			return corrupt("CXD: value width %d", h.valsz)
		}
	}
	elm := h.ridsz + h.valsz
	if payload%elm != 0 {
		return corrupt("%s: payload %d not a multiple of %d", h.tag, payload, elm)
	}
	h.stored = payload / elm
	prev := -1
	for k := 0; k < h.stored; k++ {
		row := int(layout.GetN(data, h.off+k*elm, h.ridsz))
		if h.ridsz == 2 {
			row &= 0xFFFF
		}
		if row <= prev || row >= h.n {
			return corrupt("%s: row %d out of order at entry %d", h.tag, row, k)
		}
		prev = row
	}
	return nil
}

func validateText(h header, data []byte) error {
	pool := data[h.pool:]
	for i := 0; i < h.n; i++ {
		o := int(layout.Get4(data, h.off+4*i))
		if o == -1 {
			continue
		}
		if o < 0 || o >= len(pool) {
			return corrupt("CStr: offset %d outside pool of %d bytes", o, len(pool))
		}
		l, k := binary.Uvarint(pool[o:])
		if k <= 0 || uint64(len(pool)-o-k) < l {
			return corrupt("CStr: bad entry at offset %d", o)
		}
	}
	return nil
}

// Tag returns the encoding of f.
func (f *Frozen) Tag() Tag { return f.tag }

// Len returns the logical number of rows.
func (f *Frozen) Len() int { return f.n }

// Bytes returns the encoded representation. The slice must not be modified.
func (f *Frozen) Bytes() []byte { return f.mem }

// Size returns the encoded size in bytes.
func (f *Frozen) Size() int { return len(f.mem) }

// Sparse reports whether f stores only its non-zero rows.
func (f *Frozen) Sparse() bool { return f.tag.Sparse() }

// StoredLen returns the number of explicitly stored entries: the non-zero
// count for sparse encodings, Len otherwise.
func (f *Frozen) StoredLen() int {
	if f.tag.Sparse() {
		return f.stored
	}
	return f.n
}

// Kind returns the value kind served by f.
func (f *Frozen) Kind() Kind {
	switch f.tag {
	case TagC16:
		return KindUUID
	case TagCStr:
		return KindText
	case TagC0D:
		if math.IsNaN(f.conD) {
			return KindMissing
		}
	}
	return KindNumeric
}

// Bias returns the additive bias of a scaled encoding.
func (f *Frozen) Bias() int64 { return f.bias }

// Scale returns the decimal exponent of a scaled encoding.
func (f *Frozen) Scale() int { return f.scale }

// BitsPerValue returns the bits per entry of a bit vector.
func (f *Frozen) BitsPerValue() int { return f.bpv }

// Gap returns the unused trailing bits of a bit vector.
func (f *Frozen) Gap() int { return f.gap }

// PayloadLen returns the number of bytes following the headers.
func (f *Frozen) PayloadLen() int { return len(f.mem) - f.off }

// At returns the value at row i as a float64, NaN when missing.
func (f *Frozen) At(i int) float64 {
	checkIndex(i, f.n)
	return f.atd(i)
}

// AtInt returns the value at row i as an int64. Reals are truncated. It
// panics with a *MissingValueError when the entry is missing.
func (f *Frozen) AtInt(i int) int64 {
	checkIndex(i, f.n)
	return f.at8(i)
}

// IsMissing reports whether row i is missing.
func (f *Frozen) IsMissing(i int) bool {
	checkIndex(i, f.n)
	return f.isNA(i)
}

// AtUUID returns the UUID at row i. It panics with a *MissingValueError when
// the entry is missing.
func (f *Frozen) AtUUID(i int) (lo, hi int64) {
	checkIndex(i, f.n)
	if f.tag != TagC16 {
		if f.tag == TagC0D && f.isNA(i) {
			missing(i)
		}
		unsupported("AtUUID", f.tag)
	}
	lo, hi = f.uuid(i)
	if lo == layout.UUIDLoNA && hi == layout.UUIDHiNA {
		missing(i)
	}
	return lo, hi
}

// AtText returns the byte string at row i; ok is false when missing. The
// returned slice aliases the chunk and must not be modified.
func (f *Frozen) AtText(i int) (b []byte, ok bool) {
	checkIndex(i, f.n)
	if f.tag != TagCStr {
		// all-missing chunks of any kind freeze to a NaN constant
		if f.tag == TagC0D && f.isNA(i) {
			return nil, false
		}
		unsupported("AtText", f.tag)
	}
	return f.text(i)
}

// NextNonZero returns the first row after row that may hold a non-zero
// value, or Len when there is none. Pass -1 to start from the beginning.
// Dense encodings return row+1.
func (f *Frozen) NextNonZero(row int) int {
	if !f.tag.Sparse() {
		return row + 1
	}
	if f.stored == 0 {
		return f.n
	}
	k := 0
	if row >= 0 {
		k, _ = f.lookup(row)
	}
	if x := f.rowAt(k); x > row {
		return x
	}
	if k+1 < f.stored {
		return f.rowAt(k + 1)
	}
	return f.n
}

// NonZeroRows returns the rows holding a non-zero or missing value.
func (f *Frozen) NonZeroRows() *roaring.Bitmap {
	rb := roaring.New()
	switch {
	case f.tag.Sparse():
		for k := 0; k < f.stored; k++ {
			rb.Add(uint32(f.rowAt(k)))
		}
	case f.tag == TagC0L:
		if f.con != 0 {
			rb.AddRange(0, uint64(f.n))
		}
	case f.tag == TagC0D:
		if f.conD != 0 {
			rb.AddRange(0, uint64(f.n))
		}
	case f.tag == TagC16:
		for i := 0; i < f.n; i++ {
			if lo, hi := f.uuid(i); lo != 0 || hi != 0 {
				rb.Add(uint32(i))
			}
		}
	case f.tag == TagCStr:
		for i := 0; i < f.n; i++ {
			rb.Add(uint32(i))
		}
	default:
		for i := 0; i < f.n; i++ {
			if d := f.atd(i); d != 0 {
				rb.Add(uint32(i))
			}
		}
	}
	return rb
}

// MissingMask returns a bit set with one bit per row, set where the row is
// missing.
func (f *Frozen) MissingMask() *bitset.BitSet {
	bs := bitset.New(uint(f.n))
	switch f.tag {
	case TagC0L, TagC1N, TagCX0:
		return bs
	case TagC0D:
		if math.IsNaN(f.conD) {
			bs.FlipRange(0, uint(f.n))
		}
		return bs
	case TagCXI, TagCXD:
		for k := 0; k < f.stored; k++ {
			if f.sparseNA(k) {
				bs.Set(uint(f.rowAt(k)))
			}
		}
		return bs
	}
	for i := 0; i < f.n; i++ {
		if f.isNA(i) {
			bs.Set(uint(i))
		}
	}
	return bs
}

// clone returns a private, writable copy.
func (f *Frozen) clone() *Frozen {
	return &Frozen{header: f.header, mem: bytes.Clone(f.mem)}
}
