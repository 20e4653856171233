package chunk

import (
	"fmt"
	"math"
)

// Tag identifies the binary encoding of a frozen chunk. Tag values are part
// of the persisted format and must never be renumbered.
type Tag uint8

const (
	tagInvalid Tag = iota
	// TagC0L is a constant long: value i64, no payload.
	TagC0L
	// TagC0D is a constant double: value f64, no payload. NaN means every
	// entry is missing.
	TagC0D
	// TagC1N stores unsigned bytes 0..255 with no missing values.
	TagC1N
	// TagC1 stores unsigned bytes 0..254; 0xFF is missing.
	TagC1
	// TagC1S stores unsigned bytes with header bias i64 and scale i32:
	// value = (b + bias) * 10^scale.
	TagC1S
	// TagC2 stores int16; MinInt16 is missing.
	TagC2
	// TagC2S stores biased, scaled int16.
	TagC2S
	// TagC4 stores int32; MinInt32 is missing.
	TagC4
	// TagC4S stores biased, scaled int32.
	TagC4S
	// TagC8 stores int64; MinInt64 is missing.
	TagC8
	// TagC4F stores float32; NaN is missing.
	TagC4F
	// TagC8D stores float64; NaN is missing.
	TagC8D
	// TagC16 stores UUIDs as (lo i64, hi i64); (MinInt64, 0) is missing.
	TagC16
	// TagCBS is a bit vector with header gap u8 and bpv u8. With two bits
	// per value code 2 is missing.
	TagCBS
	// TagCX0 is a sparse bit vector: only the rows holding 1 are stored.
	TagCX0
	// TagCXI stores sparse (row, int) pairs; absent rows are zero.
	TagCXI
	// TagCXD stores sparse (row, float) pairs; absent rows are zero.
	TagCXD
	// TagCStr is a text table: one i32 pool offset per row (-1 is missing)
	// followed by a pool of uvarint length prefixed byte strings.
	TagCStr

	tagCount
)

var tagNames = [...]string{
	tagInvalid: "invalid",
	TagC0L:     "C0L",
	TagC0D:     "C0D",
	TagC1N:     "C1N",
	TagC1:      "C1",
	TagC1S:     "C1S",
	TagC2:      "C2",
	TagC2S:     "C2S",
	TagC4:      "C4",
	TagC4S:     "C4S",
	TagC8:      "C8",
	TagC4F:     "C4F",
	TagC8D:     "C8D",
	TagC16:     "C16",
	TagCBS:     "CBS",
	TagCX0:     "CX0",
	TagCXI:     "CXI",
	TagCXD:     "CXD",
	TagCStr:    "CStr",
}

func (t Tag) String() string {
	if t < tagCount {
		return tagNames[t]
	}
	return fmt.Sprintf("Tag(%d)", uint8(t))
}

// Valid reports whether t names a known encoding.
func (t Tag) Valid() bool { return t > tagInvalid && t < tagCount }

// Sparse reports whether the encoding stores only non-zero rows.
func (t Tag) Sparse() bool { return t == TagCX0 || t == TagCXI || t == TagCXD }

// Scaled reports whether the encoding carries a bias and decimal scale.
func (t Tag) Scaled() bool { return t == TagC1S || t == TagC2S || t == TagC4S }

// Constant reports whether every row shares one value.
func (t Tag) Constant() bool { return t == TagC0L || t == TagC0D }

// prefixSize is the common header: tag u8 + logical length u32.
const prefixSize = 5

// headerSize returns the size of the tag specific header that follows the
// common prefix.
func (t Tag) headerSize() int {
	switch t {
	case TagC0L, TagC0D:
		return 8
	case TagC1S, TagC2S, TagC4S:
		return 12
	case TagCBS, TagCX0, TagCXI, TagCXD:
		return 2
	case TagCStr:
		return 4
	default:
		return 0
	}
}

// width returns the bytes per row of a fixed width dense encoding.
func (t Tag) width() int {
	switch t {
	case TagC1N, TagC1, TagC1S:
		return 1
	case TagC2, TagC2S:
		return 2
	case TagC4, TagC4S, TagC4F:
		return 4
	case TagC8, TagC8D:
		return 8
	case TagC16:
		return 16
	default:
		return 0
	}
}

// ridWidth returns the row-id width used by sparse encodings of n rows.
func ridWidth(n int) int {
	if n >= 65535 {
		return 4
	}
	return 2
}

// widthRange returns the integers a payload of the given byte width can hold
// besides its missing sentinel.
func widthRange(w int) (lo, hi int64) {
	switch w {
	case 1:
		return 0, 254
	case 2:
		return math.MinInt16 + 1, math.MaxInt16
	case 4:
		return math.MinInt32 + 1, math.MaxInt32
	default:
		return math.MinInt64 + 1, math.MaxInt64
	}
}

// valueRange returns the stored integers a dense fixed width encoding can
// hold. C1N has no missing sentinel and uses the full byte.
func (t Tag) valueRange() (lo, hi int64) {
	if t == TagC1N {
		return 0, 255
	}
	return widthRange(t.width())
}
