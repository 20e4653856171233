package chunk

import "math"

// Kind is the homogeneous value kind of a column chunk.
type Kind uint8

const (
	// KindMissing marks a chunk whose every entry is missing.
	KindMissing Kind = iota
	KindNumeric
	KindEnum
	KindUUID
	KindText
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindNumeric:
		return "numeric"
	case KindEnum:
		return "enum"
	case KindUUID:
		return "uuid"
	case KindText:
		return "text"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

// ValueType discriminates the variants of a Value.
type ValueType uint8

const (
	TypeMissing ValueType = iota
	TypeInteger
	TypeReal
	TypeEnum
	TypeUUID
	TypeText
)

// Value is a single logical value: an integer with a decimal exponent, a
// real, an enum code, a UUID, a byte string or Missing.
type Value struct {
	typ  ValueType
	m    int64
	x    int32
	f    float64
	hi   int64
	text []byte
}

// Missing returns the missing value.
func Missing() Value { return Value{} }

// Int returns the decimal m * 10^x.
func Int(m int64, x int) Value { return Value{typ: TypeInteger, m: m, x: int32(x)} }

// Real returns a floating point value. NaN is treated as Missing.
func Real(f float64) Value {
	if math.IsNaN(f) {
		return Missing()
	}
	return Value{typ: TypeReal, f: f}
}

// Enum returns a categorical code.
func Enum(code uint32) Value { return Value{typ: TypeEnum, m: int64(code)} }

// UUID returns a 128-bit identifier.
func UUID(lo, hi int64) Value { return Value{typ: TypeUUID, m: lo, hi: hi} }

// Text returns a byte string. A nil slice is treated as Missing.
func Text(b []byte) Value {
	if b == nil {
		return Missing()
	}
	return Value{typ: TypeText, text: b}
}

// Type reports the variant.
func (v Value) Type() ValueType { return v.typ }

// IsMissing reports whether v is Missing.
func (v Value) IsMissing() bool { return v.typ == TypeMissing }

// Float returns the numeric value, NaN for Missing and non-numeric kinds.
func (v Value) Float() float64 {
	switch v.typ {
	case TypeInteger:
		return decimal(v.m, int(v.x))
	case TypeReal:
		return v.f
	case TypeEnum:
		return float64(v.m)
	default:
		return math.NaN()
	}
}

// Bytes returns the text payload.
func (v Value) Bytes() []byte { return v.text }

// Pair returns the two halves of a UUID.
func (v Value) Pair() (lo, hi int64) { return v.m, v.hi }

// Mantissa returns the decimal mantissa and exponent of an integer value, or
// the code of an enum.
func (v Value) Mantissa() (int64, int) { return v.m, int(v.x) }
