package layout

import (
	"encoding/binary"
	"math"
)

// Missing-value sentinels per stored width.
const (
	NA1 = 0xFF
	NA2 = math.MinInt16
	NA4 = math.MinInt32
	NA8 = math.MinInt64
)

// UUID missing sentinel.
const (
	UUIDLoNA = math.MinInt64
	UUIDHiNA = 0
)

// NAForWidth returns the sentinel used by an integer payload of the given
// byte width.
func NAForWidth(width int) int64 {
	switch width {
	case 1:
		return NA1
	case 2:
		return NA2
	case 4:
		return NA4
	default:
		return NA8
	}
}

// Get2 loads a signed 16-bit value.
func Get2(b []byte, off int) int64 {
	return int64(int16(binary.LittleEndian.Uint16(b[off:])))
}

// Get4 loads a signed 32-bit value.
func Get4(b []byte, off int) int64 {
	return int64(int32(binary.LittleEndian.Uint32(b[off:])))
}

// Get8 loads a signed 64-bit value.
func Get8(b []byte, off int) int64 {
	return int64(binary.LittleEndian.Uint64(b[off:]))
}

// Get4f loads a float32.
func Get4f(b []byte, off int) float64 {
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b[off:])))
}

// Get8d loads a float64.
func Get8d(b []byte, off int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b[off:]))
}

// GetU4 loads an unsigned 32-bit value.
func GetU4(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off:])
}

// Set2 stores the low 16 bits of v.
func Set2(b []byte, off int, v int64) {
	binary.LittleEndian.PutUint16(b[off:], uint16(v))
}

// Set4 stores the low 32 bits of v.
func Set4(b []byte, off int, v int64) {
	binary.LittleEndian.PutUint32(b[off:], uint32(v))
}

// Set8 stores v.
func Set8(b []byte, off int, v int64) {
	binary.LittleEndian.PutUint64(b[off:], uint64(v))
}

// Set4f stores v as a float32.
func Set4f(b []byte, off int, v float64) {
	binary.LittleEndian.PutUint32(b[off:], math.Float32bits(float32(v)))
}

// Set8d stores v as a float64.
func Set8d(b []byte, off int, v float64) {
	binary.LittleEndian.PutUint64(b[off:], math.Float64bits(v))
}

// SetU4 stores an unsigned 32-bit value.
func SetU4(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:], v)
}

// GetN loads a signed integer of the given byte width. Width 1 is unsigned.
func GetN(b []byte, off, width int) int64 {
	switch width {
	case 1:
		return int64(b[off])
	case 2:
		return Get2(b, off)
	case 4:
		return Get4(b, off)
	default:
		return Get8(b, off)
	}
}

// SetN stores v truncated to the given byte width.
func SetN(b []byte, off, width int, v int64) {
	switch width {
	case 1:
		b[off] = byte(v)
	case 2:
		Set2(b, off, v)
	case 4:
		Set4(b, off, v)
	default:
		Set8(b, off, v)
	}
}
