package layout

// BitNA is the 2-bit code for a missing entry in a bit vector.
const BitNA = 2

// PackedLen returns the number of payload bytes needed for n values of bpv
// bits each.
func PackedLen(n, bpv int) int {
	return (n*bpv + 7) >> 3
}

// Gap returns the number of unused trailing bits in the last payload byte.
func Gap(n, bpv int) int {
	r := (n * bpv) & 7
	if r == 0 {
		return 0
	}
	return 8 - r
}

// ReadBits returns the value at index i of a packed vector. Values are stored
// most significant bit first.
func ReadBits(b []byte, i, bpv int) byte {
	bit := i * bpv
	shift := 8 - bpv - bit&7
	return (b[bit>>3] >> shift) & byte(1<<bpv-1)
}

// WriteBits overwrites the value at index i of a packed vector.
func WriteBits(b []byte, i, bpv int, v byte) {
	bit := i * bpv
	shift := 8 - bpv - bit&7
	mask := byte(1<<bpv-1) << shift
	b[bit>>3] = b[bit>>3]&^mask | (v<<shift)&mask
}
