package layout

import "math"

// Pow10i holds the powers of ten that fit in an int64.
var Pow10i = [...]int64{
	1, 10, 100, 1e3, 1e4, 1e5, 1e6, 1e7, 1e8, 1e9,
	1e10, 1e11, 1e12, 1e13, 1e14, 1e15, 1e16, 1e17, 1e18,
}

// exactly representable float64 powers of ten
var pow10f = [...]float64{
	1e0, 1e1, 1e2, 1e3, 1e4, 1e5, 1e6, 1e7, 1e8, 1e9, 1e10,
	1e11, 1e12, 1e13, 1e14, 1e15, 1e16, 1e17, 1e18, 1e19, 1e20, 1e21, 1e22,
}

// Pow10 returns 10^x as a float64.
func Pow10(x int) float64 {
	if x >= 0 && x < len(pow10f) {
		return pow10f[x]
	}
	return math.Pow10(x)
}

// Decimal returns m * 10^x. Negative exponents with an exact power of ten are
// computed by division so that short decimal literals decode to the same
// float64 the parser would produce.
func Decimal(m int64, x int) float64 {
	if x < 0 && -x < len(pow10f) {
		return float64(m) / pow10f[-x]
	}
	return float64(m) * Pow10(x)
}

// Rescale multiplies m by 10^d (d >= 0). ok is false when the product does
// not fit in an int64.
func Rescale(m int64, d int) (r int64, ok bool) {
	if d < 0 || d >= len(Pow10i) {
		return 0, false
	}
	p := Pow10i[d]
	r = m * p
	if r/p != m {
		return 0, false
	}
	return r, true
}

// Normalize strips trailing decimal zeros from m, returning the adjusted pair.
// Zero is canonicalized to exponent 0.
func Normalize(m int64, x int) (int64, int) {
	if m == 0 {
		return 0, 0
	}
	for m%10 == 0 {
		m /= 10
		x++
	}
	return m, x
}
