package testutil

import (
	"math"
	"math/rand"
	"sync"
)

// RNG encapsulates a seeded random source so column generators are
// reproducible. It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Int64Range returns a pseudo-random number in [lo,hi].
func (r *RNG) Int64Range(lo, hi int64) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo + r.rand.Int63n(hi-lo+1)
}

// Float64 returns a pseudo-random number in [0,1).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// Ints returns n integers uniform in [lo,hi].
func (r *RNG) Ints(n int, lo, hi int64) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int64, n)
	for i := range out {
		out[i] = lo + r.rand.Int63n(hi-lo+1)
	}
	return out
}

// Mantissas returns n decimal mantissas with at most digits digits, such as
// prices in cents.
func (r *RNG) Mantissas(n, digits int) []int64 {
	return r.Ints(n, 0, int64(math.Pow10(digits))-1)
}

// Reals returns n normally distributed float64 values.
func (r *RNG) Reals(n int, mean, stddev float64) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float64, n)
	for i := range out {
		out[i] = mean + stddev*r.rand.NormFloat64()
	}
	return out
}

// SparseInts returns n integers where about density of them are non-zero.
func (r *RNG) SparseInts(n int, density float64, lo, hi int64) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int64, n)
	for i := range out {
		if r.rand.Float64() < density {
			v := lo + r.rand.Int63n(hi-lo+1)
			if v == 0 {
				v = 1
			}
			out[i] = v
		}
	}
	return out
}

// Missing returns a mask marking about rate of n rows as missing.
func (r *RNG) Missing(n int, rate float64) []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]bool, n)
	for i := range out {
		out[i] = r.rand.Float64() < rate
	}
	return out
}

// Zipf returns n codes in [0,levels) with a Zipf distribution of exponent
// s > 1, the shape of typical categorical columns.
func (r *RNG) Zipf(n, levels int, s float64) []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	z := rand.NewZipf(r.rand, s, 1, uint64(levels-1))
	out := make([]uint32, n)
	for i := range out {
		out[i] = uint32(z.Uint64())
	}
	return out
}

// UUIDs returns n random 128-bit identifiers as (lo, hi) halves.
func (r *RNG) UUIDs(n int) (lo, hi []int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lo, hi = make([]int64, n), make([]int64, n)
	for i := range lo {
		lo[i] = int64(r.rand.Uint64())
		hi[i] = int64(r.rand.Uint64())
	}
	return lo, hi
}

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Texts returns n random lowercase strings with lengths in [1,maxLen].
func (r *RNG) Texts(n, maxLen int) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, n)
	for i := range out {
		t := make([]byte, 1+r.rand.Intn(maxLen))
		for j := range t {
			t[j] = alphabet[r.rand.Intn(len(alphabet))]
		}
		out[i] = t
	}
	return out
}
