// Package testutil provides seeded column generators for tests and
// benchmarks.
//
// The generators produce the value shapes the chunk encoder distinguishes:
// small and wide integers, decimal mantissas, normally distributed reals,
// sparse columns, missing masks, categorical codes, UUIDs and text.
//
//	rng := testutil.NewRNG(4711)
//	prices := rng.Mantissas(1000, 5) // appended with exponent -2
//	mask := rng.Missing(1000, 0.01)
package testutil
