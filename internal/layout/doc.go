// Package layout holds the fixed-width primitives shared by every chunk
// encoding: little-endian loads and stores, the missing-value sentinel of each
// width, bit-vector packing and power-of-ten scaling.
//
// Nothing in here allocates. Callers own bounds checking.
package layout
