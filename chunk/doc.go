// Package chunk implements the columnar chunk storage engine.
//
// A column is split into chunks. Each chunk is built incrementally in a
// Builder, encoded by Encode into the narrowest lossless Frozen encoding, and
// served to readers from that immutable byte block. Writes go through the
// Chunk façade: the first write clones the frozen bytes, representable values
// are patched in place, anything else inflates the chunk back into a Builder.
// Close re-encodes and hands the new bytes to a Publisher.
//
// # Wire format
//
// Every encoded chunk starts with a one byte Tag followed by the logical row
// count as a little-endian uint32. Tag specific header fields and the payload
// follow. See the Tag constants for the individual layouts.
//
// # Missing values
//
// Each encoding reserves a sentinel for missing entries: the minimum signed
// value of the stored width, 0xFF for unsigned bytes, NaN for floats, the
// pair (MinInt64, 0) for UUIDs and code 2 in two-bit vectors. Reading a
// missing entry through At yields NaN; through AtInt or AtUUID it panics.
package chunk
