// Package conv provides checked integer conversions for values read from or
// written to persisted headers: chunk lengths, envelope sizes, text pool
// offsets and blob sizes.
//
// Every function returns an error wrapping ErrOverflow when the value does
// not fit the target type. Conversions that are provably safe by
// construction should use a plain cast instead.
package conv
