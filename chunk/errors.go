package chunk

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfRange is wrapped by the panic raised on an access outside
	// [0, Len()).
	ErrIndexOutOfRange = errors.New("chunk: index out of range")

	// ErrMissingValue is wrapped by the panic raised when a missing entry is
	// read as an integer or UUID.
	ErrMissingValue = errors.New("chunk: missing value access")

	// ErrUnsupported is raised when an operation does not apply to the
	// chunk's value kind, e.g. reading text from a numeric chunk.
	ErrUnsupported = errors.New("chunk: operation not supported by value kind")

	// ErrClosed is raised when appending to a closed Builder.
	ErrClosed = errors.New("chunk: builder is closed")

	// ErrCorrupt is returned when encoded bytes cannot be decoded.
	ErrCorrupt = errors.New("chunk: corrupt encoding")
)

// IndexError describes an out of range access.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("chunk: index %d out of range [0, %d)", e.Index, e.Len)
}

func (e *IndexError) Unwrap() error { return ErrIndexOutOfRange }

// MissingValueError describes a read of a missing entry through an accessor
// that has no representation for it.
type MissingValueError struct {
	Index int
}

func (e *MissingValueError) Error() string {
	return fmt.Sprintf("chunk: value at %d is missing", e.Index)
}

func (e *MissingValueError) Unwrap() error { return ErrMissingValue }

func checkIndex(i, n int) {
	if i < 0 || i >= n {
		panic(&IndexError{Index: i, Len: n})
	}
}

func missing(i int) {
	panic(&MissingValueError{Index: i})
}

func unsupported(op string, what fmt.Stringer) {
	panic(fmt.Errorf("%w: %s on %s", ErrUnsupported, op, what))
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}
