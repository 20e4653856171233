package fvec

import (
	"errors"
	"fmt"

	"github.com/hupe1980/fvec/blobstore"
	"github.com/hupe1980/fvec/chunk"
)

var (
	// ErrNotFound is returned when a chunk or vec does not exist.
	ErrNotFound = errors.New("not found")

	// ErrClosed is returned when appending to a closed VecWriter.
	ErrClosed = errors.New("writer closed")

	// ErrInvalidName is returned for vec names that cannot form blob names.
	ErrInvalidName = errors.New("invalid vec name")
)

// ErrRowOutOfRange indicates a global row outside a vec.
//
// It unwraps to chunk.ErrIndexOutOfRange.
type ErrRowOutOfRange struct {
	Row  int64
	Rows int64
}

func (e *ErrRowOutOfRange) Error() string {
	return fmt.Sprintf("row %d out of range [0, %d)", e.Row, e.Rows)
}

func (e *ErrRowOutOfRange) Unwrap() error { return chunk.ErrIndexOutOfRange }

// ErrChunkOutOfRange indicates a chunk ordinal outside a vec.
//
// It unwraps to chunk.ErrIndexOutOfRange.
type ErrChunkOutOfRange struct {
	Chunk  int
	Chunks int
}

func (e *ErrChunkOutOfRange) Error() string {
	return fmt.Sprintf("chunk %d out of range [0, %d)", e.Chunk, e.Chunks)
}

func (e *ErrChunkOutOfRange) Unwrap() error { return chunk.ErrIndexOutOfRange }

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, blobstore.ErrNotFound) && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
