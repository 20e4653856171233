package chunk

import (
	"context"
	"fmt"
)

// State is the lifecycle state of a Chunk.
type State uint8

const (
	// StateFrozen serves reads from immutable encoded bytes.
	StateFrozen State = iota
	// StateWritable holds a private writable copy.
	StateWritable
	// StateClosed holds freshly encoded bytes. It reads like StateFrozen and
	// a new write reopens the chunk.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateFrozen:
		return "frozen"
	case StateWritable:
		return "writable"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Publisher receives the encoded bytes of a closed chunk.
type Publisher interface {
	PutBytes(ctx context.Context, id string, data []byte) error
}

// view is the read surface shared by Frozen and Builder.
type view interface {
	Len() int
	At(i int) float64
	AtInt(i int) int64
	IsMissing(i int) bool
	AtUUID(i int) (lo, hi int64)
	AtText(i int) ([]byte, bool)
}

var (
	_ view = (*Frozen)(nil)
	_ view = (*Builder)(nil)
)

// Chunk is the entry point for one column chunk. Reads go to the encoded
// bytes until the first write, which works on a private copy: representable
// values are patched in place, anything else inflates the copy to a Builder.
// Close encodes the copy and hands the bytes to a Publisher.
//
// A Chunk has a single writer. Reads in the frozen and closed states may run
// concurrently; reads while writable must not race with writes.
type Chunk struct {
	id    string
	start int64
	state State

	frozen *Frozen
	shadow *Frozen
	buf    *Builder
}

// New wraps an encoded chunk. start is the global row of row 0.
func New(id string, start int64, f *Frozen) *Chunk {
	return &Chunk{id: id, start: start, frozen: f}
}

// Open decodes data and wraps it.
func Open(id string, start int64, data []byte) (*Chunk, error) {
	f, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", id, err)
	}
	return New(id, start, f), nil
}

// NewWritable wraps a Builder that has not been encoded yet.
func NewWritable(id string, start int64, b *Builder) *Chunk {
	return &Chunk{id: id, start: start, state: StateWritable, buf: b}
}

// ID returns the identifier passed to the Publisher.
func (c *Chunk) ID() string { return c.id }

// Start returns the global row of row 0.
func (c *Chunk) Start() int64 { return c.start }

// State returns the lifecycle state.
func (c *Chunk) State() State { return c.state }

// Frozen returns the encoded chunk, or nil while writable.
func (c *Chunk) Frozen() *Frozen {
	if c.state == StateWritable {
		return nil
	}
	return c.frozen
}

// Inflated reports whether the writable copy was inflated to a Builder.
func (c *Chunk) Inflated() bool { return c.buf != nil }

func (c *Chunk) view() view {
	switch {
	case c.buf != nil:
		return c.buf
	case c.shadow != nil:
		return c.shadow
	}
	return c.frozen
}

// Len returns the number of rows.
func (c *Chunk) Len() int { return c.view().Len() }

// At returns row i as a float64, NaN when missing.
func (c *Chunk) At(i int) float64 { return c.view().At(i) }

// AtInt returns row i as an int64. It panics with a *MissingValueError when
// the row is missing.
func (c *Chunk) AtInt(i int) int64 { return c.view().AtInt(i) }

// IsMissing reports whether row i is missing.
func (c *Chunk) IsMissing(i int) bool { return c.view().IsMissing(i) }

// AtUUID returns the UUID at row i.
func (c *Chunk) AtUUID(i int) (lo, hi int64) { return c.view().AtUUID(i) }

// AtText returns the bytes at row i; ok is false when missing.
func (c *Chunk) AtText(i int) ([]byte, bool) { return c.view().AtText(i) }

// OpenForWrite moves the chunk to the writable state, copying the encoded
// bytes. It is a no-op when already writable.
func (c *Chunk) OpenForWrite() {
	if c.state == StateWritable {
		return
	}
	c.shadow = c.frozen.clone()
	c.state = StateWritable
}

// inflate switches the writable copy to a Builder.
func (c *Chunk) inflate() *Builder {
	if c.buf == nil {
		c.buf = c.shadow.Inflate()
		c.shadow = nil
	}
	return c.buf
}

// patch opens the chunk for writing and tries fn on the private copy.
func (c *Chunk) patch(i int, fn func(f *Frozen) bool) bool {
	checkIndex(i, c.Len())
	c.OpenForWrite()
	return c.buf == nil && fn(c.shadow)
}

// SetInt overwrites row i with v.
func (c *Chunk) SetInt(i int, v int64) {
	if !c.patch(i, func(f *Frozen) bool { return f.setInt(i, v) }) {
		c.inflate().SetInt(i, v)
	}
}

// SetDecimal overwrites row i with m * 10^x.
func (c *Chunk) SetDecimal(i int, m int64, x int) {
	if !c.patch(i, func(f *Frozen) bool { return f.setDecimalAny(i, m, x) }) {
		c.inflate().SetDecimal(i, m, x)
	}
}

// SetReal overwrites row i with d. NaN marks the row missing.
func (c *Chunk) SetReal(i int, d float64) {
	if !c.patch(i, func(f *Frozen) bool { return f.setReal(i, d) }) {
		c.inflate().SetReal(i, d)
	}
}

// SetMissing marks row i missing.
func (c *Chunk) SetMissing(i int) {
	if !c.patch(i, func(f *Frozen) bool { return f.setMissing(i) }) {
		c.inflate().SetMissing(i)
	}
}

// SetUUID overwrites row i of a UUID chunk.
func (c *Chunk) SetUUID(i int, lo, hi int64) {
	if !c.patch(i, func(f *Frozen) bool { return f.setUUID(i, lo, hi) }) {
		c.inflate().SetUUID(i, lo, hi)
	}
}

// SetEnum overwrites row i with an enum code.
func (c *Chunk) SetEnum(i int, code uint32) {
	c.patch(i, func(*Frozen) bool { return false })
	c.inflate().SetEnum(i, code)
}

// SetText overwrites row i of a text chunk; nil marks it missing.
func (c *Chunk) SetText(i int, t []byte) {
	if t == nil {
		c.SetMissing(i)
		return
	}
	c.patch(i, func(*Frozen) bool { return false })
	c.inflate().SetText(i, t)
}

// Set overwrites row i with v.
func (c *Chunk) Set(i int, v Value) {
	switch v.typ {
	case TypeInteger:
		c.SetDecimal(i, v.m, int(v.x))
	case TypeReal:
		c.SetReal(i, v.f)
	case TypeEnum:
		c.SetEnum(i, uint32(v.m))
	case TypeUUID:
		c.SetUUID(i, v.m, v.hi)
	case TypeText:
		c.SetText(i, v.text)
	default:
		c.SetMissing(i)
	}
}

// Close encodes the writable copy and publishes it under the chunk ID. pub
// may be nil. On a publish error the chunk stays writable, holding the
// encoded copy, and Close can be retried. Closing a chunk that was not
// written is a no-op.
func (c *Chunk) Close(ctx context.Context, pub Publisher) (*Frozen, error) {
	if c.state != StateWritable {
		return c.frozen, nil
	}
	f := c.shadow
	if c.buf != nil {
		f = Encode(c.buf)
		c.buf, c.shadow = nil, f
	}
	if pub != nil {
		if err := pub.PutBytes(ctx, c.id, f.Bytes()); err != nil {
			return nil, fmt.Errorf("chunk %s: publish: %w", c.id, err)
		}
	}
	c.frozen, c.shadow, c.state = f, nil, StateClosed
	return f, nil
}
