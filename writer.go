package fvec

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/fvec/chunk"
	"golang.org/x/sync/errgroup"
)

// bytesPerRow is the buffer footprint reserved per pending row.
const bytesPerRow = 16

// VecWriter appends values to a new vec. Every ChunkSize rows the buffered
// chunk is handed to a background worker that encodes and publishes it.
// The vec becomes visible once Close commits its manifest.
//
// A VecWriter is not safe for concurrent use.
type VecWriter struct {
	st        *Store
	name      string
	opts      options
	log       *Logger
	g         *errgroup.Group
	gctx      context.Context
	b         *chunk.Builder
	espc      []int64
	rows      int64
	domain    int
	closed    bool
	committed bool
}

// NewVecWriter starts a vec named name. opts override the store's options
// for this writer; the blob store and cache stay shared.
func (s *Store) NewVecWriter(ctx context.Context, name string, opts ...Option) (*VecWriter, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	o := s.opts
	o.apply(opts)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.parallelism)

	w := &VecWriter{
		st:   &Store{bs: s.bs, cache: s.cache, opts: o},
		name: name,
		opts: o,
		log:  o.logger.WithVec(name),
		g:    g,
		gctx: gctx,
		espc: []int64{0},
	}
	w.b = w.newBuilder()
	return w, nil
}

func (w *VecWriter) newBuilder() *chunk.Builder {
	b := chunk.NewBuilder()
	if w.domain > 0 {
		b.SetEnumDomain(w.domain)
	}
	return b
}

// Name returns the vec name.
func (w *VecWriter) Name() string { return w.name }

// Len returns the number of rows appended so far.
func (w *VecWriter) Len() int64 { return w.rows + int64(w.b.Len()) }

// SetEnumDomain records the number of categorical levels of enum values.
func (w *VecWriter) SetEnumDomain(n int) {
	w.domain = n
	w.b.SetEnumDomain(n)
}

func (w *VecWriter) check() error {
	if w.closed {
		return ErrClosed
	}
	return context.Cause(w.gctx)
}

// append runs fn against the current buffer and cuts a chunk when it is full.
func (w *VecWriter) append(fn func(b *chunk.Builder)) error {
	if err := w.check(); err != nil {
		return err
	}
	fn(w.b)
	if w.b.Len() >= w.opts.chunkSize {
		return w.flush()
	}
	return nil
}

// AppendInt appends an integer.
func (w *VecWriter) AppendInt(v int64) error {
	return w.append(func(b *chunk.Builder) { b.AppendInt(v, 0) })
}

// AppendDecimal appends m * 10^x.
func (w *VecWriter) AppendDecimal(m int64, x int) error {
	return w.append(func(b *chunk.Builder) { b.AppendInt(m, x) })
}

// AppendReal appends a float64. NaN appends a missing value.
func (w *VecWriter) AppendReal(d float64) error {
	return w.append(func(b *chunk.Builder) { b.AppendReal(d) })
}

// AppendTime appends a timestamp in milliseconds since the epoch.
func (w *VecWriter) AppendTime(ms int64) error {
	return w.append(func(b *chunk.Builder) { b.AppendTime(ms) })
}

// AppendEnum appends a categorical code.
func (w *VecWriter) AppendEnum(code uint32) error {
	return w.append(func(b *chunk.Builder) { b.AppendEnum(code) })
}

// AppendUUID appends a 128-bit identifier.
func (w *VecWriter) AppendUUID(lo, hi int64) error {
	return w.append(func(b *chunk.Builder) { b.AppendUUID(lo, hi) })
}

// AppendText appends a byte string. The bytes are copied.
func (w *VecWriter) AppendText(t []byte) error {
	return w.append(func(b *chunk.Builder) { b.AppendText(t) })
}

// AppendMissing appends a missing value.
func (w *VecWriter) AppendMissing() error {
	return w.append(func(b *chunk.Builder) { b.AppendMissing() })
}

// AppendValue appends v.
func (w *VecWriter) AppendValue(v chunk.Value) error {
	return w.append(func(b *chunk.Builder) { b.AppendValue(v) })
}

// flush hands the current buffer to a worker. It blocks while the memory
// budget or the worker limit is exhausted.
func (w *VecWriter) flush() error {
	b := w.b
	n := b.Len()
	est := int64(n) * bytesPerRow
	if err := w.opts.rc.ReserveMemory(w.gctx, est); err != nil {
		return err
	}

	idx := len(w.espc) - 1
	w.rows += int64(n)
	w.espc = append(w.espc, w.rows)
	w.b = w.newBuilder()

	id := ChunkID(w.name, idx)
	w.g.Go(func() error {
		defer w.opts.rc.ReleaseMemory(est)
		return w.publish(w.gctx, id, b)
	})
	return nil
}

func (w *VecWriter) publish(ctx context.Context, id string, b *chunk.Builder) error {
	if err := w.opts.rc.AcquireWorker(ctx); err != nil {
		return err
	}
	start := time.Now()
	f := chunk.Encode(b)
	w.opts.rc.ReleaseWorker()

	w.opts.metrics.RecordEncode(f.Tag(), f.Len(), f.Size(), time.Since(start))
	w.log.LogEncode(ctx, id, f)
	return w.st.PutBytes(ctx, id, f.Bytes())
}

// Close publishes the remaining rows, waits for every chunk and commits the
// manifest. A failed Close leaves no manifest behind.
func (w *VecWriter) Close() (*Vec, error) {
	if w.closed {
		return nil, ErrClosed
	}
	err := context.Cause(w.gctx)
	if err == nil && w.b.Len() > 0 {
		err = w.flush()
	}
	w.closed = true
	if werr := w.g.Wait(); werr != nil {
		err = werr
	}
	if err != nil {
		return nil, err
	}
	// The group context is done after Wait; commit on a live one.
	v, err := w.st.commitVec(context.WithoutCancel(w.gctx), w.name, w.espc)
	w.committed = err == nil
	return v, err
}

// Abort stops the writer and deletes the chunks it already published. It
// fails with ErrClosed once Close has committed the vec.
func (w *VecWriter) Abort(ctx context.Context) error {
	if w.committed {
		return ErrClosed
	}
	if !w.closed {
		w.closed = true
		_ = w.g.Wait()
	}
	for i := range len(w.espc) - 1 {
		if err := w.st.Delete(ctx, ChunkID(w.name, i)); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}
	return nil
}
