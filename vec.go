package fvec

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"sort"
	"strings"

	"github.com/hupe1980/fvec/chunk"
	"github.com/hupe1980/fvec/codec"
	"golang.org/x/sync/errgroup"
)

const manifestVersion = 1

// manifest is the persisted layout of a vec. Espc holds the element start
// of every chunk followed by the total row count.
type manifest struct {
	Version int     `json:"version"`
	Name    string  `json:"name"`
	Espc    []int64 `json:"espc"`
}

func (m *manifest) validate() error {
	if m.Version != manifestVersion {
		return fmt.Errorf("unsupported manifest version %d", m.Version)
	}
	if len(m.Espc) == 0 || m.Espc[0] != 0 {
		return errors.New("manifest: espc must start at 0")
	}
	for i := 1; i < len(m.Espc); i++ {
		if m.Espc[i] <= m.Espc[i-1] {
			return fmt.Errorf("manifest: chunk %d is empty or out of order", i-1)
		}
	}
	return nil
}

func validName(name string) error {
	if name == "" || strings.Contains(name, "/") || !fs.ValidPath(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

const manifestSuffix = "/manifest"

func manifestID(name string) string { return name + manifestSuffix }

// ChunkID returns the blob ID of chunk i of the named vec.
func ChunkID(name string, i int) string {
	return fmt.Sprintf("%s/chunk-%06d", name, i)
}

// Vec is a read handle on a committed vec: the ordinal position and row
// count of each of its chunks. Vec is safe for concurrent use.
type Vec struct {
	st    *Store
	name  string
	espc  []int64
	codec codec.Codec
}

// OpenVec reads the manifest of the named vec.
func (s *Store) OpenVec(ctx context.Context, name string) (*Vec, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	b, err := s.GetBytes(ctx, manifestID(name))
	if err != nil {
		return nil, fmt.Errorf("open vec %s: %w", name, err)
	}
	var m manifest
	c, err := codec.Unwrap(b, &m)
	if err != nil {
		return nil, fmt.Errorf("open vec %s: %w", name, err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("open vec %s: %w", name, err)
	}
	return &Vec{st: s, name: name, espc: m.Espc, codec: c}, nil
}

func (s *Store) commitVec(ctx context.Context, name string, espc []int64) (*Vec, error) {
	m := manifest{Version: manifestVersion, Name: name, Espc: espc}
	b, err := codec.Wrap(s.opts.codec, &m)
	if err == nil {
		err = s.PutBytes(ctx, manifestID(name), b)
	}
	s.opts.logger.LogManifest(ctx, name, len(espc)-1, espc[len(espc)-1], err)
	if err != nil {
		return nil, fmt.Errorf("commit vec %s: %w", name, err)
	}
	return &Vec{st: s, name: name, espc: espc, codec: s.opts.codec}, nil
}

// Vecs returns the names of all committed vecs.
func (s *Store) Vecs(ctx context.Context) ([]string, error) {
	ids, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, id := range ids {
		if name, ok := strings.CutSuffix(id, manifestSuffix); ok && !strings.Contains(name, "/") {
			names = append(names, name)
		}
	}
	return names, nil
}

// DeleteVec removes the manifest and every chunk of the named vec. The
// manifest goes first so a partially deleted vec is never opened.
func (s *Store) DeleteVec(ctx context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := s.Delete(ctx, manifestID(name)); err != nil {
		return err
	}
	ids, err := s.List(ctx, name+"/")
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.parallelism)
	for _, id := range ids {
		g.Go(func() error { return s.Delete(gctx, id) })
	}
	return g.Wait()
}

// Name returns the vec name.
func (v *Vec) Name() string { return v.name }

// Len returns the total number of rows.
func (v *Vec) Len() int64 { return v.espc[len(v.espc)-1] }

// NumChunks returns the number of chunks.
func (v *Vec) NumChunks() int { return len(v.espc) - 1 }

// Codec returns the codec the manifest was written with.
func (v *Vec) Codec() codec.Codec { return v.codec }

// Espc returns a copy of the chunk start offsets followed by Len.
func (v *Vec) Espc() []int64 { return slices.Clone(v.espc) }

func (v *Vec) checkChunk(i int) error {
	if i < 0 || i >= v.NumChunks() {
		return &ErrChunkOutOfRange{Chunk: i, Chunks: v.NumChunks()}
	}
	return nil
}

// ChunkStart returns the global row of the first row of chunk i.
func (v *Vec) ChunkStart(i int) int64 { return v.espc[i] }

// ChunkLen returns the row count of chunk i.
func (v *Vec) ChunkLen(i int) int { return int(v.espc[i+1] - v.espc[i]) }

// ChunkID returns the blob ID of chunk i.
func (v *Vec) ChunkID(i int) string { return ChunkID(v.name, i) }

// ChunkIndex maps a global row to its chunk and the row within that chunk.
func (v *Vec) ChunkIndex(row int64) (idx, local int, err error) {
	if row < 0 || row >= v.Len() {
		return 0, 0, &ErrRowOutOfRange{Row: row, Rows: v.Len()}
	}
	idx = sort.Search(len(v.espc), func(k int) bool { return v.espc[k] > row }) - 1
	return idx, int(row - v.espc[idx]), nil
}

// Chunk fetches chunk i.
func (v *Vec) Chunk(ctx context.Context, i int) (*chunk.Chunk, error) {
	if err := v.checkChunk(i); err != nil {
		return nil, err
	}
	c, err := v.st.OpenChunk(ctx, v.ChunkID(i), v.espc[i])
	if err != nil {
		return nil, err
	}
	if c.Len() != v.ChunkLen(i) {
		return nil, fmt.Errorf("%w: chunk %s has %d rows, manifest says %d",
			chunk.ErrCorrupt, c.ID(), c.Len(), v.ChunkLen(i))
	}
	return c, nil
}

// At returns the value at a global row as a float64, NaN when missing.
func (v *Vec) At(ctx context.Context, row int64) (float64, error) {
	idx, local, err := v.ChunkIndex(row)
	if err != nil {
		return 0, err
	}
	c, err := v.Chunk(ctx, idx)
	if err != nil {
		return 0, err
	}
	return c.At(local), nil
}

// Load fetches every chunk in parallel.
func (v *Vec) Load(ctx context.Context) ([]*chunk.Chunk, error) {
	out := make([]*chunk.Chunk, v.NumChunks())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.st.opts.parallelism)
	for i := range out {
		g.Go(func() error {
			c, err := v.Chunk(gctx, i)
			out[i] = c
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update fetches chunk i, applies fn and republishes the chunk when fn
// wrote to it. Nothing is published when fn returns an error.
func (v *Vec) Update(ctx context.Context, i int, fn func(c *chunk.Chunk) error) (*chunk.Frozen, error) {
	c, err := v.Chunk(ctx, i)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}
	return v.st.CloseChunk(ctx, c)
}
