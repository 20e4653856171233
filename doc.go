// Package fvec stores columns as sequences of compressed chunks.
//
// The chunk package holds the storage engine: builders, the encoder that
// picks the narrowest lossless encoding, the frozen read path and the
// write-back façade. This package wires chunks to persistence.
//
//   - Store fetches and publishes chunk bytes through a blobstore.BlobStore,
//     with an optional LZ4/ZSTD envelope, a block cache, resource limits,
//     logging and metrics. It implements chunk.Publisher.
//   - VecWriter appends values, cuts a chunk every ChunkSize rows, encodes
//     and publishes chunks in parallel and commits a manifest.
//   - Vec reads the manifest and maps global rows to chunks.
//
// # Quick Start
//
//	st := fvec.NewStore(blobstore.NewLocalStore("./data"),
//	    fvec.WithCompression(fvec.CompressionLZ4),
//	    fvec.WithCacheSize(64<<20),
//	)
//
//	w, err := st.NewVecWriter(ctx, "price")
//	for _, p := range prices {
//	    _ = w.AppendDecimal(p.Cents, -2)
//	}
//	v, err := w.Close()
//
//	d, err := v.At(ctx, 12345)
//
// # Updating
//
// Chunks are immutable once published. Update fetches a chunk, applies the
// writes through the chunk façade and republishes it:
//
//	_, err := v.Update(ctx, 3, func(c *chunk.Chunk) error {
//	    c.SetMissing(17)
//	    return nil
//	})
package fvec
