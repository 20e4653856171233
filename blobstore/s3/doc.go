// Package s3 provides an Amazon S3 implementation of blobstore.BlobStore.
//
// # Usage
//
//	cfg, _ := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "warehouse/")
//	st := fvec.NewStore(store, fvec.WithCompression(fvec.CompressionZSTD))
//
// # Features
//
//   - Range reads, so a block cache can fetch parts of a chunk blob
//   - CRC32C checksums on every put
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
