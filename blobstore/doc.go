// Package blobstore provides the byte store that frozen chunks are published
// to and fetched from.
//
// BlobStore is the interface for reading and writing immutable blobs (chunk
// bytes, vec manifests). Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, for tests and ephemeral vecs
//   - LocalStore: local filesystem with atomic rename on Put
//   - CachingStore: block cache in front of any other store
//   - s3.Store: Amazon S3
//   - minio.Store: MinIO and other S3-compatible services
//
// # Custom Implementations
//
//	type BlobStore interface {
//	    Open(ctx, name) (Blob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Blobs are read with ReadAt so remote backends can serve range reads.
package blobstore
