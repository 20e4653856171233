// Package minio provides a BlobStore backed by the MinIO client, for MinIO
// and other S3-compatible services (Ceph, Garage, SeaweedFS).
//
// # Basic Usage
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	    Secure: false,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	store := minioblob.NewStore(client, "warehouse", "frames/")
//	st := fvec.NewStore(store, fvec.WithCompression(fvec.CompressionLZ4))
//
// No AWS SDK is required, which keeps air-gapped deployments small.
package minio
