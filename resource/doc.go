// Package resource governs the shared budgets of a chunk store.
//
// A Controller bounds three things:
//
//   - Memory: bytes of decoded chunk data held in caches and encode buffers.
//     ReserveMemory blocks until the bytes are available, TryReserveMemory
//     fails fast.
//   - Encode workers: the number of chunks encoded and published at once.
//   - Publish bandwidth: bytes per second handed to the blob store.
//
// A nil *Controller imposes no limits, so components can hold one
// unconditionally:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:   256 << 20,
//	    MaxEncodeWorkers:   4,
//	    PublishBytesPerSec: 64 << 20,
//	})
//	if err := rc.AcquireWorker(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseWorker()
package resource
