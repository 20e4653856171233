package resource

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when a reservation can never fit the
// configured limit.
var ErrMemoryLimitExceeded = errors.New("resource: memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for reserved memory.
	// If 0, usage is tracked but not limited.
	MemoryLimitBytes int64

	// MaxEncodeWorkers is the number of chunks encoded concurrently.
	// If 0, defaults to 1.
	MaxEncodeWorkers int64

	// PublishBytesPerSec caps the bytes handed to the blob store.
	// If 0, unlimited.
	PublishBytesPerSec int64
}

// Usage is a snapshot of a Controller.
type Usage struct {
	MemoryInUse  int64
	MemoryLimit  int64
	WorkersBusy  int64
	WorkersLimit int64
}

// Reclaimer releases memory held by a cache-like consumer. It is asked for
// at least need bytes and returns how many it released.
type Reclaimer func(need int64) int64

// Controller manages memory, encode workers and publish bandwidth.
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	mu         sync.Mutex
	reclaimers []Reclaimer

	workers *semaphore.Weighted
	busy    atomic.Int64

	publish *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxEncodeWorkers <= 0 {
		cfg.MaxEncodeWorkers = 1
	}

	c := &Controller{
		cfg:     cfg,
		workers: semaphore.NewWeighted(cfg.MaxEncodeWorkers),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.PublishBytesPerSec > 0 {
		c.publish = rate.NewLimiter(rate.Limit(cfg.PublishBytesPerSec), int(cfg.PublishBytesPerSec))
	}

	return c
}

// ReserveMemory reserves bytes, blocking until they fit under the limit or
// ctx is done.
func (c *Controller) ReserveMemory(ctx context.Context, bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.memSem != nil {
		if bytes > c.cfg.MemoryLimitBytes {
			return fmt.Errorf("%w: %d bytes requested, limit %d", ErrMemoryLimitExceeded, bytes, c.cfg.MemoryLimitBytes)
		}
		if !c.memSem.TryAcquire(bytes) {
			c.reclaim(bytes - (c.cfg.MemoryLimitBytes - c.memUsed.Load()))
			if err := c.memSem.Acquire(ctx, bytes); err != nil {
				return err
			}
		}
	}
	c.memUsed.Add(bytes)
	return nil
}

// RegisterReclaimer adds r to the consumers asked to give memory back when a
// blocking reservation does not fit. r must not call ReserveMemory.
func (c *Controller) RegisterReclaimer(r Reclaimer) {
	if c == nil || r == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reclaimers = append(c.reclaimers, r)
}

// reclaim asks the registered reclaimers for the need bytes a reservation is
// short.
func (c *Controller) reclaim(need int64) {
	if need <= 0 {
		return
	}
	c.mu.Lock()
	rs := c.reclaimers
	c.mu.Unlock()

	for _, r := range rs {
		if need -= r(need); need <= 0 {
			return
		}
	}
}

// TryReserveMemory reserves bytes without blocking and reports whether it
// succeeded.
func (c *Controller) TryReserveMemory(bytes int64) bool {
	if c == nil || bytes <= 0 {
		return true
	}
	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return false
	}
	c.memUsed.Add(bytes)
	return true
}

// ReleaseMemory returns reserved bytes.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryInUse returns the reserved bytes.
func (c *Controller) MemoryInUse() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// AcquireWorker takes an encode worker slot, blocking while all are busy.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.workers.Acquire(ctx, 1); err != nil {
		return err
	}
	c.busy.Add(1)
	return nil
}

// TryAcquireWorker takes an encode worker slot without blocking.
func (c *Controller) TryAcquireWorker() bool {
	if c == nil {
		return true
	}
	if !c.workers.TryAcquire(1) {
		return false
	}
	c.busy.Add(1)
	return true
}

// ReleaseWorker returns an encode worker slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.busy.Add(-1)
	c.workers.Release(1)
}

// WaitPublish blocks until bytes may be published. Requests larger than one
// second of bandwidth are admitted in installments.
func (c *Controller) WaitPublish(ctx context.Context, bytes int) error {
	if c == nil || c.publish == nil {
		return nil
	}
	burst := c.publish.Burst()
	for bytes > 0 {
		n := min(bytes, burst)
		if err := c.publish.WaitN(ctx, n); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}

// Usage returns a snapshot of the current reservations.
func (c *Controller) Usage() Usage {
	if c == nil {
		return Usage{}
	}
	return Usage{
		MemoryInUse:  c.memUsed.Load(),
		MemoryLimit:  c.cfg.MemoryLimitBytes,
		WorkersBusy:  c.busy.Load(),
		WorkersLimit: c.cfg.MaxEncodeWorkers,
	}
}
