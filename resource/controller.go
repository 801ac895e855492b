// Package resource provides a process-wide budget for arena-managed memory.
//
// A Controller implements memgo.MemoryAcquirer: arenas ask it for permission
// before mapping a chunk and hand the bytes back on rewind. One controller is
// typically shared by every arena in an indexing process so that the sum of
// all arenas stays under a configured ceiling.
package resource

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for arena-managed memory.
	// If 0, no hard limit is enforced (only tracking).
	MemoryLimitBytes int64

	// ChunkBytesPerSec caps how fast chunks may be mapped in. Smoothing
	// chunk acquisition avoids latency spikes when many arenas grow at
	// once. If 0, unlimited.
	ChunkBytesPerSec int64
}

// Controller tracks and limits arena memory.
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	chunkLimiter *rate.Limiter // nil if unlimited
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	c := &Controller{cfg: cfg}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.ChunkBytesPerSec > 0 {
		c.chunkLimiter = rate.NewLimiter(rate.Limit(cfg.ChunkBytesPerSec), int(cfg.ChunkBytesPerSec))
	}

	return c
}

// AcquireMemory attempts to reserve memory for a chunk.
// If a hard limit is configured and usage would exceed it,
// this blocks until memory is available or ctx is canceled.
func (c *Controller) AcquireMemory(ctx context.Context, bytes int64) error {
	if c == nil {
		return nil
	}
	if bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if err := c.memSem.Acquire(ctx, bytes); err != nil {
			return err
		}
	}

	if c.chunkLimiter != nil {
		burst := int64(c.chunkLimiter.Burst())
		// A chunk larger than the burst can never pass WaitN; let it
		// through after a single full-burst wait instead of erroring.
		n := bytes
		if n > burst {
			n = burst
		}
		if err := c.chunkLimiter.WaitN(ctx, int(n)); err != nil {
			if c.memSem != nil {
				c.memSem.Release(bytes)
			}
			return err
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// TryAcquireMemory attempts to reserve memory without blocking.
// Returns true if acquired, false if the limit would be exceeded.
func (c *Controller) TryAcquireMemory(bytes int64) bool {
	if c == nil {
		return true
	}
	if bytes <= 0 {
		return true
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return false
		}
	}

	c.memUsed.Add(bytes)
	return true
}

// ReleaseMemory returns previously acquired memory to the budget.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil {
		return
	}
	if bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}

	c.memUsed.Add(-bytes)
}

// MemoryUsed returns the currently reserved bytes.
func (c *Controller) MemoryUsed() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured hard limit (0 = unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}
