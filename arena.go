package memgo

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/hupe1980/memgo/internal/conv"
	"github.com/hupe1980/memgo/internal/mmap"
)

// MemoryAcquirer is an interface for acquiring memory.
type MemoryAcquirer interface {
	AcquireMemory(ctx context.Context, amount int64) error
	ReleaseMemory(amount int64)
}

// DefaultBlockSize is the default chunk size requested from the host
// allocator (1 GiB). Chunks are demand-paged anonymous mappings, so small
// workloads still pay only for the pages they touch.
const DefaultBlockSize = 1 << 30

// acquireTimeout bounds the wait on a MemoryAcquirer when the caller's
// context carries no deadline of its own.
const acquireTimeout = 100 * time.Millisecond

// Stats tracks arena memory usage metrics.
//
// Note on semantics:
//   - BytesAllocated: bytes currently held from the host allocator
//   - BytesUsed: sum of requested allocation sizes (alignment padding excluded)
//   - ActiveChunks: number of chunks currently held
//   - ChunksAllocated: cumulative chunks ever obtained
//   - TotalAllocs: cumulative allocation count
type Stats struct {
	ChunksAllocated uint64
	BytesAllocated  uint64
	BytesUsed       uint64
	ActiveChunks    uint64
	TotalAllocs     uint64
}

type atomicStats struct {
	ChunksAllocated atomic.Uint64
	ActiveChunks    atomic.Uint64
	TotalAllocs     atomic.Uint64
}

// chunk is one slab obtained from the host allocator. Chunks form a stack:
// top -> top.next -> ... -> nil. A chunk, once linked, is never unlinked
// until Rewind frees the whole stack.
type chunk struct {
	data     []byte        // payload slab, mmap-backed
	mapping  *mmap.Mapping // owning mapping, closed at rewind
	cursor   atomic.Int64  // offset of the next free byte within data
	next     *chunk        // previously-current chunk, immutable after install
	capacity int64         // bytes obtained from the host allocator
}

// Arena is a thread-safe bump allocator. Small allocations are carved out of
// large chunks with a single CAS; individual allocations are never freed and
// the whole arena is reclaimed by one Rewind.
type Arena struct {
	blockSize int
	top       atomic.Pointer[chunk]
	used      atomic.Int64 // bytes handed out (requested sizes only)
	allocated atomic.Int64 // bytes obtained from the host allocator
	stats     atomicStats
	logger    *Logger
	collector MetricsCollector
	acquirer  MemoryAcquirer
	propagate bool
	tracked   trackedState
}

// New creates a new Arena. The arena is empty at construction; the first
// chunk is mapped lazily on first allocation.
func New(opts ...Option) *Arena {
	a := &Arena{
		blockSize: DefaultBlockSize,
		logger:    NewLogger(nil),
		collector: NoopMetricsCollector{},
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Alloc returns a byte region of the given size whose address is a multiple
// of align. align must be a power of two; it is promoted to the platform
// minimum where unaligned loads fault. The region is valid until the next
// Rewind. Concurrent callers receive non-overlapping regions.
//
// size == 0 returns an empty slice positioned at the aligned cursor; its
// base may be shared with the next allocation.
func (a *Arena) Alloc(size, align int) ([]byte, error) {
	return a.AllocContext(context.Background(), size, align)
}

// AllocContext allocates with a context. The context only bounds the wait on
// a configured MemoryAcquirer; the allocation itself never blocks.
func (a *Arena) AllocContext(ctx context.Context, size, align int) ([]byte, error) {
	if size < 0 {
		return nil, ErrInvalidSize
	}
	if align < 1 || align&(align-1) != 0 {
		return nil, ErrInvalidAlignment
	}
	if align < minAlignment {
		align = minAlignment
	}

	if trackedMode {
		return a.allocTracked(size, align)
	}

	for {
		top := a.top.Load()
		if top != nil {
			cursor := top.cursor.Load()
			base := uintptr(unsafe.Pointer(unsafe.SliceData(top.data)))
			pad := realign(base+uintptr(cursor), align)
			next := cursor + pad + int64(size)

			if next <= int64(len(top.data)) {
				if !top.cursor.CompareAndSwap(cursor, next) {
					continue // another goroutine advanced the cursor
				}

				a.used.Add(int64(size))
				a.stats.TotalAllocs.Add(1)
				a.collector.RecordAlloc(int64(size))

				start := cursor + pad
				return top.data[start:next:next], nil
			}
		}

		// The current chunk cannot satisfy the request (or there is none
		// yet). Map a fresh one and race to install it.
		if err := a.addChunk(ctx, top, size+align); err != nil {
			return nil, a.fail(int64(size), err)
		}
	}
}

// addChunk obtains a chunk large enough for minBytes from the host allocator
// and tries to install it as the new top. Losing the install race is not an
// error: the chunk is returned to the host and the caller retries against
// the winner's chunk.
func (a *Arena) addChunk(ctx context.Context, observed *chunk, minBytes int) error {
	request := a.blockSize
	if minBytes > request {
		request = minBytes
	}

	if a.acquirer != nil {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, acquireTimeout)
			defer cancel()
		}
		if err := a.acquirer.AcquireMemory(ctx, int64(request)); err != nil {
			return err
		}
	}

	mapping, err := mmap.MapAnon(request)
	if err != nil {
		if a.acquirer != nil {
			a.acquirer.ReleaseMemory(int64(request))
		}
		return err
	}

	c := &chunk{
		data:     mapping.Bytes(),
		mapping:  mapping,
		next:     observed,
		capacity: int64(request),
	}

	if !a.top.CompareAndSwap(observed, c) {
		// A concurrent allocator already installed one.
		_ = mapping.Close()
		if a.acquirer != nil {
			a.acquirer.ReleaseMemory(int64(request))
		}
		return nil
	}

	a.allocated.Add(int64(request))
	a.stats.ChunksAllocated.Add(1)
	a.stats.ActiveChunks.Add(1)
	a.collector.RecordChunk(int64(request))
	a.logger.LogChunkMapped(int64(request), a.stats.ActiveChunks.Load())

	return nil
}

// fail applies the out-of-memory policy: log a diagnostic and terminate, or
// wrap and return when error propagation was selected at construction.
func (a *Arena) fail(requested int64, cause error) error {
	err := fmt.Errorf("%w: %d bytes requested, %d bytes used, %d bytes allocated: %w",
		ErrOutOfMemory, requested, a.used.Load(), a.allocated.Load(), cause)

	if a.propagate {
		return err
	}

	a.logger.LogOutOfMemory(requested, a.used.Load(), a.allocated.Load(), cause)
	os.Exit(1)
	return err // unreachable
}

// Rewind releases every chunk back to the host allocator and resets all
// counters. Every pointer previously returned by the arena is dangling
// afterwards. Rewind must not be called concurrently with any other arena
// operation, including iteration of sequences whose nodes it owns.
func (a *Arena) Rewind() {
	if trackedMode {
		a.rewindTracked()
		return
	}

	var chunks uint64
	var released int64
	for c := a.top.Load(); c != nil; c = c.next {
		chunks++
		released += c.capacity
		_ = c.mapping.Close()
	}

	a.top.Store(nil)
	used := a.used.Swap(0)
	allocated := a.allocated.Swap(0)
	a.stats.ActiveChunks.Store(0)

	if a.acquirer != nil && released > 0 {
		a.acquirer.ReleaseMemory(released)
	}

	a.collector.RecordRewind(chunks, allocated)
	a.logger.LogRewind(chunks, used, allocated)
}

// Close rewinds the arena. Destruction is equivalent to rewind; the arena
// stays usable and maps fresh chunks if allocated from again.
func (a *Arena) Close() error {
	a.Rewind()
	return nil
}

// BytesUsed returns the cumulative bytes handed out since the last rewind.
// The counter tracks requested sizes only: alignment padding is consumed
// from the chunks but not reflected here, so this is logical demand, not
// physical consumption. Under concurrent allocation the value may be
// transiently stale; it is exact in quiescence.
func (a *Arena) BytesUsed() int64 {
	return a.used.Load()
}

// BytesAllocated returns the bytes currently obtained from the host
// allocator. Under concurrent allocation the value may be transiently
// stale; it is exact in quiescence.
func (a *Arena) BytesAllocated() int64 {
	return a.allocated.Load()
}

// Stats returns the current arena statistics.
func (a *Arena) Stats() Stats {
	usedU64, _ := conv.Int64ToUint64(a.used.Load())
	allocatedU64, _ := conv.Int64ToUint64(a.allocated.Load())
	return Stats{
		ChunksAllocated: a.stats.ChunksAllocated.Load(),
		BytesAllocated:  allocatedU64,
		BytesUsed:       usedU64,
		ActiveChunks:    a.stats.ActiveChunks.Load(),
		TotalAllocs:     a.stats.TotalAllocs.Load(),
	}
}

func (a *Arena) String() string {
	stats := a.Stats()
	return fmt.Sprintf(
		"Arena{chunks: %d, allocated: %.2f MB, used: %.2f MB, allocs: %d}",
		stats.ActiveChunks,
		float64(stats.BytesAllocated)/(1024*1024),
		float64(stats.BytesUsed)/(1024*1024),
		stats.TotalAllocs,
	)
}

// realign returns the padding needed to move addr up to the next multiple
// of align. align must be a power of two.
func realign(addr uintptr, align int) int64 {
	mask := uintptr(align - 1)
	return int64((uintptr(align) - (addr & mask)) & mask)
}
