// Package memgo provides a concurrent arena allocator and the append-only
// containers built on top of it. It is the memory-management core for
// indexing workloads that allocate many small objects sharing one coarse
// lifetime: build everything, consume the result, rewind.
//
// # Concurrency Model
//
// Arena supports concurrent allocation (Alloc, AllocContext) from any number
// of goroutines but does NOT support concurrent Rewind/Close. The typical
// usage pattern is:
//   - Create one arena per request or batch
//   - Allocate from multiple goroutines while building (SAFE)
//   - Call Rewind() once when the batch is discarded (NOT concurrent with
//     allocations or with iteration of sequences built on the arena)
//
// Allocation is lock-free: the fast path is a single CAS on the current
// chunk's cursor, and a failed CAS always means another goroutine made
// progress.
//
// # Memory Management
//
// The arena obtains large chunks from the operating system as anonymous
// mappings and bump-allocates small regions out of them. Individual regions
// are never freed; Rewind() unmaps every chunk in one operation. Chunks are
// demand-paged, so a large default block size costs only the pages actually
// touched. Memory handed out by the arena is invisible to the garbage
// collector: do not store Go pointers in it.
//
// # Sequences
//
// The seq subpackage provides grow-only containers over an arena: a generic
// append-only array (seq.Array) and a varint-compressed sequence of uint32
// values (seq.Uint32). Both are lock-free for concurrent appends and are
// invalidated, together with every outstanding allocation, by Rewind().
package memgo
