// Package seq provides grow-only concurrent sequences backed by a memgo
// arena: a generic append-only array and a varint-compressed sequence of
// uint32 values.
//
// Both containers store their payloads in arena memory and keep only the
// node headers on the Go heap. Appends are lock-free; iteration is wait-free
// and observes every append that was synchronized-with before it started
// (joining the appending goroutines is the usual way). An iteration racing
// in-flight appends sees a prefix of the sequence; such appends appear at
// most one iteration later. Iterators and elements are invalidated by the
// arena's Rewind, and a sequence must not outlive the arena it was built on.
//
// Because arena memory is invisible to the garbage collector, element types
// must not contain pointers; NewArray rejects types that do.
package seq
