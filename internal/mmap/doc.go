// Package mmap provides anonymous memory mappings used as the arena's host
// allocator.
//
// MapAnon() creates a read-write anonymous mapping; Mapping.Close() returns
// it to the operating system. Anonymous mappings are demand-paged, so a large
// mapping only consumes physical memory for the pages actually touched, and
// they are invisible to the Go garbage collector, which keeps GC scan times
// independent of arena size.
package mmap
