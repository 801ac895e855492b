package memgo

import "errors"

var (
	// ErrOutOfMemory is returned (or logged before termination, depending on
	// the configured policy) when the host allocator refuses a chunk request.
	// Errors carrying the underlying cause wrap this sentinel; test with
	// errors.Is.
	ErrOutOfMemory = errors.New("memgo: out of memory")

	// ErrInvalidSize is returned when an allocation size is negative.
	ErrInvalidSize = errors.New("memgo: invalid allocation size")

	// ErrInvalidAlignment is returned when an alignment is not a power of two.
	ErrInvalidAlignment = errors.New("memgo: alignment must be a power of two")
)
