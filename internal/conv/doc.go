// Package conv provides checked integer conversions.
//
// The arena mixes signed cursors (sync/atomic) with unsigned statistics
// counters; these helpers make every narrowing or sign-changing conversion
// explicit and overflow-checked.
package conv
