//go:build arm64

package memgo

// On arm64 every allocation is promoted to word alignment; unaligned
// multi-byte loads can fault there.
const minAlignment = 8
