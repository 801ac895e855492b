package seq

import "math"

const (
	// DefaultInitialCapacity is the element capacity of a sequence's first node.
	DefaultInitialCapacity = 16
	// DefaultGrowthFactor sizes each successor node relative to its predecessor.
	DefaultGrowthFactor = 1.5
)

type options struct {
	initialCapacity int
	growthFactor    float64
}

// Option is a configuration option for a sequence.
type Option func(*options)

// WithInitialCapacity sets the capacity of the first node, in elements
// (bytes for the compressed sequence, which raises n to at least 16). If
// n <= 0 the default is kept.
func WithInitialCapacity(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.initialCapacity = n
		}
	}
}

// WithGrowthFactor sets the node growth factor. Successor nodes hold
// ceil(capacity * factor) elements, and at least one element more than their
// predecessor. If f < 1 the default is kept.
func WithGrowthFactor(f float64) Option {
	return func(o *options) {
		if f >= 1 {
			o.growthFactor = f
		}
	}
}

func applyOptions(opts []Option) options {
	o := options{
		initialCapacity: DefaultInitialCapacity,
		growthFactor:    DefaultGrowthFactor,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// grow returns the capacity of a successor node.
func grow(capacity int, factor float64) int {
	next := int(math.Ceil(float64(capacity) * factor))
	if next <= capacity {
		next = capacity + 1
	}
	return next
}
