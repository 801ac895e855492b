package memgo

// Option is a configuration option for Arena.
type Option func(*Arena)

// WithBlockSize sets the size in bytes of the chunks the arena requests from
// the host allocator. Larger blocks mean fewer chunk installations; because
// chunks are demand-paged, an oversized block only costs the pages actually
// touched. If n <= 0 the default is kept.
func WithBlockSize(n int) Option {
	return func(a *Arena) {
		if n > 0 {
			a.blockSize = n
		}
	}
}

// WithLogger sets the logger used for chunk growth, rewind and the fatal
// out-of-memory diagnostic. If nil is passed, the default logger is kept.
func WithLogger(logger *Logger) Option {
	return func(a *Arena) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithMemoryAcquirer sets the memory acquirer for the arena. Every chunk
// request is cleared with the acquirer first and handed back on rewind;
// see the resource package for a semaphore-backed implementation.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(a *Arena) {
		a.acquirer = acquirer
	}
}

// WithMetricsCollector sets the metrics collector. If nil is passed, metrics
// collection is disabled.
func WithMetricsCollector(collector MetricsCollector) Option {
	return func(a *Arena) {
		if collector == nil {
			collector = NoopMetricsCollector{}
		}
		a.collector = collector
	}
}

// WithErrorPropagation makes Alloc surface out-of-memory conditions as
// errors instead of terminating the process. The caller then owns cleanup:
// every sequence operation built on the arena reports the same error from
// its own append path.
func WithErrorPropagation() Option {
	return func(a *Arena) {
		a.propagate = true
	}
}
