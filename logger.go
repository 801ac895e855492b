package memgo

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with memgo-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// LogChunkMapped logs the arrival of a new chunk.
func (l *Logger) LogChunkMapped(bytes int64, chunks uint64) {
	l.Debug("chunk mapped",
		"bytes", bytes,
		"chunks", chunks,
	)
}

// LogRewind logs a rewind operation.
func (l *Logger) LogRewind(chunks uint64, used, allocated int64) {
	l.Debug("arena rewound",
		"chunks", chunks,
		"bytes_used", used,
		"bytes_allocated", allocated,
	)
}

// LogOutOfMemory logs the fatal out-of-memory diagnostic. The fields mirror
// the allocator state at the moment of failure so post-mortems can tell a
// runaway workload from an undersized budget.
func (l *Logger) LogOutOfMemory(requested, used, allocated int64, err error) {
	l.Error("out of memory",
		"bytes_requested", requested,
		"bytes_used", used,
		"bytes_allocated", allocated,
		"error", err,
	)
}
