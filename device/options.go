// SPDX-License-Identifier: MIT

package device

import (
	"io"
	"log/slog"
)

// Defaults for NewContext.
const (
	// DefaultQueueCapacity is the initial capacity of the stream queue (it grows on demand).
	DefaultQueueCapacity = 64

	// DefaultOrdinal is the device ordinal reported by a context.
	DefaultOrdinal = 0
)

const (
	panicQueueCapacityInvalid = "device: WithQueueCapacity: capacity must be >= 0"
	panicOrdinalInvalid       = "device: WithOrdinal: ordinal must be >= 0"
)

// Option configures a Context.
type Option func(*options)

type options struct {
	alloc    Allocator
	log      *slog.Logger
	ordinal  int
	capacity int
}

func defaultOptions() options {
	return options{
		ordinal:  DefaultOrdinal,
		capacity: DefaultQueueCapacity,
	}
}

// WithAllocator replaces the default unlimited HostArena.
// A nil allocator keeps the default.
func WithAllocator(a Allocator) Option {
	return func(o *options) {
		if a != nil {
			o.alloc = a
		}
	}
}

// WithLogger routes stream and context diagnostics to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithOrdinal sets the reported device ordinal. Panics on negative values.
func WithOrdinal(n int) Option {
	if n < 0 {
		panic(panicOrdinalInvalid)
	}

	return func(o *options) { o.ordinal = n }
}

// WithQueueCapacity sets the initial queue capacity. Panics on negative values.
func WithQueueCapacity(n int) Option {
	if n < 0 {
		panic(panicQueueCapacityInvalid)
	}

	return func(o *options) { o.capacity = n }
}

// discardLogger is the logger used when none is configured.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
