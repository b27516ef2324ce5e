// SPDX-License-Identifier: MIT

// Package sparse: functional configuration of a Handle.
//
// Design goals (same rules as the rest of the module):
//   - Deterministic behavior: no global state; defaults are documented constants.
//   - Safe by construction: WithX constructors panic only on nonsensical values.
//   - Options are unexported; public entry points accept ...Option.
package sparse

import "log/slog"

// ---------- Defaults (single source of truth) ----------

const (
	// DefaultWorkers is the kernel parallelism; 0 means GOMAXPROCS.
	DefaultWorkers = 0

	// DefaultIndexChecks disables the extra duplicate/order checks inside
	// kernels: operations trust the sparse index invariants.
	// Out-of-range indices are always reported as compute failures.
	DefaultIndexChecks = false

	// DefaultSpVVBlock is the number of stored entries reduced per SpVV block.
	// It determines the SpVV scratch estimate.
	DefaultSpVVBlock = 1024
)

const (
	panicWorkersInvalid   = "sparse: WithWorkers: workers must be >= 0"
	panicSpVVBlockInvalid = "sparse: WithSpVVBlock: block must be >= 1"
)

// Option mutates Options. Safe to apply repeatedly.
type Option func(*Options)

// Options is the resolved configuration of a Handle.
type Options struct {
	workers     int
	indexChecks bool
	spvvBlock   int
	log         *slog.Logger
}

func defaultOptions() Options {
	return Options{
		workers:     DefaultWorkers,
		indexChecks: DefaultIndexChecks,
		spvvBlock:   DefaultSpVVBlock,
	}
}

// gatherOptions applies opts over the defaults.
func gatherOptions(opts ...Option) Options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	return o
}

// WithWorkers sets the number of goroutines a kernel launch may use.
// Panics on negative values; 0 selects GOMAXPROCS.
func WithWorkers(n int) Option {
	if n < 0 {
		panic(panicWorkersInvalid)
	}

	return func(o *Options) { o.workers = n }
}

// WithIndexChecks enables duplicate detection for SpVV and ascending-order
// checks of C's pattern for SDDMM. Violations fail the kernel with
// ErrComputeFailure instead of producing unspecified results.
func WithIndexChecks(on bool) Option {
	return func(o *Options) { o.indexChecks = on }
}

// WithSpVVBlock sets the SpVV reduction block. Panics when n < 1.
//
// AI-Hints:
//   - The block changes the SpVV scratch estimate; size and compute must use
//     handles configured with the same block.
func WithSpVVBlock(n int) Option {
	if n < 1 {
		panic(panicSpVVBlockInvalid)
	}

	return func(o *Options) { o.spvvBlock = n }
}

// WithLogger routes stage diagnostics to l (Debug level). Nil falls back to
// the compute context logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.log = l }
}
