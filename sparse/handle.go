// SPDX-License-Identifier: MIT

package sparse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/katalvlaran/lvsparse/device"
)

// Handle binds the library configuration to a compute context. All operations
// of one handle are issued on the context's single ordered stream.
// A Handle holds no per-operation state; stage state lives on descriptors.
type Handle struct {
	dc   *device.Context
	opts Options
	log  *slog.Logger
}

// NewHandle creates a handle over dc.
func NewHandle(dc *device.Context, opts ...Option) (*Handle, error) {
	if dc == nil {
		return nil, sparseErrorf("NewHandle", ErrNilHandle)
	}
	o := gatherOptions(opts...)
	log := o.log
	if log == nil {
		log = dc.Logger()
	}

	return &Handle{dc: dc, opts: o, log: log.With("lib", "sparse")}, nil
}

// Context returns the compute context of the handle.
func (h *Handle) Context() *device.Context { return h.dc }

// Synchronize waits for everything issued on the handle's stream and reports
// the first kernel fault (matching ErrComputeFailure and device.ErrDeviceFault).
func (h *Handle) Synchronize(ctx context.Context) error {
	if err := h.check(); err != nil {
		return sparseErrorf("Synchronize", err)
	}

	return h.dc.Synchronize(ctx)
}

// check guards nil receivers.
func (h *Handle) check() error {
	if h == nil || h.dc == nil {
		return ErrNilHandle
	}

	return nil
}

// submit issues a kernel; its error or panic becomes a stream fault tagged
// ErrComputeFailure.
func (h *Handle) submit(name string, kernel func() error) (*device.Token, error) {
	return h.submitOrSkip(name, kernel, nil)
}

// submitOrSkip is submit with onSkip run when the stream skips the kernel
// after an earlier fault.
func (h *Handle) submitOrSkip(name string, kernel func() error, onSkip func(error)) (*device.Token, error) {
	task := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: %s: panic: %v", ErrComputeFailure, name, r)
			}
		}()
		if err = kernel(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrComputeFailure, name, err)
		}
		return nil
	}
	if onSkip == nil {
		return h.dc.Submit(name, task)
	}

	return h.dc.SubmitOrSkip(name, task, onSkip)
}

// traceStage logs a stage transition.
func (h *Handle) traceStage(routine Routine, st stage, attrs ...any) {
	h.log.Debug("stage", append([]any{"routine", routine.String(), "stage", st.String()}, attrs...)...)
}
