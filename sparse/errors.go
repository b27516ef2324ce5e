// SPDX-License-Identifier: MIT
// Package sparse: sentinel error set.
//
// Every exported operation returns (possibly wrapped) sentinels from this file;
// callers and tests match them with errors.Is. Errors are grouped into four
// kinds, and every refined sentinel also matches its kind:
//
//	ErrInvalidArgument       nil handle/descriptor, bad shape, stage order, stale scratch
//	ErrNotSupported          type combination, operator, format or algorithm
//	ErrInsufficientResources scratch smaller than sized
//	ErrComputeFailure        kernel fault, reported at the next synchronization
//
// No operation panics on user-triggered conditions; option constructors panic
// on nonsensical values (programmer error), as documented on each of them.

package sparse

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	// ErrInvalidArgument covers malformed inputs and protocol misuse.
	ErrInvalidArgument = errors.New("sparse: invalid argument")

	// ErrNotSupported covers well-formed requests the layer does not implement.
	ErrNotSupported = errors.New("sparse: not supported")

	// ErrInsufficientResources covers scratch/array capacity shortfalls.
	ErrInsufficientResources = errors.New("sparse: insufficient resources")

	// ErrComputeFailure marks a fault raised while a kernel executed on the stream.
	ErrComputeFailure = errors.New("sparse: compute failure")
)

// kind builds a refined sentinel that also matches its kind via errors.Is.
func kind(k error, msg string) error { return fmt.Errorf("%w: %s", k, msg) }

// Refined InvalidArgument sentinels.
var (
	ErrNilHandle      = kind(ErrInvalidArgument, "nil handle or compute context")
	ErrNilDescriptor  = kind(ErrInvalidArgument, "nil descriptor or array")
	ErrBadShape       = kind(ErrInvalidArgument, "invalid shape")
	ErrBadLeadingDim  = kind(ErrInvalidArgument, "leading dimension smaller than contiguous extent")
	ErrBadLayout      = kind(ErrInvalidArgument, "invalid order, format, base or value type tag")
	ErrBadIndexType   = kind(ErrInvalidArgument, "invalid index type")
	ErrArrayTooSmall  = kind(ErrInvalidArgument, "array smaller than its declared extent")
	ErrShapeMismatch  = kind(ErrInvalidArgument, "operand shapes are incompatible")
	ErrWrongFormat    = kind(ErrInvalidArgument, "descriptor has a different sparse format")
	ErrWrongResidency = kind(ErrInvalidArgument, "buffer residency does not match the scalar kind")
	ErrIndexOverflow  = kind(ErrInvalidArgument, "index type cannot represent the extent")
	ErrInvalidState   = kind(ErrInvalidArgument, "operation called out of stage order")
	ErrStaleScratch   = kind(ErrInvalidArgument, "scratch was prepared for a different operand configuration")
)

// Refined NotSupported sentinels.
var (
	ErrUnsupportedTypes     = kind(ErrNotSupported, "value/compute type combination")
	ErrUnsupportedOperation = kind(ErrNotSupported, "operator")
	ErrUnsupportedFormat    = kind(ErrNotSupported, "sparse format")
	ErrUnsupportedAlgorithm = kind(ErrNotSupported, "algorithm")
)

// ErrBufferTooSmall is returned when a scratch buffer is smaller than the estimate.
var ErrBufferTooSmall = kind(ErrInsufficientResources, "scratch buffer smaller than sized")

// ErrUnsynchronized is returned by HostValue.Value while a write to it is still in flight.
var ErrUnsynchronized = errors.New("sparse: result read before the stream completed it")

// Kernel-side faults; they reach callers wrapped in ErrComputeFailure.
var (
	errIndexOutOfRange = errors.New("stored index out of range")
	errDuplicateIndex  = errors.New("duplicate stored index")
	errUnsortedIndex   = errors.New("stored indices not ascending")
	errDenseChanged    = errors.New("dense operand changed between analysis and conversion")
)

// sparseErrorf wraps err with an operation tag, preserving it for errors.Is.
// Use only with err != nil.
func sparseErrorf(tag string, err error) error {
	return fmt.Errorf("%s: %w", tag, err)
}
