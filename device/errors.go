// SPDX-License-Identifier: MIT

package device

import "errors"

// Sentinel errors. Callers match them with errors.Is.
var (
	// ErrStreamClosed is returned when work is submitted to a closed stream.
	ErrStreamClosed = errors.New("device: stream closed")

	// ErrDeviceFault marks a task that failed or panicked while executing.
	// It surfaces at the next Synchronize or Token.Wait, never at submission.
	ErrDeviceFault = errors.New("device: execution fault")

	// ErrSkipped is the token error of tasks skipped after an earlier fault.
	ErrSkipped = errors.New("device: task skipped after earlier fault")

	// ErrOutOfMemory is returned by allocators that exceed their byte limit.
	ErrOutOfMemory = errors.New("device: out of memory")

	// ErrBufferFreed is returned when a freed buffer is used.
	ErrBufferFreed = errors.New("device: buffer already freed")

	// ErrBadSize is returned for negative sizes or out-of-range copies.
	ErrBadSize = errors.New("device: invalid size or range")

	// ErrNilBuffer is returned when a nil *Buffer is passed.
	ErrNilBuffer = errors.New("device: nil buffer")

	// ErrForeignBuffer is returned when a buffer is freed by an allocator that did not create it.
	ErrForeignBuffer = errors.New("device: buffer owned by another allocator")
)
