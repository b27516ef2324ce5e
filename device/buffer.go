// SPDX-License-Identifier: MIT

package device

import (
	"fmt"
	"sync/atomic"
)

// Residency tells where a buffer's bytes live.
type Residency uint8

const (
	// Host memory is directly addressable by the caller's goroutines.
	Host Residency = iota
	// Device memory is only read back through an ordered copy.
	Device
)

// String implements fmt.Stringer.
func (r Residency) String() string {
	switch r {
	case Host:
		return "host"
	case Device:
		return "device"
	default:
		return fmt.Sprintf("residency(%d)", uint8(r))
	}
}

// bufferSeq hands out process-unique buffer ids.
var bufferSeq atomic.Uint64

// Buffer is a caller-owned byte region.
// Buffers are created by an Allocator and are never freed by compute kernels.
type Buffer struct {
	id    uint64
	label string
	res   Residency
	data  []byte
	owner Allocator
	freed atomic.Bool
}

// NewBuffer wraps an existing byte slice without copying it.
// The buffer has no owning allocator, so no Allocator will free it.
func NewBuffer(label string, res Residency, data []byte) *Buffer {
	return &Buffer{id: bufferSeq.Add(1), label: label, res: res, data: data}
}

// ID is a process-unique identity used to bind stage plans to a buffer.
func (b *Buffer) ID() uint64 { return b.id }

// Label returns the debugging label given at allocation.
func (b *Buffer) Label() string { return b.label }

// Residency returns Host or Device.
func (b *Buffer) Residency() Residency { return b.res }

// Len returns the size in bytes.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}

	return len(b.data)
}

// Freed reports whether the buffer was released.
func (b *Buffer) Freed() bool { return b.freed.Load() }

// Bytes exposes the backing storage to kernels running on the stream.
// Host code must not read Device buffers through Bytes while work that writes
// them is in flight; use Context.CopyToHost instead. A nil buffer has no bytes.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}

	return b.data
}

// Check returns ErrNilBuffer or ErrBufferFreed for unusable buffers.
func (b *Buffer) Check() error {
	if b == nil {
		return ErrNilBuffer
	}
	if b.freed.Load() {
		return fmt.Errorf("buffer %q: %w", b.label, ErrBufferFreed)
	}

	return nil
}

// String implements fmt.Stringer.
func (b *Buffer) String() string {
	return fmt.Sprintf("Buffer(%s#%d, %s, %dB)", b.label, b.id, b.res, len(b.data))
}
