// SPDX-License-Identifier: MIT

package device

import (
	"fmt"
	"sync"
)

// Allocator provisions and releases buffers.
type Allocator interface {
	// Alloc returns a zero-filled buffer of n bytes.
	Alloc(n int, res Residency, label string) (*Buffer, error)
	// Free releases b. Freeing twice returns ErrBufferFreed.
	Free(b *Buffer) error
}

// HostArena is the default Allocator: every buffer is a Go byte slice.
// Device-resident buffers live in host memory as well; residency only changes
// how callers are expected to read them back.
// An optional limit makes Alloc fail with ErrOutOfMemory, which lets tests
// exercise resource exhaustion.
type HostArena struct {
	mu     sync.Mutex
	limit  int64 // 0 means unlimited
	inUse  int64
	peak   int64
	allocs int64
}

// Compile-time conformance.
var _ Allocator = (*HostArena)(nil)

// NewHostArena creates an arena; limit <= 0 means unlimited.
func NewHostArena(limit int64) *HostArena {
	if limit < 0 {
		limit = 0
	}

	return &HostArena{limit: limit}
}

// Alloc implements Allocator.
func (a *HostArena) Alloc(n int, res Residency, label string) (*Buffer, error) {
	if n < 0 {
		return nil, fmt.Errorf("Alloc(%q, %d): %w", label, n, ErrBadSize)
	}
	a.mu.Lock()
	if a.limit > 0 && a.inUse+int64(n) > a.limit {
		inUse := a.inUse
		a.mu.Unlock()
		return nil, fmt.Errorf("Alloc(%q, %d): %d of %d bytes in use: %w", label, n, inUse, a.limit, ErrOutOfMemory)
	}
	a.inUse += int64(n)
	a.allocs++
	if a.inUse > a.peak {
		a.peak = a.inUse
	}
	a.mu.Unlock()

	b := NewBuffer(label, res, make([]byte, n))
	b.owner = a

	return b, nil
}

// Free implements Allocator.
func (a *HostArena) Free(b *Buffer) error {
	if b == nil {
		return ErrNilBuffer
	}
	if b.owner != Allocator(a) {
		return fmt.Errorf("Free(%q): %w", b.label, ErrForeignBuffer)
	}
	if !b.freed.CompareAndSwap(false, true) {
		return fmt.Errorf("Free(%q): %w", b.label, ErrBufferFreed)
	}
	a.mu.Lock()
	a.inUse -= int64(len(b.data))
	a.mu.Unlock()

	return nil
}

// InUse returns the number of live bytes.
func (a *HostArena) InUse() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.inUse
}

// Peak returns the high-water mark of live bytes.
func (a *HostArena) Peak() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.peak
}

// Allocs returns the number of successful allocations.
func (a *HostArena) Allocs() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.allocs
}
