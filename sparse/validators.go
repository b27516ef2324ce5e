// SPDX-License-Identifier: MIT

// Package sparse: shared, allocation-free validation helpers.
// Each helper returns a bare sentinel (possibly with context); callers add
// the operation tag.
package sparse

import (
	"fmt"
	"math"

	"github.com/katalvlaran/lvsparse/device"
	"github.com/katalvlaran/lvsparse/dtype"
)

// checkArray ensures buf holds n elements of size bytes. n == 0 accepts nil.
func checkArray(name string, buf *device.Buffer, n int64, size int) error {
	if n == 0 {
		return nil
	}
	if buf == nil {
		return fmt.Errorf("%s: %w", name, ErrNilDescriptor)
	}
	if err := buf.Check(); err != nil {
		return fmt.Errorf("%s: %w: %w", name, ErrNilDescriptor, err)
	}
	if n > int64(math.MaxInt/size) || int64(buf.Len()) < n*int64(size) {
		return fmt.Errorf("%s: %d bytes for %d elements: %w", name, buf.Len(), n, ErrArrayTooSmall)
	}

	return nil
}

// checkIndexRange ensures it can represent v.
func checkIndexRange(it dtype.IndexType, v int64) error {
	if v > it.Max() {
		return fmt.Errorf("%d does not fit %v: %w", v, it, ErrIndexOverflow)
	}

	return nil
}

// checkScratch enforces the size contract. A nil scratch is accepted when
// the estimate is zero.
func checkScratch(scratch *device.Buffer, need int) error {
	if scratch == nil {
		if need == 0 {
			return nil
		}
		return fmt.Errorf("scratch: %w", ErrNilDescriptor)
	}
	if err := scratch.Check(); err != nil {
		return fmt.Errorf("scratch: %w: %w", ErrNilDescriptor, err)
	}
	if scratch.Len() < need {
		return fmt.Errorf("scratch %d < %d bytes: %w", scratch.Len(), need, ErrBufferTooSmall)
	}

	return nil
}

// bufferID is the identity recorded in stage plans; 0 for nil.
func bufferID(buf *device.Buffer) uint64 {
	if buf == nil {
		return 0
	}

	return buf.ID()
}

// checkBuffer ensures a buffer referenced by a descriptor is still usable.
func checkBuffer(name string, buf *device.Buffer, needed bool) error {
	if !needed {
		return nil
	}
	if err := buf.Check(); err != nil {
		return fmt.Errorf("%s: %w: %w", name, ErrNilDescriptor, err)
	}

	return nil
}

// opDims returns the shape of op(A).
func opDims(op Op, a *DnMat) (rows, cols int64) {
	if op == Transpose {
		return a.cols, a.rows
	}

	return a.rows, a.cols
}
