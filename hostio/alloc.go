// SPDX-License-Identifier: MIT

package hostio

import (
	"fmt"

	"github.com/katalvlaran/lvsparse/device"
	"github.com/katalvlaran/lvsparse/dtype"
	"github.com/katalvlaran/lvsparse/sparse"
)

// AllocCSRFor creates a deferred-nnz CSR descriptor with its row-pointer
// array allocated, ready for dense-to-sparse analysis.
func AllocCSRFor(dc *device.Context, rows, cols int64, it dtype.IndexType, base dtype.IndexBase, t dtype.DataType) (*sparse.SpMat, error) {
	ptr, err := allocPointers(dc, rows, it, "csr.rowPtr")
	if err != nil {
		return nil, fmt.Errorf("hostio: AllocCSRFor: %w", err)
	}

	return sparse.NewCSR(rows, cols, 0, ptr, nil, nil, it, it, base, t)
}

// AllocCSCFor creates a deferred-nnz CSC descriptor with its column-pointer
// array allocated.
func AllocCSCFor(dc *device.Context, rows, cols int64, it dtype.IndexType, base dtype.IndexBase, t dtype.DataType) (*sparse.SpMat, error) {
	ptr, err := allocPointers(dc, cols, it, "csc.colPtr")
	if err != nil {
		return nil, fmt.Errorf("hostio: AllocCSCFor: %w", err)
	}

	return sparse.NewCSC(rows, cols, 0, ptr, nil, nil, it, it, base, t)
}

// AllocCOOFor creates a deferred-nnz COO descriptor (no arrays needed yet).
func AllocCOOFor(dc *device.Context, rows, cols int64, it dtype.IndexType, base dtype.IndexBase, t dtype.DataType) (*sparse.SpMat, error) {
	if dc == nil {
		return nil, fmt.Errorf("hostio: AllocCOOFor: %w", ErrNilContext)
	}

	return sparse.NewCOO(rows, cols, 0, nil, nil, nil, it, base, t)
}

func allocPointers(dc *device.Context, major int64, it dtype.IndexType, label string) (*device.Buffer, error) {
	if dc == nil {
		return nil, ErrNilContext
	}
	if major < 0 || !it.Valid() {
		return nil, sparse.ErrBadShape
	}

	return dc.Alloc(int(major+1)*it.Size(), label)
}

// AttachArrays allocates index and value arrays for the current nnz of s
// (as set by analysis) and attaches them, keeping the pointer array.
func AttachArrays(dc *device.Context, s *sparse.SpMat) error {
	if dc == nil {
		return fmt.Errorf("hostio: AttachArrays: %w", ErrNilContext)
	}
	nnz := s.NNZ()
	idx := int(nnz) * s.IndexType().Size()
	alloc := func(n int, label string) (*device.Buffer, error) {
		return dc.Alloc(n, s.Format().String()+"."+label)
	}
	values, err := alloc(int(nnz)*s.DataType().Size(), "values")
	if err != nil {
		return fmt.Errorf("hostio: AttachArrays: %w", err)
	}
	switch s.Format() {
	case sparse.CSR:
		colInd, err := alloc(idx, "colInd")
		if err != nil {
			return fmt.Errorf("hostio: AttachArrays: %w", err)
		}
		return s.CSRSetPointers(s.Offsets(), colInd, values)
	case sparse.CSC:
		rowInd, err := alloc(idx, "rowInd")
		if err != nil {
			return fmt.Errorf("hostio: AttachArrays: %w", err)
		}
		return s.CSCSetPointers(s.Offsets(), rowInd, values)
	default:
		rowInd, err := alloc(idx, "rowInd")
		if err != nil {
			return fmt.Errorf("hostio: AttachArrays: %w", err)
		}
		colInd, err := alloc(idx, "colInd")
		if err != nil {
			return fmt.Errorf("hostio: AttachArrays: %w", err)
		}
		return s.COOSetPointers(rowInd, colInd, values)
	}
}
