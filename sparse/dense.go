// SPDX-License-Identifier: MIT

package sparse

import (
	"fmt"

	"github.com/katalvlaran/lvsparse/device"
	"github.com/katalvlaran/lvsparse/dtype"
)

// DnMat is a dense matrix view over a caller-owned buffer.
// The view is immutable; only the bytes it points at change.
type DnMat struct {
	rows, cols, ld int64
	order          Order
	typ            dtype.DataType
	values         *device.Buffer
}

// NewDnMat validates and creates a dense matrix view.
//
// Contract:
//   - rows, cols >= 0; order and t valid.
//   - ld >= cols (RowMajor) or ld >= rows (ColMajor), and ld >= 1.
//   - values covers (major-1)*ld + minor elements when rows*cols > 0.
//
// Complexity: O(1).
func NewDnMat(rows, cols, ld int64, values *device.Buffer, t dtype.DataType, order Order) (*DnMat, error) {
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("NewDnMat(%dx%d): %w", rows, cols, ErrBadShape)
	}
	if !order.Valid() || !t.Valid() {
		return nil, fmt.Errorf("NewDnMat(order=%v, type=%v): %w", order, t, ErrBadLayout)
	}
	a := &DnMat{rows: rows, cols: cols, ld: ld, order: order, typ: t, values: values}
	if ld < max(a.minor(), 1) {
		return nil, fmt.Errorf("NewDnMat: ld=%d < %d: %w", ld, max(a.minor(), 1), ErrBadLeadingDim)
	}
	if err := checkArray("values", values, a.elements(), t.Size()); err != nil {
		return nil, sparseErrorf("NewDnMat", err)
	}

	return a, nil
}

// Rows returns the row count.
func (a *DnMat) Rows() int64 { return a.rows }

// Cols returns the column count.
func (a *DnMat) Cols() int64 { return a.cols }

// LD returns the leading dimension.
func (a *DnMat) LD() int64 { return a.ld }

// Order returns the memory layout.
func (a *DnMat) Order() Order { return a.order }

// DataType returns the element type.
func (a *DnMat) DataType() dtype.DataType { return a.typ }

// Values returns the backing buffer.
func (a *DnMat) Values() *device.Buffer { return a.values }

// major is the number of contiguous lines; minor their length.
func (a *DnMat) major() int64 {
	if a.order == RowMajor {
		return a.rows
	}

	return a.cols
}

func (a *DnMat) minor() int64 {
	if a.order == RowMajor {
		return a.cols
	}

	return a.rows
}

// elements is the number of elements the view spans.
func (a *DnMat) elements() int64 {
	if a.rows == 0 || a.cols == 0 {
		return 0
	}

	return (a.major()-1)*a.ld + a.minor()
}

// index maps (i, j) to an element index of the backing buffer.
func (a *DnMat) index(i, j int64) int {
	if a.order == RowMajor {
		return int(i*a.ld + j)
	}

	return int(j*a.ld + i)
}

// at loads element (i, j) through the value codec.
func (a *DnMat) at(b []byte, i, j int64) complex128 {
	return dtype.Load(a.typ, b, a.index(i, j))
}

// DnVec is a dense vector view over a caller-owned buffer.
type DnVec struct {
	n      int64
	typ    dtype.DataType
	values *device.Buffer
}

// NewDnVec validates and creates a dense vector view of n elements.
func NewDnVec(n int64, values *device.Buffer, t dtype.DataType) (*DnVec, error) {
	if n < 0 {
		return nil, fmt.Errorf("NewDnVec(%d): %w", n, ErrBadShape)
	}
	if !t.Valid() {
		return nil, fmt.Errorf("NewDnVec(type=%v): %w", t, ErrBadLayout)
	}
	if err := checkArray("values", values, n, t.Size()); err != nil {
		return nil, sparseErrorf("NewDnVec", err)
	}

	return &DnVec{n: n, typ: t, values: values}, nil
}

// Len returns the vector length.
func (v *DnVec) Len() int64 { return v.n }

// DataType returns the element type.
func (v *DnVec) DataType() dtype.DataType { return v.typ }

// Values returns the backing buffer.
func (v *DnVec) Values() *device.Buffer { return v.values }
