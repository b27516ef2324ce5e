// SPDX-License-Identifier: MIT

package sparse

import (
	"fmt"

	"github.com/katalvlaran/lvsparse/device"
	"github.com/katalvlaran/lvsparse/dtype"
)

// SpVec is a sparse vector descriptor. nnz is fixed at creation.
// Indices are expected distinct and in [base, n-1+base]; see WithIndexChecks.
type SpVec struct {
	n, nnz  int64
	idxType dtype.IndexType
	base    dtype.IndexBase
	typ     dtype.DataType
	indices *device.Buffer
	values  *device.Buffer
}

// NewSpVec validates and creates a sparse vector of length n with nnz stored entries.
func NewSpVec(n, nnz int64, indices, values *device.Buffer,
	it dtype.IndexType, base dtype.IndexBase, t dtype.DataType) (*SpVec, error) {
	if n < 0 || nnz < 0 || nnz > n {
		return nil, fmt.Errorf("NewSpVec(n=%d, nnz=%d): %w", n, nnz, ErrBadShape)
	}
	if !it.Valid() {
		return nil, fmt.Errorf("NewSpVec(index=%v): %w", it, ErrBadIndexType)
	}
	if !base.Valid() || !t.Valid() {
		return nil, fmt.Errorf("NewSpVec(base=%v, type=%v): %w", base, t, ErrBadLayout)
	}
	if err := checkIndexRange(it, n-1+base.Offset()); err != nil {
		return nil, sparseErrorf("NewSpVec", err)
	}
	if err := checkArray("indices", indices, nnz, it.Size()); err != nil {
		return nil, sparseErrorf("NewSpVec", err)
	}
	if err := checkArray("values", values, nnz, t.Size()); err != nil {
		return nil, sparseErrorf("NewSpVec", err)
	}

	return &SpVec{n: n, nnz: nnz, idxType: it, base: base, typ: t, indices: indices, values: values}, nil
}

// Len returns the logical length N.
func (x *SpVec) Len() int64 { return x.n }

// NNZ returns the number of stored entries.
func (x *SpVec) NNZ() int64 { return x.nnz }

// IndexType returns the index type.
func (x *SpVec) IndexType() dtype.IndexType { return x.idxType }

// IndexBase returns the base-index convention.
func (x *SpVec) IndexBase() dtype.IndexBase { return x.base }

// DataType returns the value type.
func (x *SpVec) DataType() dtype.DataType { return x.typ }

// Indices returns the index array.
func (x *SpVec) Indices() *device.Buffer { return x.indices }

// Values returns the value array.
func (x *SpVec) Values() *device.Buffer { return x.values }
