// SPDX-License-Identifier: MIT

package sparse

import (
	"fmt"
	"sync"

	"github.com/katalvlaran/lvsparse/device"
	"github.com/katalvlaran/lvsparse/dtype"
)

// SpMat is a sparse matrix descriptor: a tagged union over CSR, CSC and COO.
//
// Array roles per format:
//
//	CSR: offsets = row pointers (rows+1), colInd, values (nnz)
//	CSC: offsets = col pointers (cols+1), rowInd, values (nnz)
//	COO: rowInd, colInd, values (nnz)
//
// nnz may be 0 with nil index/value arrays at creation; dense-to-sparse
// analysis sets nnz and the caller then attaches arrays with the
// SetPointers methods. Metadata is guarded by mu so the stream worker and
// the issuing goroutine can exchange it; one writer at a time is assumed.
type SpMat struct {
	mu sync.RWMutex

	format     Format
	rows, cols int64
	nnz        int64
	offType    dtype.IndexType
	idxType    dtype.IndexType
	base       dtype.IndexBase
	typ        dtype.DataType

	offsets *device.Buffer
	rowInd  *device.Buffer
	colInd  *device.Buffer
	values  *device.Buffer

	d2s   plan
	sddmm plan
}

// NewCSR creates a CSR descriptor. rowPtr may be nil until dense-to-sparse
// analysis needs it; colInd and values may be nil while nnz == 0.
func NewCSR(rows, cols, nnz int64, rowPtr, colInd, values *device.Buffer,
	offType, idxType dtype.IndexType, base dtype.IndexBase, t dtype.DataType) (*SpMat, error) {
	s := &SpMat{format: CSR, rows: rows, cols: cols, nnz: nnz,
		offType: offType, idxType: idxType, base: base, typ: t,
		offsets: rowPtr, colInd: colInd, values: values}
	if err := s.validate(); err != nil {
		return nil, sparseErrorf("NewCSR", err)
	}

	return s, nil
}

// NewCSC creates a CSC descriptor. colPtr may be nil until dense-to-sparse
// analysis needs it; rowInd and values may be nil while nnz == 0.
func NewCSC(rows, cols, nnz int64, colPtr, rowInd, values *device.Buffer,
	offType, idxType dtype.IndexType, base dtype.IndexBase, t dtype.DataType) (*SpMat, error) {
	s := &SpMat{format: CSC, rows: rows, cols: cols, nnz: nnz,
		offType: offType, idxType: idxType, base: base, typ: t,
		offsets: colPtr, rowInd: rowInd, values: values}
	if err := s.validate(); err != nil {
		return nil, sparseErrorf("NewCSC", err)
	}

	return s, nil
}

// NewCOO creates a COO descriptor. COO has no pointer array, so the offset
// type equals the index type.
func NewCOO(rows, cols, nnz int64, rowInd, colInd, values *device.Buffer,
	idxType dtype.IndexType, base dtype.IndexBase, t dtype.DataType) (*SpMat, error) {
	s := &SpMat{format: COO, rows: rows, cols: cols, nnz: nnz,
		offType: idxType, idxType: idxType, base: base, typ: t,
		rowInd: rowInd, colInd: colInd, values: values}
	if err := s.validate(); err != nil {
		return nil, sparseErrorf("NewCOO", err)
	}

	return s, nil
}

// validate checks the descriptor metadata and array capacities.
// Caller holds mu or owns s exclusively.
func (s *SpMat) validate() error {
	if s.rows < 0 || s.cols < 0 || s.nnz < 0 {
		return fmt.Errorf("%dx%d nnz=%d: %w", s.rows, s.cols, s.nnz, ErrBadShape)
	}
	if !s.typ.Valid() || !s.base.Valid() {
		return fmt.Errorf("type=%v base=%v: %w", s.typ, s.base, ErrBadLayout)
	}
	if !s.offType.Valid() || !s.idxType.Valid() {
		return fmt.Errorf("offsets=%v indices=%v: %w", s.offType, s.idxType, ErrBadIndexType)
	}
	if s.nnz > 0 && (s.rows == 0 || s.cols == 0 || (s.nnz-1)/s.rows >= s.cols) {
		return fmt.Errorf("nnz=%d exceeds %dx%d: %w", s.nnz, s.rows, s.cols, ErrBadShape)
	}
	if err := checkIndexRange(s.idxType, max(s.rows, s.cols)-1+s.base.Offset()); err != nil {
		return err
	}
	if err := checkIndexRange(s.offType, s.nnz+s.base.Offset()); err != nil {
		return err
	}
	if s.format != COO && s.offsets != nil {
		if err := checkArray("offsets", s.offsets, s.major()+1, s.offType.Size()); err != nil {
			return err
		}
	}

	return s.checkPayload()
}

// checkPayload validates the nnz-sized arrays of the current format.
func (s *SpMat) checkPayload() error {
	switch s.format {
	case CSR:
		if s.nnz > 0 && s.offsets == nil {
			return fmt.Errorf("row pointers: %w", ErrNilDescriptor)
		}
		if err := checkArray("colInd", s.colInd, s.nnz, s.idxType.Size()); err != nil {
			return err
		}
	case CSC:
		if s.nnz > 0 && s.offsets == nil {
			return fmt.Errorf("col pointers: %w", ErrNilDescriptor)
		}
		if err := checkArray("rowInd", s.rowInd, s.nnz, s.idxType.Size()); err != nil {
			return err
		}
	case COO:
		if err := checkArray("rowInd", s.rowInd, s.nnz, s.idxType.Size()); err != nil {
			return err
		}
		if err := checkArray("colInd", s.colInd, s.nnz, s.idxType.Size()); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%v: %w", s.format, ErrUnsupportedFormat)
	}

	return checkArray("values", s.values, s.nnz, s.typ.Size())
}

// CSRSetPointers attaches the CSR arrays; capacities are checked against the
// current nnz. The pattern changes, so SDDMM must be preprocessed again.
func (s *SpMat) CSRSetPointers(rowPtr, colInd, values *device.Buffer) error {
	return s.attach(CSR, "CSRSetPointers", func() { s.offsets, s.colInd, s.values = rowPtr, colInd, values })
}

// CSCSetPointers attaches the CSC arrays; see CSRSetPointers.
func (s *SpMat) CSCSetPointers(colPtr, rowInd, values *device.Buffer) error {
	return s.attach(CSC, "CSCSetPointers", func() { s.offsets, s.rowInd, s.values = colPtr, rowInd, values })
}

// COOSetPointers attaches the COO arrays; see CSRSetPointers.
func (s *SpMat) COOSetPointers(rowInd, colInd, values *device.Buffer) error {
	return s.attach(COO, "COOSetPointers", func() { s.rowInd, s.colInd, s.values = rowInd, colInd, values })
}

// attach swaps arrays in and rolls back when validation fails.
func (s *SpMat) attach(f Format, tag string, set func()) error {
	if s == nil {
		return sparseErrorf(tag, ErrNilDescriptor)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.format != f {
		return fmt.Errorf("%s on %v: %w", tag, s.format, ErrWrongFormat)
	}
	saved := [4]*device.Buffer{s.offsets, s.rowInd, s.colInd, s.values}
	set()
	if err := s.validate(); err != nil {
		s.offsets, s.rowInd, s.colInd, s.values = saved[0], saved[1], saved[2], saved[3]
		return sparseErrorf(tag, err)
	}

	return nil
}

// Size returns rows, cols and the current nnz.
func (s *SpMat) Size() (rows, cols, nnz int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.rows, s.cols, s.nnz
}

// NNZ returns the current number of stored entries.
func (s *SpMat) NNZ() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.nnz
}

// Format returns the storage format tag.
func (s *SpMat) Format() Format { return s.format }

// IndexBase returns the base-index convention.
func (s *SpMat) IndexBase() dtype.IndexBase { return s.base }

// DataType returns the value type.
func (s *SpMat) DataType() dtype.DataType { return s.typ }

// OffsetType returns the index type of the pointer array.
func (s *SpMat) OffsetType() dtype.IndexType { return s.offType }

// IndexType returns the index type of row/column index arrays.
func (s *SpMat) IndexType() dtype.IndexType { return s.idxType }

// Offsets returns the row (CSR) or column (CSC) pointer array; nil for COO.
func (s *SpMat) Offsets() *device.Buffer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.offsets
}

// RowInd returns the row-index array (CSC, COO).
func (s *SpMat) RowInd() *device.Buffer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.rowInd
}

// ColInd returns the column-index array (CSR, COO).
func (s *SpMat) ColInd() *device.Buffer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.colInd
}

// Values returns the value array.
func (s *SpMat) Values() *device.Buffer {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.values
}

// major is the compressed dimension: rows for CSR/COO, cols for CSC.
func (s *SpMat) major() int64 {
	if s.format == CSC {
		return s.cols
	}

	return s.rows
}

// minor is the dimension indexed by the per-entry index array of CSR/CSC.
func (s *SpMat) minor() int64 {
	if s.format == CSC {
		return s.rows
	}

	return s.cols
}

// snapshot is a consistent copy of the arrays a kernel works on.
type snapshot struct {
	format                         Format
	rows, cols, nnz                int64
	offType, idxType               dtype.IndexType
	base                           int64
	typ                            dtype.DataType
	offsets, rowInd, colInd, values *device.Buffer
}

// snap copies the metadata; caller holds mu.
func (s *SpMat) snap() snapshot {
	return snapshot{
		format: s.format, rows: s.rows, cols: s.cols, nnz: s.nnz,
		offType: s.offType, idxType: s.idxType, base: s.base.Offset(), typ: s.typ,
		offsets: s.offsets, rowInd: s.rowInd, colInd: s.colInd, values: s.values,
	}
}

// String implements fmt.Stringer.
func (s *SpMat) String() string {
	r, c, n := s.Size()

	return fmt.Sprintf("SpMat(%v %dx%d nnz=%d %v %v/%v base=%v)", s.format, r, c, n, s.typ, s.offType, s.idxType, s.base)
}
