// SPDX-License-Identifier: MIT

// Package hostio moves data between gonum host matrices and lvsparse
// descriptors: uploads build device buffers plus a descriptor, downloads
// copy device buffers back through the stream and decode them.
//
// Every transfer is a blocking, stream-ordered copy, so a download observes
// all work issued before it.
package hostio

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/lvsparse/device"
	"github.com/katalvlaran/lvsparse/dtype"
	"github.com/katalvlaran/lvsparse/sparse"
)

// ErrNilContext is returned when a nil compute context is passed.
var ErrNilContext = errors.New("hostio: nil compute context")

// Entry is one stored element with 0-based coordinates.
type Entry struct {
	Row, Col int64
	Value    complex128
}

// upload allocates a Device buffer and copies raw into it.
func upload(dc *device.Context, raw []byte, label string) (*device.Buffer, error) {
	if dc == nil {
		return nil, ErrNilContext
	}
	buf, err := dc.Alloc(len(raw), label)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return buf, nil
	}
	if err = dc.CopyToDevice(buf, 0, raw); err != nil {
		return nil, errors.Join(err, dc.Free(buf))
	}

	return buf, nil
}

// download copies n bytes of buf to the host.
func download(dc *device.Context, buf *device.Buffer, n int) ([]byte, error) {
	if dc == nil {
		return nil, ErrNilContext
	}
	raw := make([]byte, n)
	if n == 0 {
		return raw, nil
	}
	if err := dc.CopyToHost(raw, buf, 0); err != nil {
		return nil, err
	}

	return raw, nil
}

// denseLayout returns the leading dimension of a packed r×c matrix.
func denseLayout(r, c int, order sparse.Order) int64 {
	if order == sparse.ColMajor {
		return int64(max(r, 1))
	}

	return int64(max(c, 1))
}

func denseIndex(i, j int, ld int64, order sparse.Order) int {
	if order == sparse.ColMajor {
		return j*int(ld) + i
	}

	return i*int(ld) + j
}

// UploadDense packs the real matrix m as type t in the given order.
// Integer types saturate; complex types get a zero imaginary part.
func UploadDense(dc *device.Context, m mat.Matrix, t dtype.DataType, order sparse.Order) (*sparse.DnMat, error) {
	r, c := m.Dims()

	return uploadDense(dc, r, c, func(i, j int) complex128 { return complex(m.At(i, j), 0) }, t, order)
}

// UploadCDense packs the complex matrix m as type t in the given order.
func UploadCDense(dc *device.Context, m mat.CMatrix, t dtype.DataType, order sparse.Order) (*sparse.DnMat, error) {
	r, c := m.Dims()

	return uploadDense(dc, r, c, m.At, t, order)
}

func uploadDense(dc *device.Context, r, c int, at func(i, j int) complex128, t dtype.DataType, order sparse.Order) (*sparse.DnMat, error) {
	if !t.Valid() || !order.Valid() {
		return nil, fmt.Errorf("hostio: UploadDense(type=%v, order=%v): %w", t, order, sparse.ErrBadLayout)
	}
	ld := denseLayout(r, c, order)
	raw := make([]byte, r*c*t.Size())
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			dtype.Store(t, raw, denseIndex(i, j, ld, order), at(i, j))
		}
	}
	buf, err := upload(dc, raw, "dense")
	if err != nil {
		return nil, fmt.Errorf("hostio: UploadDense: %w", err)
	}

	return sparse.NewDnMat(int64(r), int64(c), ld, buf, t, order)
}

// UploadVector packs v as a dense vector of type t.
func UploadVector(dc *device.Context, v []complex128, t dtype.DataType) (*sparse.DnVec, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("hostio: UploadVector(type=%v): %w", t, sparse.ErrBadLayout)
	}
	raw := make([]byte, len(v)*t.Size())
	for i, x := range v {
		dtype.Store(t, raw, i, x)
	}
	buf, err := upload(dc, raw, "vector")
	if err != nil {
		return nil, fmt.Errorf("hostio: UploadVector: %w", err)
	}

	return sparse.NewDnVec(int64(len(v)), buf, t)
}

// UploadVecDense packs a gonum vector as a dense vector of type t.
func UploadVecDense(dc *device.Context, v mat.Vector, t dtype.DataType) (*sparse.DnVec, error) {
	vals := make([]complex128, v.Len())
	for i := range vals {
		vals[i] = complex(v.AtVec(i), 0)
	}

	return UploadVector(dc, vals, t)
}

// UploadSpVec builds a sparse vector of length n; idx is 0-based and is
// stored with base added.
func UploadSpVec(dc *device.Context, n int64, idx []int64, vals []complex128,
	it dtype.IndexType, base dtype.IndexBase, t dtype.DataType) (*sparse.SpVec, error) {
	if len(idx) != len(vals) {
		return nil, fmt.Errorf("hostio: UploadSpVec: %d indices, %d values: %w", len(idx), len(vals), sparse.ErrShapeMismatch)
	}
	ib, err := uploadIndices(dc, idx, it, base, "spvec.indices")
	if err != nil {
		return nil, fmt.Errorf("hostio: UploadSpVec: %w", err)
	}
	vb, err := uploadValues(dc, vals, t, "spvec.values")
	if err != nil {
		return nil, fmt.Errorf("hostio: UploadSpVec: %w", err)
	}

	return sparse.NewSpVec(n, int64(len(idx)), ib, vb, it, base, t)
}

// UploadCSR builds a CSR matrix from a 0-based pattern.
func UploadCSR(dc *device.Context, rows, cols int64, rowPtr, colInd []int64, vals []complex128,
	it dtype.IndexType, base dtype.IndexBase, t dtype.DataType) (*sparse.SpMat, error) {
	if int64(len(rowPtr)) != rows+1 || len(colInd) != len(vals) {
		return nil, fmt.Errorf("hostio: UploadCSR: %w", sparse.ErrShapeMismatch)
	}
	pb, err := uploadIndices(dc, rowPtr, it, base, "csr.rowPtr")
	if err != nil {
		return nil, fmt.Errorf("hostio: UploadCSR: %w", err)
	}
	cb, err := uploadIndices(dc, colInd, it, base, "csr.colInd")
	if err != nil {
		return nil, fmt.Errorf("hostio: UploadCSR: %w", err)
	}
	vb, err := uploadValues(dc, vals, t, "csr.values")
	if err != nil {
		return nil, fmt.Errorf("hostio: UploadCSR: %w", err)
	}

	return sparse.NewCSR(rows, cols, int64(len(vals)), pb, cb, vb, it, it, base, t)
}

// UploadCOO builds a COO matrix from 0-based coordinates.
func UploadCOO(dc *device.Context, rows, cols int64, rowInd, colInd []int64, vals []complex128,
	it dtype.IndexType, base dtype.IndexBase, t dtype.DataType) (*sparse.SpMat, error) {
	if len(rowInd) != len(vals) || len(colInd) != len(vals) {
		return nil, fmt.Errorf("hostio: UploadCOO: %w", sparse.ErrShapeMismatch)
	}
	rb, err := uploadIndices(dc, rowInd, it, base, "coo.rowInd")
	if err != nil {
		return nil, fmt.Errorf("hostio: UploadCOO: %w", err)
	}
	cb, err := uploadIndices(dc, colInd, it, base, "coo.colInd")
	if err != nil {
		return nil, fmt.Errorf("hostio: UploadCOO: %w", err)
	}
	vb, err := uploadValues(dc, vals, t, "coo.values")
	if err != nil {
		return nil, fmt.Errorf("hostio: UploadCOO: %w", err)
	}

	return sparse.NewCOO(rows, cols, int64(len(vals)), rb, cb, vb, it, base, t)
}

func uploadIndices(dc *device.Context, idx []int64, it dtype.IndexType, base dtype.IndexBase, label string) (*device.Buffer, error) {
	raw := make([]byte, len(idx)*it.Size())
	for i, v := range idx {
		dtype.StoreIndex(it, raw, i, v+base.Offset())
	}

	return upload(dc, raw, label)
}

func uploadValues(dc *device.Context, vals []complex128, t dtype.DataType, label string) (*device.Buffer, error) {
	raw := make([]byte, len(vals)*t.Size())
	for i, v := range vals {
		dtype.Store(t, raw, i, v)
	}

	return upload(dc, raw, label)
}
