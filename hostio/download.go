// SPDX-License-Identifier: MIT

package hostio

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/lvsparse/device"
	"github.com/katalvlaran/lvsparse/dtype"
	"github.com/katalvlaran/lvsparse/sparse"
)

// DownloadDense copies a dense view back and returns its real parts.
// An empty view yields an empty (zero-value) matrix.
func DownloadDense(dc *device.Context, a *sparse.DnMat) (*mat.Dense, error) {
	r, c := int(a.Rows()), int(a.Cols())
	if r == 0 || c == 0 {
		return new(mat.Dense), nil
	}
	out := mat.NewDense(r, c, nil)
	err := readDense(dc, a, func(i, j int, v complex128) { out.Set(i, j, real(v)) })
	if err != nil {
		return nil, fmt.Errorf("hostio: DownloadDense: %w", err)
	}

	return out, nil
}

// DownloadCDense copies a dense view back as a complex matrix.
func DownloadCDense(dc *device.Context, a *sparse.DnMat) (*mat.CDense, error) {
	r, c := int(a.Rows()), int(a.Cols())
	if r == 0 || c == 0 {
		return new(mat.CDense), nil
	}
	out := mat.NewCDense(r, c, nil)
	err := readDense(dc, a, func(i, j int, v complex128) { out.Set(i, j, v) })
	if err != nil {
		return nil, fmt.Errorf("hostio: DownloadCDense: %w", err)
	}

	return out, nil
}

func readDense(dc *device.Context, a *sparse.DnMat, set func(i, j int, v complex128)) error {
	r, c, ld := int(a.Rows()), int(a.Cols()), a.LD()
	major, minor := r, c
	if a.Order() == sparse.ColMajor {
		major, minor = c, r
	}
	raw, err := download(dc, a.Values(), ((major-1)*int(ld)+minor)*a.DataType().Size())
	if err != nil {
		return err
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			set(i, j, dtype.Load(a.DataType(), raw, denseIndex(i, j, ld, a.Order())))
		}
	}

	return nil
}

// DownloadVector copies a dense vector back.
func DownloadVector(dc *device.Context, v *sparse.DnVec) ([]complex128, error) {
	raw, err := download(dc, v.Values(), int(v.Len())*v.DataType().Size())
	if err != nil {
		return nil, fmt.Errorf("hostio: DownloadVector: %w", err)
	}
	out := make([]complex128, v.Len())
	for i := range out {
		out[i] = dtype.Load(v.DataType(), raw, i)
	}

	return out, nil
}

// DownloadIndices returns the stored index arrays of s exactly as stored
// (base included). Arrays the format does not have are nil.
func DownloadIndices(dc *device.Context, s *sparse.SpMat) (offsets, rowInd, colInd []int64, err error) {
	rows, cols, nnz := s.Size()
	if s.Format() != sparse.COO {
		major := rows
		if s.Format() == sparse.CSC {
			major = cols
		}
		if offsets, err = readIndices(dc, s.Offsets(), major+1, s.OffsetType()); err != nil {
			return nil, nil, nil, fmt.Errorf("hostio: DownloadIndices: %w", err)
		}
	}
	if s.Format() != sparse.CSR {
		if rowInd, err = readIndices(dc, s.RowInd(), nnz, s.IndexType()); err != nil {
			return nil, nil, nil, fmt.Errorf("hostio: DownloadIndices: %w", err)
		}
	}
	if s.Format() != sparse.CSC {
		if colInd, err = readIndices(dc, s.ColInd(), nnz, s.IndexType()); err != nil {
			return nil, nil, nil, fmt.Errorf("hostio: DownloadIndices: %w", err)
		}
	}

	return offsets, rowInd, colInd, nil
}

func readIndices(dc *device.Context, buf *device.Buffer, n int64, it dtype.IndexType) ([]int64, error) {
	raw, err := download(dc, buf, int(n)*it.Size())
	if err != nil {
		return nil, err
	}
	out := make([]int64, n)
	for i := range out {
		out[i] = dtype.LoadIndex(it, raw, i)
	}

	return out, nil
}

// DownloadValues returns the nnz stored values of s in storage order.
func DownloadValues(dc *device.Context, s *sparse.SpMat) ([]complex128, error) {
	nnz := s.NNZ()
	raw, err := download(dc, s.Values(), int(nnz)*s.DataType().Size())
	if err != nil {
		return nil, fmt.Errorf("hostio: DownloadValues: %w", err)
	}
	out := make([]complex128, nnz)
	for i := range out {
		out[i] = dtype.Load(s.DataType(), raw, i)
	}

	return out, nil
}

// Entries returns the stored elements of s in storage order with 0-based
// coordinates. Pointer ranges are trusted to be consistent with nnz.
func Entries(dc *device.Context, s *sparse.SpMat) ([]Entry, error) {
	offsets, rowInd, colInd, err := DownloadIndices(dc, s)
	if err != nil {
		return nil, err
	}
	vals, err := DownloadValues(dc, s)
	if err != nil {
		return nil, err
	}
	base := s.IndexBase().Offset()
	out := make([]Entry, len(vals))
	switch s.Format() {
	case sparse.COO:
		for p := range out {
			out[p] = Entry{Row: rowInd[p] - base, Col: colInd[p] - base, Value: vals[p]}
		}
	default:
		for line := 0; line+1 < len(offsets); line++ {
			for p := offsets[line] - base; p < offsets[line+1]-base; p++ {
				if s.Format() == sparse.CSR {
					out[p] = Entry{Row: int64(line), Col: colInd[p] - base, Value: vals[p]}
				} else {
					out[p] = Entry{Row: rowInd[p] - base, Col: int64(line), Value: vals[p]}
				}
			}
		}
	}

	return out, nil
}

// DensifyReal scatters s into a zero rows×cols matrix (real parts).
func DensifyReal(dc *device.Context, s *sparse.SpMat) (*mat.Dense, error) {
	rows, cols, _ := s.Size()
	if rows == 0 || cols == 0 {
		return new(mat.Dense), nil
	}
	entries, err := Entries(dc, s)
	if err != nil {
		return nil, fmt.Errorf("hostio: DensifyReal: %w", err)
	}
	out := mat.NewDense(int(rows), int(cols), nil)
	for _, e := range entries {
		out.Set(int(e.Row), int(e.Col), real(e.Value))
	}

	return out, nil
}

// DensifyComplex scatters s into a zero rows×cols complex matrix.
func DensifyComplex(dc *device.Context, s *sparse.SpMat) (*mat.CDense, error) {
	rows, cols, _ := s.Size()
	if rows == 0 || cols == 0 {
		return new(mat.CDense), nil
	}
	entries, err := Entries(dc, s)
	if err != nil {
		return nil, fmt.Errorf("hostio: DensifyComplex: %w", err)
	}
	out := mat.NewCDense(int(rows), int(cols), nil)
	for _, e := range entries {
		out.Set(int(e.Row), int(e.Col), e.Value)
	}

	return out, nil
}
