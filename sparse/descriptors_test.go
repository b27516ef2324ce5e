// SPDX-License-Identifier: MIT

package sparse_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvsparse/device"
	"github.com/katalvlaran/lvsparse/dtype"
	"github.com/katalvlaran/lvsparse/sparse"
)

func TestNewHandleNil(t *testing.T) {
	t.Parallel()
	_, err := sparse.NewHandle(nil)
	require.ErrorIs(t, err, sparse.ErrNilHandle)
	require.ErrorIs(t, err, sparse.ErrInvalidArgument)

	var h *sparse.Handle
	_, err = h.SizeSpVV(sparse.NonTranspose, nil, nil, nil, dtype.R32F)
	require.ErrorIs(t, err, sparse.ErrNilHandle)
}

func TestNewDnMat(t *testing.T) {
	t.Parallel()
	dc := device.NewContext()
	t.Cleanup(func() { _ = dc.Close() })
	buf, err := dc.Alloc(12*4, "dense")
	require.NoError(t, err)

	cases := []struct {
		name       string
		rows, cols int64
		ld         int64
		order      sparse.Order
		typ        dtype.DataType
		want       error
	}{
		{"row-major packed", 3, 4, 4, sparse.RowMajor, dtype.R32F, nil},
		{"col-major packed", 3, 4, 3, sparse.ColMajor, dtype.R32F, nil},
		{"row-major padded", 2, 4, 6, sparse.RowMajor, dtype.R32F, nil},
		{"padded too far", 3, 4, 6, sparse.RowMajor, dtype.R32F, sparse.ErrArrayTooSmall},
		{"ld below cols", 3, 4, 3, sparse.RowMajor, dtype.R32F, sparse.ErrBadLeadingDim},
		{"ld below rows", 3, 4, 2, sparse.ColMajor, dtype.R32F, sparse.ErrBadLeadingDim},
		{"ld zero on empty", 0, 0, 0, sparse.RowMajor, dtype.R32F, sparse.ErrBadLeadingDim},
		{"empty", 0, 5, 5, sparse.RowMajor, dtype.R32F, nil},
		{"negative", -1, 4, 4, sparse.RowMajor, dtype.R32F, sparse.ErrBadShape},
		{"bad order", 3, 4, 4, sparse.Order(0), dtype.R32F, sparse.ErrBadLayout},
		{"bad type", 3, 4, 4, sparse.RowMajor, dtype.DataType(0), sparse.ErrBadLayout},
		{"too large for buffer", 3, 4, 4, sparse.RowMajor, dtype.R64F, sparse.ErrArrayTooSmall},
	}
	for _, tc := range cases {
		_, err := sparse.NewDnMat(tc.rows, tc.cols, tc.ld, buf, tc.typ, tc.order)
		if tc.want == nil {
			require.NoError(t, err, tc.name)
		} else {
			require.ErrorIs(t, err, tc.want, tc.name)
			require.ErrorIs(t, err, sparse.ErrInvalidArgument, tc.name)
		}
	}

	_, err = sparse.NewDnMat(2, 2, 2, nil, dtype.R32F, sparse.RowMajor)
	require.ErrorIs(t, err, sparse.ErrNilDescriptor)
	require.NoError(t, dc.Free(buf))
	_, err = sparse.NewDnMat(2, 2, 2, buf, dtype.R32F, sparse.RowMajor)
	require.ErrorIs(t, err, sparse.ErrNilDescriptor)
}

func TestNewSpMat(t *testing.T) {
	t.Parallel()
	dc := device.NewContext()
	t.Cleanup(func() { _ = dc.Close() })
	alloc := func(n int) *device.Buffer {
		b, err := dc.Alloc(n, "arr")
		require.NoError(t, err)
		return b
	}
	ptr, idx, vals := alloc(5*4), alloc(6*4), alloc(6*4)

	_, err := sparse.NewCSR(4, 4, 6, ptr, idx, vals, dtype.Index32, dtype.Index32, dtype.BaseZero, dtype.R32F)
	require.NoError(t, err)
	_, err = sparse.NewCSC(4, 4, 6, ptr, idx, vals, dtype.Index32, dtype.Index32, dtype.BaseOne, dtype.R32F)
	require.NoError(t, err)
	_, err = sparse.NewCOO(4, 4, 6, idx, idx, vals, dtype.Index32, dtype.BaseZero, dtype.R32F)
	require.NoError(t, err)

	cases := []struct {
		name string
		make func() error
		want error
	}{
		{"nnz above rows*cols", func() error {
			_, err := sparse.NewCOO(2, 2, 5, idx, idx, vals, dtype.Index32, dtype.BaseZero, dtype.R32F)
			return err
		}, sparse.ErrBadShape},
		{"nnz on empty matrix", func() error {
			_, err := sparse.NewCOO(0, 4, 1, idx, idx, vals, dtype.Index32, dtype.BaseZero, dtype.R32F)
			return err
		}, sparse.ErrBadShape},
		{"short pointers", func() error {
			_, err := sparse.NewCSR(5, 4, 6, ptr, idx, vals, dtype.Index32, dtype.Index32, dtype.BaseZero, dtype.R32F)
			return err
		}, sparse.ErrArrayTooSmall},
		{"short values", func() error {
			_, err := sparse.NewCSR(4, 4, 6, ptr, idx, vals, dtype.Index32, dtype.Index32, dtype.BaseZero, dtype.R64F)
			return err
		}, sparse.ErrArrayTooSmall},
		{"missing pointers", func() error {
			_, err := sparse.NewCSR(4, 4, 6, nil, idx, vals, dtype.Index32, dtype.Index32, dtype.BaseZero, dtype.R32F)
			return err
		}, sparse.ErrNilDescriptor},
		{"index type", func() error {
			_, err := sparse.NewCSR(4, 4, 6, ptr, idx, vals, dtype.IndexType(3), dtype.Index32, dtype.BaseZero, dtype.R32F)
			return err
		}, sparse.ErrBadIndexType},
		{"base", func() error {
			_, err := sparse.NewCOO(4, 4, 6, idx, idx, vals, dtype.Index32, dtype.IndexBase(2), dtype.R32F)
			return err
		}, sparse.ErrBadLayout},
		{"index32 extent overflow", func() error {
			_, err := sparse.NewCSR(4, 1<<31+1, 0, ptr, nil, nil, dtype.Index32, dtype.Index32, dtype.BaseZero, dtype.R32F)
			return err
		}, sparse.ErrIndexOverflow},
		{"index32 base-one overflow", func() error {
			_, err := sparse.NewCOO(1<<31, 1, 0, nil, nil, nil, dtype.Index32, dtype.BaseOne, dtype.R32F)
			return err
		}, sparse.ErrIndexOverflow},
	}
	for _, tc := range cases {
		err := tc.make()
		require.ErrorIs(t, err, tc.want, tc.name)
		require.ErrorIs(t, err, sparse.ErrInvalidArgument, tc.name)
	}

	// Index64 lifts the extent limit.
	_, err = sparse.NewCOO(1<<31, 1, 0, nil, nil, nil, dtype.Index64, dtype.BaseOne, dtype.R32F)
	require.NoError(t, err)
}

func TestSetPointers(t *testing.T) {
	t.Parallel()
	dc := device.NewContext()
	t.Cleanup(func() { _ = dc.Close() })
	ptr, err := dc.Alloc(5*8, "ptr")
	require.NoError(t, err)
	s, err := sparse.NewCSR(4, 4, 0, ptr, nil, nil, dtype.Index64, dtype.Index64, dtype.BaseZero, dtype.C32F)
	require.NoError(t, err)

	err = s.COOSetPointers(nil, nil, nil)
	require.ErrorIs(t, err, sparse.ErrWrongFormat)
	err = s.CSCSetPointers(ptr, nil, nil)
	require.ErrorIs(t, err, sparse.ErrWrongFormat)

	short, err := dc.Alloc(8, "short")
	require.NoError(t, err)
	err = s.CSRSetPointers(short, nil, nil)
	require.ErrorIs(t, err, sparse.ErrArrayTooSmall)
	require.Same(t, ptr, s.Offsets(), "failed attach must roll back")
	require.Contains(t, s.String(), "csr 4x4 nnz=0")
}

func TestDeviceValueResidency(t *testing.T) {
	t.Parallel()
	dc := device.NewContext()
	t.Cleanup(func() { _ = dc.Close() })

	host, err := dc.AllocHost(16, "host")
	require.NoError(t, err)
	_, err = sparse.NewDeviceValue(host, 0, dtype.R64F)
	require.ErrorIs(t, err, sparse.ErrWrongResidency)

	dev, err := dc.Alloc(16, "dev")
	require.NoError(t, err)
	_, err = sparse.NewDeviceValue(dev, 12, dtype.R64F)
	require.ErrorIs(t, err, sparse.ErrArrayTooSmall)
	_, err = sparse.NewDeviceValue(nil, 0, dtype.R64F)
	require.ErrorIs(t, err, sparse.ErrNilDescriptor)
	v, err := sparse.NewDeviceValue(dev, 8, dtype.R64F)
	require.NoError(t, err)
	require.Same(t, dev, v.Buffer())

	got, err := v.Read(dc)
	require.NoError(t, err)
	require.Zero(t, got)
	_, err = v.Read(nil)
	require.ErrorIs(t, err, sparse.ErrNilHandle)
}

func TestHostValue(t *testing.T) {
	t.Parallel()
	v := sparse.NewHostValue(dtype.R16F, 1.0009765625+1i)
	got, err := v.Value()
	require.NoError(t, err)
	require.Equal(t, complex128(1.0009765625), got, "imaginary part dropped for real types")
	require.Equal(t, device.Host, v.Location())

	v.Set(70000)
	got, err = v.Value()
	require.NoError(t, err)
	require.True(t, real(got) > 65504, "R16F overflows to +Inf")
}

func TestErrorKinds(t *testing.T) {
	t.Parallel()
	for _, e := range []error{sparse.ErrStaleScratch, sparse.ErrInvalidState, sparse.ErrShapeMismatch, sparse.ErrWrongResidency} {
		require.True(t, errors.Is(e, sparse.ErrInvalidArgument), e.Error())
		require.False(t, errors.Is(e, sparse.ErrNotSupported), e.Error())
	}
	for _, e := range []error{sparse.ErrUnsupportedTypes, sparse.ErrUnsupportedOperation, sparse.ErrUnsupportedFormat, sparse.ErrUnsupportedAlgorithm} {
		require.True(t, errors.Is(e, sparse.ErrNotSupported), e.Error())
	}
	require.True(t, errors.Is(sparse.ErrBufferTooSmall, sparse.ErrInsufficientResources))
	require.False(t, errors.Is(sparse.ErrUnsynchronized, sparse.ErrInvalidArgument))
}

func TestParseFormat(t *testing.T) {
	t.Parallel()
	for _, f := range []sparse.Format{sparse.CSR, sparse.CSC, sparse.COO} {
		got, err := sparse.ParseFormat(f.String())
		require.NoError(t, err)
		require.Equal(t, f, got)
	}
	_, err := sparse.ParseFormat("bsr")
	require.ErrorIs(t, err, sparse.ErrBadLayout)
}
