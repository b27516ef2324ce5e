// SPDX-License-Identifier: MIT
// Package sparse_test contains test helpers
//
// Purpose:
//   - Provide small deterministic fixtures (the 4×4 worked example, seeded
//     random matrices) and protocol drivers shared by the operation tests.
//   - Keep every fixture exactly representable so exact comparisons hold.

package sparse_test

import (
	"context"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/katalvlaran/lvsparse/device"
	"github.com/katalvlaran/lvsparse/dtype"
	"github.com/katalvlaran/lvsparse/hostio"
	"github.com/katalvlaran/lvsparse/sparse"
)

// exampleDense is the 4×4 worked example; row counts 1,2,1,2.
//
//	1 0 0 0
//	0 2 0 4
//	0 0 7 0
//	9 0 0 1
func exampleDense() *mat.Dense {
	return mat.NewDense(4, 4, []float64{
		1, 0, 0, 0,
		0, 2, 0, 4,
		0, 0, 7, 0,
		9, 0, 0, 1,
	})
}

// Expected 0-based arrays of exampleDense per format.
var (
	exampleCSRPtr  = []int64{0, 1, 3, 4, 6}
	exampleCSRCol  = []int64{0, 1, 3, 2, 0, 3}
	exampleCSRVal  = []complex128{1, 2, 4, 7, 9, 1}
	exampleCSCPtr  = []int64{0, 2, 3, 4, 6}
	exampleCSCRow  = []int64{0, 3, 1, 2, 1, 3}
	exampleCSCVal  = []complex128{1, 9, 2, 7, 4, 1}
	exampleCOORow  = []int64{0, 1, 1, 2, 3, 3}
	exampleCOOCol  = []int64{0, 1, 3, 2, 0, 3}
	exampleCOOVals = exampleCSRVal
)

// newHandle creates a context and a handle; the context is closed on cleanup.
func newHandle(tb testing.TB, opts ...sparse.Option) (*sparse.Handle, *device.Context) {
	tb.Helper()
	dc := device.NewContext()
	tb.Cleanup(func() { _ = dc.Close() })
	h, err := sparse.NewHandle(dc, opts...)
	require.NoError(tb, err)

	return h, dc
}

// newTarget creates a deferred-nnz descriptor of format f with a pointer
// array where the format has one.
func newTarget(tb testing.TB, dc *device.Context, f sparse.Format, rows, cols int64,
	it dtype.IndexType, base dtype.IndexBase, t dtype.DataType) *sparse.SpMat {
	tb.Helper()
	var (
		s   *sparse.SpMat
		err error
	)
	switch f {
	case sparse.CSR:
		s, err = hostio.AllocCSRFor(dc, rows, cols, it, base, t)
	case sparse.CSC:
		s, err = hostio.AllocCSCFor(dc, rows, cols, it, base, t)
	default:
		s, err = hostio.AllocCOOFor(dc, rows, cols, it, base, t)
	}
	require.NoError(tb, err)

	return s
}

// convert drives size → analyze → attach → convert → sync and returns scratch.
func convert(tb testing.TB, h *sparse.Handle, a *sparse.DnMat, b *sparse.SpMat) *device.Buffer {
	tb.Helper()
	dc := h.Context()
	n, err := h.SizeDenseToSparse(a, b, sparse.DenseToSparseAlgDefault)
	require.NoError(tb, err)
	scratch, err := dc.Alloc(n, "scratch")
	require.NoError(tb, err)
	require.NoError(tb, h.AnalyzeDenseToSparse(a, b, sparse.DenseToSparseAlgDefault, scratch))
	require.NoError(tb, hostio.AttachArrays(dc, b))
	tok, err := h.ConvertDenseToSparse(a, b, sparse.DenseToSparseAlgDefault, scratch)
	require.NoError(tb, err)
	require.NoError(tb, h.Synchronize(context.Background()))
	require.True(tb, tok.Completed())

	return scratch
}

// readIndex decodes n entries of an index buffer.
func readIndex(tb testing.TB, dc *device.Context, buf *device.Buffer, n int, it dtype.IndexType) []int64 {
	tb.Helper()
	raw := make([]byte, n*it.Size())
	require.NoError(tb, dc.CopyToHost(raw, buf, 0))
	out := make([]int64, n)
	for i := range out {
		out[i] = dtype.LoadIndex(it, raw, i)
	}

	return out
}

// shift adds base to every element.
func shift(in []int64, base dtype.IndexBase) []int64 {
	out := make([]int64, len(in))
	for i, v := range in {
		out[i] = v + base.Offset()
	}

	return out
}

// randomDistinct returns nnz distinct indices of [0, n) in random order.
func randomDistinct(rng *rand.Rand, n, nnz int) []int64 {
	perm := rng.Perm(n)[:nnz]
	out := make([]int64, nnz)
	for i, p := range perm {
		out[i] = int64(p)
	}

	return out
}

// randomComplex returns n values; imaginary parts are zero unless cplx.
func randomComplex(rng *rand.Rand, n int, cplx bool) []complex128 {
	out := make([]complex128, n)
	for i := range out {
		re := rng.Float64()*2 - 1
		if cplx {
			out[i] = complex(re, rng.Float64()*2-1)
		} else {
			out[i] = complex(re, 0)
		}
	}

	return out
}

// requireNear compares complex values with an absolute tolerance.
func requireNear(tb testing.TB, want, got complex128, tol float64, msgAndArgs ...any) {
	tb.Helper()
	require.LessOrEqual(tb, cmplx.Abs(want-got), tol, msgAndArgs...)
}
