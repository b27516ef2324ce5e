// SPDX-License-Identifier: MIT

package sparse_test

import (
	"context"
	"fmt"
	"math/cmplx"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvsparse/device"
	"github.com/katalvlaran/lvsparse/dtype"
	"github.com/katalvlaran/lvsparse/hostio"
	"github.com/katalvlaran/lvsparse/sparse"
)

// spvvFixture uploads x and y for one SpVV case.
func spvvFixture(tb testing.TB, dc *device.Context, n int64, idx []int64, xv, yv []complex128,
	xt, yt dtype.DataType, base dtype.IndexBase) (*sparse.SpVec, *sparse.DnVec) {
	tb.Helper()
	x, err := hostio.UploadSpVec(dc, n, idx, xv, dtype.Index32, base, xt)
	require.NoError(tb, err)
	y, err := hostio.UploadVector(dc, yv, yt)
	require.NoError(tb, err)

	return x, y
}

// runSpVV sizes, allocates scratch, computes and synchronizes.
func runSpVV(tb testing.TB, h *sparse.Handle, op sparse.Op, x *sparse.SpVec, y *sparse.DnVec,
	result sparse.Scalar, ct dtype.DataType) {
	tb.Helper()
	dc := h.Context()
	n, err := h.SizeSpVV(op, x, y, result, ct)
	require.NoError(tb, err)
	var scratch *device.Buffer
	if n > 0 {
		scratch, err = dc.Alloc(n, "spvv.scratch")
		require.NoError(tb, err)
	}
	_, err = h.ComputeSpVV(op, x, y, result, ct, scratch)
	require.NoError(tb, err)
	require.NoError(tb, h.Synchronize(context.Background()))
}

func oneToNine() []complex128 {
	y := make([]complex128, 9)
	for i := range y {
		y[i] = complex(float64(i+1), 0)
	}

	return y
}

// TestSpVVWorkedExample: x = {0:1, 3:2, 5:3}, y = 1..9 gives 1*1 + 2*4 + 3*6.
func TestSpVVWorkedExample(t *testing.T) {
	t.Parallel()
	for _, base := range []dtype.IndexBase{dtype.BaseZero, dtype.BaseOne} {
		base := base
		t.Run(base.String(), func(t *testing.T) {
			t.Parallel()
			h, dc := newHandle(t)
			x, y := spvvFixture(t, dc, 9, []int64{0, 3, 5}, []complex128{1, 2, 3}, oneToNine(), dtype.R32F, dtype.R32F, base)
			result := sparse.NewHostValue(dtype.R32F, 0)
			runSpVV(t, h, sparse.NonTranspose, x, y, result, dtype.R32F)
			got, err := result.Value()
			require.NoError(t, err)
			require.Equal(t, complex128(27), got)
		})
	}
}

// TestSpVVHostValueNeedsSync holds the stream behind a gate: the result is
// unreadable until the queue reaches the kernel.
func TestSpVVHostValueNeedsSync(t *testing.T) {
	t.Parallel()
	h, dc := newHandle(t)
	x, y := spvvFixture(t, dc, 9, []int64{0, 3, 5}, []complex128{1, 2, 3}, oneToNine(), dtype.R64F, dtype.R64F, dtype.BaseZero)
	result := sparse.NewHostValue(dtype.R64F, -1)

	gate := make(chan struct{})
	_, err := dc.Submit("gate", func() error { <-gate; return nil })
	require.NoError(t, err)
	tok, err := h.ComputeSpVV(sparse.NonTranspose, x, y, result, dtype.R64F, nil)
	require.NoError(t, err)

	_, err = result.Value()
	require.ErrorIs(t, err, sparse.ErrUnsynchronized)
	require.False(t, tok.Completed())

	close(gate)
	require.NoError(t, h.Synchronize(context.Background()))
	got, err := result.Value()
	require.NoError(t, err)
	require.Equal(t, complex128(27), got)
}

// TestSpVVReferenceLaw compares against a float64/complex128 reference over
// random vectors, with blocks small enough to exercise the partial sums.
func TestSpVVReferenceLaw(t *testing.T) {
	t.Parallel()
	cases := []struct {
		typ dtype.DataType
		op  sparse.Op
		tol float64
	}{
		{dtype.R64F, sparse.NonTranspose, 1e-10},
		{dtype.R32F, sparse.NonTranspose, 1e-2},
		{dtype.C64F, sparse.NonTranspose, 1e-10},
		{dtype.C64F, sparse.ConjugateTranspose, 1e-10},
		{dtype.C32F, sparse.ConjugateTranspose, 1e-2},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(fmt.Sprintf("%v/%v", tc.typ, tc.op), func(t *testing.T) {
			t.Parallel()
			rng := rand.New(rand.NewSource(4242))
			const n, nnz = 5000, 3000
			idx := randomDistinct(rng, n, nnz)
			xv := randomComplex(rng, nnz, tc.typ.IsComplex())
			yv := randomComplex(rng, n, tc.typ.IsComplex())

			var want complex128
			for i, p := range idx {
				a := dtype.Round(tc.typ, xv[i])
				if tc.op == sparse.ConjugateTranspose {
					a = cmplx.Conj(a)
				}
				want += a * dtype.Round(tc.typ, yv[p])
			}

			h, dc := newHandle(t, sparse.WithSpVVBlock(64), sparse.WithWorkers(4))
			x, y := spvvFixture(t, dc, n, idx, xv, yv, tc.typ, tc.typ, dtype.BaseZero)
			result := sparse.NewHostValue(dtype.C64F, 0)
			runSpVV(t, h, tc.op, x, y, result, tc.typ)
			got, err := result.Value()
			require.NoError(t, err)
			requireNear(t, want, got, tc.tol)
		})
	}
}

// TestSpVVDeterministicAcrossWorkers: block partials are reduced in block
// order, so the bits do not depend on parallelism.
func TestSpVVDeterministicAcrossWorkers(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(7))
	idx := randomDistinct(rng, 20000, 9000)
	xv := randomComplex(rng, len(idx), false)
	yv := randomComplex(rng, 20000, false)

	var results []complex128
	for _, w := range []int{1, 3, 8} {
		h, dc := newHandle(t, sparse.WithWorkers(w), sparse.WithSpVVBlock(100))
		x, y := spvvFixture(t, dc, 20000, idx, xv, yv, dtype.R32F, dtype.R32F, dtype.BaseZero)
		result := sparse.NewHostValue(dtype.R32F, 0)
		runSpVV(t, h, sparse.NonTranspose, x, y, result, dtype.R32F)
		v, err := result.Value()
		require.NoError(t, err)
		results = append(results, v)
	}
	require.Equal(t, results[0], results[1])
	require.Equal(t, results[0], results[2])
}

// TestSpVVMixedPrecision covers the documented mixed combinations.
func TestSpVVMixedPrecision(t *testing.T) {
	t.Parallel()
	idx := []int64{1, 2, 4}
	xv := []complex128{100, -7, 3}
	yv := []complex128{0, 100, 2, 0, -128}

	t.Run("r8i/r32i", func(t *testing.T) {
		t.Parallel()
		h, dc := newHandle(t)
		x, y := spvvFixture(t, dc, 5, idx, xv, yv, dtype.R8I, dtype.R8I, dtype.BaseZero)
		result := sparse.NewHostValue(dtype.R32I, 0)
		runSpVV(t, h, sparse.NonTranspose, x, y, result, dtype.R32I)
		got, err := result.Value()
		require.NoError(t, err)
		require.Equal(t, complex128(100*100-7*2+3*-128), got)
	})
	t.Run("r8i/r32f", func(t *testing.T) {
		t.Parallel()
		h, dc := newHandle(t)
		x, y := spvvFixture(t, dc, 5, idx, xv, yv, dtype.R8I, dtype.R8I, dtype.BaseZero)
		result := sparse.NewHostValue(dtype.R32F, 0)
		runSpVV(t, h, sparse.ConjugateTranspose, x, y, result, dtype.R32F)
		got, err := result.Value()
		require.NoError(t, err)
		require.Equal(t, complex128(9602), got)
	})
	t.Run("r16f/r32f", func(t *testing.T) {
		t.Parallel()
		h, dc := newHandle(t)
		x, y := spvvFixture(t, dc, 5, idx, []complex128{0.5, 0.25, 2}, []complex128{0, 4, 8, 0, 1.5}, dtype.R16F, dtype.R16F, dtype.BaseZero)
		result := sparse.NewHostValue(dtype.R64F, 0)
		runSpVV(t, h, sparse.NonTranspose, x, y, result, dtype.R32F)
		got, err := result.Value()
		require.NoError(t, err)
		require.Equal(t, complex128(0.5*4+0.25*8+2*1.5), got)
	})
}

// TestSpVVDeviceResult writes into a device scalar and reads it back
// through the stream.
func TestSpVVDeviceResult(t *testing.T) {
	t.Parallel()
	h, dc := newHandle(t)
	x, y := spvvFixture(t, dc, 9, []int64{0, 3, 5}, []complex128{1, 2, 3}, oneToNine(), dtype.C64F, dtype.C64F, dtype.BaseZero)
	buf, err := dc.Alloc(32, "result")
	require.NoError(t, err)
	result, err := sparse.NewDeviceValue(buf, 16, dtype.C64F)
	require.NoError(t, err)
	require.Equal(t, device.Device, result.Location())

	_, err = h.ComputeSpVV(sparse.NonTranspose, x, y, result, dtype.C64F, nil)
	require.NoError(t, err)
	got, err := result.Read(dc)
	require.NoError(t, err)
	require.Equal(t, complex128(27), got)
}

// TestSpVVValidation covers the synchronous failures.
func TestSpVVValidation(t *testing.T) {
	t.Parallel()
	h, dc := newHandle(t, sparse.WithSpVVBlock(2))
	x, y := spvvFixture(t, dc, 9, []int64{0, 3, 5}, []complex128{1, 2, 3}, oneToNine(), dtype.R64F, dtype.R64F, dtype.BaseZero)
	result := sparse.NewHostValue(dtype.R64F, 0)

	_, err := h.SizeSpVV(sparse.Transpose, x, y, result, dtype.R64F)
	require.ErrorIs(t, err, sparse.ErrUnsupportedOperation)
	require.ErrorIs(t, err, sparse.ErrNotSupported)

	_, err = h.SizeSpVV(sparse.NonTranspose, x, y, nil, dtype.R64F)
	require.ErrorIs(t, err, sparse.ErrNilDescriptor)

	short, err := hostio.UploadVector(dc, oneToNine()[:8], dtype.R64F)
	require.NoError(t, err)
	_, err = h.SizeSpVV(sparse.NonTranspose, x, short, result, dtype.R64F)
	require.ErrorIs(t, err, sparse.ErrShapeMismatch)

	_, err = h.SizeSpVV(sparse.NonTranspose, x, y, result, dtype.R32F)
	require.ErrorIs(t, err, sparse.ErrUnsupportedTypes)

	// nnz 3 over blocks of 2: two partials of 16 bytes, aligned up.
	n, err := h.SizeSpVV(sparse.NonTranspose, x, y, result, dtype.R64F)
	require.NoError(t, err)
	require.Equal(t, sparse.ScratchAlignment, n)
	_, err = h.ComputeSpVV(sparse.NonTranspose, x, y, result, dtype.R64F, nil)
	require.ErrorIs(t, err, sparse.ErrNilDescriptor)
	small, err := dc.Alloc(16, "small")
	require.NoError(t, err)
	_, err = h.ComputeSpVV(sparse.NonTranspose, x, y, result, dtype.R64F, small)
	require.ErrorIs(t, err, sparse.ErrBufferTooSmall)

	got, err := result.Value()
	require.NoError(t, err, "failed validation must not leave the result pending")
	require.Zero(t, got)
}

// TestSpVVBadIndices: out-of-range always faults; duplicates fault only
// with index checks on.
func TestSpVVBadIndices(t *testing.T) {
	t.Parallel()
	t.Run("out-of-range", func(t *testing.T) {
		t.Parallel()
		h, dc := newHandle(t)
		x, y := spvvFixture(t, dc, 9, []int64{0, 9}, []complex128{1, 1}, oneToNine(), dtype.R64F, dtype.R64F, dtype.BaseZero)
		result := sparse.NewHostValue(dtype.R64F, 0)
		_, err := h.ComputeSpVV(sparse.NonTranspose, x, y, result, dtype.R64F, nil)
		require.NoError(t, err)
		err = h.Synchronize(context.Background())
		require.ErrorIs(t, err, sparse.ErrComputeFailure)
		_, err = result.Value()
		require.ErrorIs(t, err, sparse.ErrComputeFailure)
	})
	t.Run("duplicates", func(t *testing.T) {
		t.Parallel()
		for _, checks := range []bool{false, true} {
			h, dc := newHandle(t, sparse.WithIndexChecks(checks))
			x, y := spvvFixture(t, dc, 9, []int64{2, 2}, []complex128{1, 1}, oneToNine(), dtype.R64F, dtype.R64F, dtype.BaseZero)
			result := sparse.NewHostValue(dtype.R64F, 0)
			_, err := h.ComputeSpVV(sparse.NonTranspose, x, y, result, dtype.R64F, nil)
			require.NoError(t, err)
			err = h.Synchronize(context.Background())
			if checks {
				require.ErrorIs(t, err, sparse.ErrComputeFailure)
			} else {
				require.NoError(t, err)
			}
		}
	})
}

// TestSpVVEmpty: nnz 0 yields zero, overwriting the previous value.
func TestSpVVEmpty(t *testing.T) {
	t.Parallel()
	h, dc := newHandle(t)
	x, y := spvvFixture(t, dc, 9, nil, nil, oneToNine(), dtype.R32F, dtype.R32F, dtype.BaseZero)
	result := sparse.NewHostValue(dtype.R32F, 5)
	runSpVV(t, h, sparse.NonTranspose, x, y, result, dtype.R32F)
	got, err := result.Value()
	require.NoError(t, err)
	require.Zero(t, got)
}

// TestSpVVFacade runs the one-call form, including the blocked path.
func TestSpVVFacade(t *testing.T) {
	t.Parallel()
	h, dc := newHandle(t, sparse.WithSpVVBlock(1))
	x, y := spvvFixture(t, dc, 9, []int64{0, 3, 5}, []complex128{1, 2, 3}, oneToNine(), dtype.R64F, dtype.R64F, dtype.BaseZero)
	got, err := h.SpVV(context.Background(), sparse.NonTranspose, x, y, dtype.R64F)
	require.NoError(t, err)
	require.Equal(t, complex128(27), got)
}

// TestSpVVSkippedWriteFails queues two writes to one result behind a gate.
// The first faults, so the stream skips the second: the result must report
// that failure instead of staying unsynchronized, and the next write after
// Synchronize succeeds.
func TestSpVVSkippedWriteFails(t *testing.T) {
	t.Parallel()
	h, dc := newHandle(t)
	bad, y := spvvFixture(t, dc, 9, []int64{0, 9}, []complex128{1, 1}, oneToNine(), dtype.R64F, dtype.R64F, dtype.BaseZero)
	good, _ := spvvFixture(t, dc, 9, []int64{0, 3, 5}, []complex128{1, 2, 3}, oneToNine(), dtype.R64F, dtype.R64F, dtype.BaseZero)
	result := sparse.NewHostValue(dtype.R64F, 0)

	gate := make(chan struct{})
	_, err := dc.Submit("gate", func() error { <-gate; return nil })
	require.NoError(t, err)
	_, err = h.ComputeSpVV(sparse.NonTranspose, bad, y, result, dtype.R64F, nil)
	require.NoError(t, err)
	second, err := h.ComputeSpVV(sparse.NonTranspose, good, y, result, dtype.R64F, nil)
	require.NoError(t, err)
	close(gate)

	require.ErrorIs(t, h.Synchronize(context.Background()), sparse.ErrComputeFailure)
	require.ErrorIs(t, second.Err(), device.ErrSkipped)
	_, err = result.Value()
	require.ErrorIs(t, err, sparse.ErrComputeFailure)
	require.ErrorIs(t, err, device.ErrSkipped)

	runSpVV(t, h, sparse.NonTranspose, good, y, result, dtype.R64F)
	got, err := result.Value()
	require.NoError(t, err)
	require.Equal(t, complex128(27), got)
}
