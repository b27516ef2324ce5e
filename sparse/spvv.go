// SPDX-License-Identifier: MIT

package sparse

import (
	"fmt"
	"math/cmplx"
	"slices"

	"github.com/katalvlaran/lvsparse/device"
	"github.com/katalvlaran/lvsparse/dtype"
)

// SizeSpVV returns the scratch bytes ComputeSpVV needs for result = op(x)·y
// accumulated in ct. result is only inspected for its location and type.
//
// op is NonTranspose or ConjugateTranspose (element-wise conjugate of x);
// Transpose fails with ErrUnsupportedOperation.
//
// Complexity: O(1).
func (h *Handle) SizeSpVV(op Op, x *SpVec, y *DnVec, result Scalar, ct dtype.DataType) (int, error) {
	n, err := h.sizeSpVV(op, x, y, result, ct)
	if err != nil {
		return 0, sparseErrorf("SizeSpVV", err)
	}
	h.log.Debug("sized", "routine", RoutineSpVV.String(), "nnz", x.nnz, "bytes", n)

	return n, nil
}

func (h *Handle) sizeSpVV(op Op, x *SpVec, y *DnVec, result Scalar, ct dtype.DataType) (int, error) {
	if err := h.check(); err != nil {
		return 0, err
	}
	if x == nil || y == nil || result == nil {
		return 0, ErrNilDescriptor
	}
	if op != NonTranspose && op != ConjugateTranspose {
		return 0, fmt.Errorf("spvv op %v: %w", op, ErrUnsupportedOperation)
	}
	if x.n != y.n {
		return 0, fmt.Errorf("x has %d, y has %d: %w", x.n, y.n, ErrShapeMismatch)
	}
	if err := CheckTypes(RoutineSpVV, Combo{A: x.typ, B: y.typ, Compute: ct}); err != nil {
		return 0, err
	}
	if !result.DataType().Valid() {
		return 0, fmt.Errorf("result type %v: %w", result.DataType(), ErrBadLayout)
	}

	return spvvScratch(x.nnz, h.opts.spvvBlock), nil
}

// ComputeSpVV issues result = Σ op(x.val[i]) * y[x.idx[i]-base], accumulated
// in ct and stored as result's type. The sum is split into blocks of
// WithSpVVBlock entries whose partials are reduced in block order, so the
// result does not depend on the worker count.
//
// A HostValue result reports ErrUnsynchronized until the kernel has run. A
// kernel the stream skips after an earlier fault leaves the value failed.
// Indices outside [0, N) fail the kernel; duplicates are only detected with
// WithIndexChecks(true).
//
// Complexity: O(nnz) on the stream.
func (h *Handle) ComputeSpVV(op Op, x *SpVec, y *DnVec, result Scalar, ct dtype.DataType, scratch *device.Buffer) (*device.Token, error) {
	const tag = "ComputeSpVV"
	need, err := h.sizeSpVV(op, x, y, result, ct)
	if err != nil {
		return nil, sparseErrorf(tag, err)
	}
	if err = checkScratch(scratch, need); err != nil {
		return nil, sparseErrorf(tag, err)
	}
	for _, c := range []struct {
		name   string
		buf    *device.Buffer
		needed bool
	}{
		{"x indices", x.indices, x.nnz > 0},
		{"x values", x.values, x.nnz > 0},
		{"y values", y.values, y.n > 0},
	} {
		if err = checkBuffer(c.name, c.buf, c.needed); err != nil {
			return nil, sparseErrorf(tag, err)
		}
	}

	finish := func(error) {}
	if hv, ok := result.(*HostValue); ok {
		finish = hv.begin()
	}
	k := spvvKernel{
		x: x, y: y, ct: ct,
		conj:   op == ConjugateTranspose && x.typ.IsComplex(),
		block:  h.opts.spvvBlock,
		checks: h.opts.indexChecks,
	}
	if need > 0 {
		k.partials = scratch.Bytes()
	}
	tok, err := h.submitOrSkip("spvv", func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				finish(fmt.Errorf("%w: spvv: panic: %v", ErrComputeFailure, r))
				panic(r)
			}
			if err != nil {
				finish(fmt.Errorf("%w: spvv: %w", ErrComputeFailure, err))
				return
			}
			finish(nil)
		}()
		total, err := k.run(h.opts.workers)
		if err != nil {
			return err
		}
		return result.store(total)
	}, func(skip error) {
		finish(fmt.Errorf("%w: spvv: %w", ErrComputeFailure, skip))
	})
	if err != nil {
		finish(nil)
		return nil, sparseErrorf(tag, err)
	}
	h.traceStage(RoutineSpVV, stageComputed, "nnz", x.nnz, "op", op.String(), "seq", tok.Seq())

	return tok, nil
}

// spvvKernel is the state of one SpVV launch.
type spvvKernel struct {
	x        *SpVec
	y        *DnVec
	ct       dtype.DataType
	conj     bool
	block    int
	checks   bool
	partials []byte
}

func (k spvvKernel) run(workers int) (complex128, error) {
	nnz := int(k.x.nnz)
	if k.checks {
		if err := k.checkDistinct(); err != nil {
			return 0, err
		}
	}
	if nnz <= k.block {
		return k.partial(0, nnz)
	}

	blocks := (nnz + k.block - 1) / k.block
	err := device.ParallelFor(workers, blocks, func(lo, hi int) error {
		for b := lo; b < hi; b++ {
			p, err := k.partial(b*k.block, min((b+1)*k.block, nnz))
			if err != nil {
				return err
			}
			dtype.Store(dtype.C64F, k.partials, b, p)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	var total complex128
	for b := 0; b < blocks; b++ {
		total = dtype.Round(k.ct, total+dtype.Load(dtype.C64F, k.partials, b))
	}

	return total, nil
}

// partial accumulates entries [lo, hi) in compute precision.
func (k spvvKernel) partial(lo, hi int) (complex128, error) {
	if lo >= hi {
		return 0, nil
	}
	idx, xv, yv := k.x.indices.Bytes(), k.x.values.Bytes(), k.y.values.Bytes()
	base := k.x.base.Offset()
	var acc complex128
	for i := lo; i < hi; i++ {
		pos := dtype.LoadIndex(k.x.idxType, idx, i) - base
		if pos < 0 || pos >= k.y.n {
			return 0, fmt.Errorf("x index %d at %d: %w", pos+base, i, errIndexOutOfRange)
		}
		a := dtype.Round(k.ct, dtype.Load(k.x.typ, xv, i))
		if k.conj {
			a = cmplx.Conj(a)
		}
		b := dtype.Round(k.ct, dtype.Load(k.y.typ, yv, int(pos)))
		acc = dtype.Round(k.ct, acc+dtype.Round(k.ct, a*b))
	}

	return acc, nil
}

// checkDistinct rejects repeated indices. O(nnz log nnz).
func (k spvvKernel) checkDistinct() error {
	if k.x.nnz < 2 {
		return nil
	}
	idx := make([]int64, k.x.nnz)
	raw := k.x.indices.Bytes()
	for i := range idx {
		idx[i] = dtype.LoadIndex(k.x.idxType, raw, i)
	}
	slices.Sort(idx)
	for i := 1; i < len(idx); i++ {
		if idx[i] == idx[i-1] {
			return fmt.Errorf("x index %d: %w", idx[i], errDuplicateIndex)
		}
	}

	return nil
}
