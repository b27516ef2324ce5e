// SPDX-License-Identifier: MIT

// Package sparse: sampled dense-dense matrix multiplication.
//
//	C := alpha * (op(A)·op(B)) ∘ spy(C) + beta * C
//
// Only C's stored entries are computed; the pattern (nnz, pointers,
// indices) is never modified. PreprocessSDDMM expands the pattern into a
// coordinate table in scratch; it must be re-run when the pattern changes
// (a new nnz or new index arrays) but not when only C's values change.
package sparse

import (
	"fmt"

	"github.com/katalvlaran/lvsparse/device"
	"github.com/katalvlaran/lvsparse/dtype"
)

// SizeSDDMM returns the scratch bytes for PreprocessSDDMM/ComputeSDDMM.
//
// Shapes: op(A) is m×k, op(B) is k×n, C is m×n. opA/opB are NonTranspose or
// Transpose; ConjugateTranspose fails with ErrUnsupportedOperation. C's
// pattern must already be attached. alpha and beta must be of type ct.
//
// Complexity: O(1).
func (h *Handle) SizeSDDMM(opA, opB Op, alpha Scalar, a, b *DnMat, beta Scalar, c *SpMat,
	ct dtype.DataType, alg SDDMMAlg) (int, error) {
	n, err := h.sizeSDDMM(opA, opB, alpha, a, b, beta, c, ct, alg)
	if err != nil {
		return 0, sparseErrorf("SizeSDDMM", err)
	}
	h.log.Debug("sized", "routine", RoutineSDDMM.String(), "format", c.format.String(), "bytes", n)

	return n, nil
}

func (h *Handle) sizeSDDMM(opA, opB Op, alpha Scalar, a, b *DnMat, beta Scalar, c *SpMat,
	ct dtype.DataType, alg SDDMMAlg) (int, error) {
	if err := h.check(); err != nil {
		return 0, err
	}
	if a == nil || b == nil || c == nil || alpha == nil || beta == nil {
		return 0, ErrNilDescriptor
	}
	for _, op := range []Op{opA, opB} {
		if op != NonTranspose && op != Transpose {
			return 0, fmt.Errorf("sddmm op %v: %w", op, ErrUnsupportedOperation)
		}
	}
	if alg != SDDMMAlgDefault {
		return 0, fmt.Errorf("sddmm alg %d: %w", alg, ErrUnsupportedAlgorithm)
	}
	if !c.format.Valid() {
		return 0, fmt.Errorf("%v: %w", c.format, ErrUnsupportedFormat)
	}
	m, k := opDims(opA, a)
	k2, n := opDims(opB, b)
	if k != k2 || c.rows != m || c.cols != n {
		return 0, fmt.Errorf("op(A) %dx%d, op(B) %dx%d, C %dx%d: %w", m, k, k2, n, c.rows, c.cols, ErrShapeMismatch)
	}
	if err := CheckTypes(RoutineSDDMM, Combo{A: a.typ, B: b.typ, C: c.typ, Compute: ct}); err != nil {
		return 0, err
	}
	if alpha.DataType() != ct || beta.DataType() != ct {
		return 0, fmt.Errorf("alpha %v, beta %v, compute %v: %w", alpha.DataType(), beta.DataType(), ct, ErrUnsupportedTypes)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.checkPayload(); err != nil {
		return 0, err
	}

	return sddmmScratch(c.nnz), nil
}

// PreprocessSDDMM expands C's pattern into (row, col) pairs in scratch and
// records the plan on C. Stored pointers/indices outside the matrix fail
// the kernel; with WithIndexChecks(true) non-ascending indices within a
// row (CSR), column (CSC) or row-major COO order fail it too.
//
// Complexity: O(nnz + major) on the stream.
func (h *Handle) PreprocessSDDMM(opA, opB Op, alpha Scalar, a, b *DnMat, beta Scalar, c *SpMat,
	ct dtype.DataType, alg SDDMMAlg, scratch *device.Buffer) (*device.Token, error) {
	const tag = "PreprocessSDDMM"
	need, err := h.sizeSDDMM(opA, opB, alpha, a, b, beta, c, ct, alg)
	if err != nil {
		return nil, sparseErrorf(tag, err)
	}
	if err = checkScratch(scratch, need); err != nil {
		return nil, sparseErrorf(tag, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	sn := c.snap()
	fp := sddmmFingerprint(opA, opB, a, b, c, ct, alg)
	var coords []byte
	if need > 0 {
		coords = scratch.Bytes()
	}
	checks := h.opts.indexChecks
	tok, err := h.submit("sddmm.preprocess", func() error {
		return expandPattern(sn, coords, checks)
	})
	if err != nil {
		return nil, sparseErrorf(tag, err)
	}
	c.sddmm = plan{stage: stagePreprocessed, scratch: bufferID(scratch), fp: fp}
	h.traceStage(RoutineSDDMM, stagePreprocessed, "format", sn.format.String(), "nnz", sn.nnz, "seq", tok.Seq())

	return tok, nil
}

// ComputeSDDMM issues C(i,j) = alpha*dot(i,j) + beta*C(i,j) for every
// stored (i,j), in ct precision, then narrows to C's type. alpha and beta
// are read when the kernel runs. When beta is zero the old values of C are
// not read, so NaN or Inf in them does not propagate.
//
// Fails with ErrInvalidState without a PreprocessSDDMM on this scratch, and
// with ErrStaleScratch when shapes, types, ops or C's pattern changed.
//
// Complexity: O(nnz*k) on the stream.
func (h *Handle) ComputeSDDMM(opA, opB Op, alpha Scalar, a, b *DnMat, beta Scalar, c *SpMat,
	ct dtype.DataType, alg SDDMMAlg, scratch *device.Buffer) (*device.Token, error) {
	const tag = "ComputeSDDMM"
	need, err := h.sizeSDDMM(opA, opB, alpha, a, b, beta, c, ct, alg)
	if err != nil {
		return nil, sparseErrorf(tag, err)
	}
	if err = checkScratch(scratch, need); err != nil {
		return nil, sparseErrorf(tag, err)
	}
	if err = checkBuffer("A values", a.values, a.elements() > 0); err != nil {
		return nil, sparseErrorf(tag, err)
	}
	if err = checkBuffer("B values", b.values, b.elements() > 0); err != nil {
		return nil, sparseErrorf(tag, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.sddmm.stage < stagePreprocessed:
		return nil, fmt.Errorf("%s: compute before preprocess: %w", tag, ErrInvalidState)
	case c.sddmm.scratch != bufferID(scratch):
		return nil, fmt.Errorf("%s: scratch differs from the preprocessed one: %w", tag, ErrInvalidState)
	case c.sddmm.fp != sddmmFingerprint(opA, opB, a, b, c, ct, alg):
		return nil, sparseErrorf(tag, ErrStaleScratch)
	}

	k := sddmmKernel{opA: opA, opB: opB, a: a, b: b, ct: ct, alpha: alpha, beta: beta, sn: c.snap()}
	_, k.depth = opDims(opA, a)
	if need > 0 {
		k.coords = scratch.Bytes()
	}
	tok, err := h.submit("sddmm.compute", func() error {
		return k.run(h.opts.workers)
	})
	if err != nil {
		return nil, sparseErrorf(tag, err)
	}
	c.sddmm.stage = stageComputed
	h.traceStage(RoutineSDDMM, stageComputed, "nnz", k.sn.nnz, "opA", opA.String(), "opB", opB.String(), "seq", tok.Seq())

	return tok, nil
}

// expandPattern writes the 0-based (row, col) of every stored entry.
func expandPattern(sn snapshot, coords []byte, checks bool) error {
	if sn.nnz == 0 {
		return nil
	}
	put := func(p, i, j int64) {
		dtype.StoreIndex(dtype.Index64, coords, int(2*p), i)
		dtype.StoreIndex(dtype.Index64, coords, int(2*p+1), j)
	}

	if sn.format == COO {
		rb, cb := sn.rowInd.Bytes(), sn.colInd.Bytes()
		prevI, prevJ := int64(-1), int64(-1)
		for p := int64(0); p < sn.nnz; p++ {
			i := dtype.LoadIndex(sn.idxType, rb, int(p)) - sn.base
			j := dtype.LoadIndex(sn.idxType, cb, int(p)) - sn.base
			if i < 0 || i >= sn.rows || j < 0 || j >= sn.cols {
				return fmt.Errorf("entry %d at (%d,%d): %w", p, i, j, errIndexOutOfRange)
			}
			if checks && (i < prevI || (i == prevI && j <= prevJ)) {
				return fmt.Errorf("entry %d at (%d,%d): %w", p, i, j, errUnsortedIndex)
			}
			prevI, prevJ = i, j
			put(p, i, j)
		}
		return nil
	}

	major, minor := sn.rows, sn.cols
	ind := sn.colInd
	if sn.format == CSC {
		major, minor = sn.cols, sn.rows
		ind = sn.rowInd
	}
	ob, ib := sn.offsets.Bytes(), ind.Bytes()
	first := dtype.LoadIndex(sn.offType, ob, 0) - sn.base
	last := dtype.LoadIndex(sn.offType, ob, int(major)) - sn.base
	if first != 0 || last != sn.nnz {
		return fmt.Errorf("pointers span [%d,%d), want [0,%d): %w", first, last, sn.nnz, errIndexOutOfRange)
	}
	for line := int64(0); line < major; line++ {
		lo := dtype.LoadIndex(sn.offType, ob, int(line)) - sn.base
		hi := dtype.LoadIndex(sn.offType, ob, int(line+1)) - sn.base
		if lo < 0 || hi < lo || hi > sn.nnz {
			return fmt.Errorf("pointers [%d,%d) of line %d: %w", lo, hi, line, errIndexOutOfRange)
		}
		prev := int64(-1)
		for p := lo; p < hi; p++ {
			k := dtype.LoadIndex(sn.idxType, ib, int(p)) - sn.base
			if k < 0 || k >= minor {
				return fmt.Errorf("index %d of line %d: %w", k, line, errIndexOutOfRange)
			}
			if checks && k <= prev {
				return fmt.Errorf("index %d of line %d: %w", k, line, errUnsortedIndex)
			}
			prev = k
			i, j := lineCoords(sn.format, line, k)
			put(p, i, j)
		}
	}

	return nil
}

// sddmmKernel is the state of one SDDMM compute launch.
type sddmmKernel struct {
	opA, opB    Op
	a, b        *DnMat
	depth       int64
	ct          dtype.DataType
	alpha, beta Scalar
	sn          snapshot
	coords      []byte
}

func (k sddmmKernel) run(workers int) error {
	if k.sn.nnz == 0 {
		return nil
	}
	alpha, err := k.alpha.load()
	if err != nil {
		return fmt.Errorf("alpha: %w", err)
	}
	beta, err := k.beta.load()
	if err != nil {
		return fmt.Errorf("beta: %w", err)
	}
	alpha, beta = dtype.Round(k.ct, alpha), dtype.Round(k.ct, beta)
	ab, bb, vals := k.a.values.Bytes(), k.b.values.Bytes(), k.sn.values.Bytes()

	return device.ParallelFor(workers, int(k.sn.nnz), func(lo, hi int) error {
		for p := lo; p < hi; p++ {
			i := dtype.LoadIndex(dtype.Index64, k.coords, 2*p)
			j := dtype.LoadIndex(dtype.Index64, k.coords, 2*p+1)
			var dot complex128
			for l := int64(0); l < k.depth; l++ {
				x := dtype.Round(k.ct, opAt(k.a, k.opA, ab, i, l))
				y := dtype.Round(k.ct, opAt(k.b, k.opB, bb, l, j))
				dot = dtype.Round(k.ct, dot+dtype.Round(k.ct, x*y))
			}
			v := dtype.Round(k.ct, alpha*dot)
			if beta != 0 {
				old := dtype.Round(k.ct, dtype.Load(k.sn.typ, vals, p))
				v = dtype.Round(k.ct, v+dtype.Round(k.ct, beta*old))
			}
			dtype.Store(k.sn.typ, vals, p, v)
		}
		return nil
	})
}

// opAt reads op(M)[r, c].
func opAt(m *DnMat, op Op, raw []byte, r, c int64) complex128 {
	if op == Transpose {
		return m.at(raw, c, r)
	}

	return m.at(raw, r, c)
}
