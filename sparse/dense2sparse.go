// SPDX-License-Identifier: MIT

// Package sparse: dense-to-sparse conversion.
//
// Protocol (per destination descriptor):
//
//	SizeDenseToSparse    → scratch bytes; pure
//	AnalyzeDenseToSparse → nnz + pointer array; index/value arrays untouched
//	(caller allocates nnz-sized arrays and attaches them with SetPointers)
//	ConvertDenseToSparse → index/value arrays; asynchronous
//
// Zero detection is exact equality with the zero element, so re-densifying
// the result reproduces the dense input bit for bit.
package sparse

import (
	"context"
	"fmt"

	"github.com/katalvlaran/lvsparse/device"
	"github.com/katalvlaran/lvsparse/dtype"
)

// SizeDenseToSparse returns the scratch bytes needed to convert a into b.
// Only shape, format and types are read; b.nnz and its arrays may be unset.
//
// Complexity: O(1).
func (h *Handle) SizeDenseToSparse(a *DnMat, b *SpMat, alg DenseToSparseAlg) (int, error) {
	n, err := h.sizeDenseToSparse(a, b, alg)
	if err != nil {
		return 0, sparseErrorf("SizeDenseToSparse", err)
	}
	h.log.Debug("sized", "routine", RoutineDenseToSparse.String(), "format", b.format.String(), "bytes", n)

	return n, nil
}

func (h *Handle) sizeDenseToSparse(a *DnMat, b *SpMat, alg DenseToSparseAlg) (int, error) {
	if err := h.check(); err != nil {
		return 0, err
	}
	if a == nil || b == nil {
		return 0, ErrNilDescriptor
	}
	if alg != DenseToSparseAlgDefault {
		return 0, fmt.Errorf("dense2sparse alg %d: %w", alg, ErrUnsupportedAlgorithm)
	}
	if !b.format.Valid() {
		return 0, fmt.Errorf("%v: %w", b.format, ErrUnsupportedFormat)
	}
	if a.rows != b.rows || a.cols != b.cols {
		return 0, fmt.Errorf("dense %dx%d vs sparse %dx%d: %w", a.rows, a.cols, b.rows, b.cols, ErrShapeMismatch)
	}
	if err := CheckTypes(RoutineDenseToSparse, Combo{A: a.typ, B: b.typ}); err != nil {
		return 0, err
	}

	return denseToSparseScratch(b), nil
}

// AnalyzeDenseToSparse counts the non-zeros of a, stores the count as b's
// nnz and, for CSR/CSC, writes b's pointer array (with b's index base).
//
// The call waits for its counting kernel, since the caller needs nnz to size
// the arrays it attaches next; the pointer-array write is stream-ordered.
// Fails with ErrIndexOverflow, leaving b untouched, when b's offset type
// cannot hold nnz.
//
// Stage 1 (count):  per-line counts, parallel over lines.
// Stage 2 (prefix): exclusive prefix sum into the scratch table.
// Stage 3 (commit): nnz + pointers, then the plan {analyzed, scratch, fingerprint}.
//
// Complexity: O(rows*cols) on the stream.
func (h *Handle) AnalyzeDenseToSparse(a *DnMat, b *SpMat, alg DenseToSparseAlg, scratch *device.Buffer) error {
	const tag = "AnalyzeDenseToSparse"
	need, err := h.sizeDenseToSparse(a, b, alg)
	if err != nil {
		return sparseErrorf(tag, err)
	}
	if err = checkScratch(scratch, need); err != nil {
		return sparseErrorf(tag, err)
	}
	if err = checkBuffer("dense values", a.values, a.elements() > 0); err != nil {
		return sparseErrorf(tag, err)
	}

	b.mu.RLock()
	fp := denseToSparseFingerprint(a, b, alg)
	offsets := b.offsets
	b.mu.RUnlock()
	if b.format != COO {
		if err = checkArray("pointers", offsets, b.major()+1, b.offType.Size()); err != nil {
			return sparseErrorf(tag, err)
		}
	}

	major, minor := b.major(), b.minor()
	table := scratch.Bytes()
	var nnz int64
	tok, err := h.submit("dense2sparse.analysis", func() error {
		src := a.values.Bytes()
		// Stage 1: counts land at table[line+1].
		err := device.ParallelFor(h.opts.workers, int(major), func(lo, hi int) error {
			for line := int64(lo); line < int64(hi); line++ {
				var cnt int64
				for k := int64(0); k < minor; k++ {
					i, j := lineCoords(b.format, line, k)
					if !dtype.IsZero(a.typ, src, a.index(i, j)) {
						cnt++
					}
				}
				dtype.StoreIndex(dtype.Index64, table, int(line+1), cnt)
			}
			return nil
		})
		if err != nil {
			return err
		}
		// Stage 2: in-place prefix sum.
		var run int64
		dtype.StoreIndex(dtype.Index64, table, 0, 0)
		for line := 1; line <= int(major); line++ {
			run += dtype.LoadIndex(dtype.Index64, table, line)
			dtype.StoreIndex(dtype.Index64, table, line, run)
		}
		nnz = run
		return nil
	})
	if err != nil {
		return sparseErrorf(tag, err)
	}
	if err = tok.Wait(context.Background()); err != nil {
		return sparseErrorf(tag, err)
	}
	if err = checkIndexRange(b.offType, nnz+b.base.Offset()); err != nil {
		return sparseErrorf(tag, err)
	}

	// Stage 3: commit.
	if b.format != COO {
		base, ot := b.base.Offset(), b.offType
		if _, err = h.submit("dense2sparse.pointers", func() error {
			dst := offsets.Bytes()
			for line := 0; line <= int(major); line++ {
				dtype.StoreIndex(ot, dst, line, dtype.LoadIndex(dtype.Index64, table, line)+base)
			}
			return nil
		}); err != nil {
			return sparseErrorf(tag, err)
		}
	}
	b.mu.Lock()
	b.nnz = nnz
	b.d2s = plan{stage: stageAnalyzed, scratch: bufferID(scratch), fp: fp}
	b.mu.Unlock()
	h.traceStage(RoutineDenseToSparse, stageAnalyzed, "format", b.format.String(), "nnz", nnz)

	return nil
}

// ConvertDenseToSparse fills b's index and value arrays from a, using the
// prefix table analysis left in scratch. CSR rows hold ascending columns,
// CSC columns ascending rows; COO entries are in row-major order.
//
// Preconditions (checked before anything is issued):
//   - b was analysed with this same scratch buffer (else ErrInvalidState).
//   - shapes, types and b's pointer array are unchanged (else ErrStaleScratch).
//   - b's arrays hold nnz entries (else ErrNilDescriptor / ErrArrayTooSmall).
//
// A dense input that changed its non-zero pattern since analysis fails the
// kernel with ErrComputeFailure.
//
// Complexity: O(rows*cols) on the stream.
func (h *Handle) ConvertDenseToSparse(a *DnMat, b *SpMat, alg DenseToSparseAlg, scratch *device.Buffer) (*device.Token, error) {
	const tag = "ConvertDenseToSparse"
	need, err := h.sizeDenseToSparse(a, b, alg)
	if err != nil {
		return nil, sparseErrorf(tag, err)
	}
	if err = checkScratch(scratch, need); err != nil {
		return nil, sparseErrorf(tag, err)
	}
	if err = checkBuffer("dense values", a.values, a.elements() > 0); err != nil {
		return nil, sparseErrorf(tag, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	switch {
	case b.d2s.stage < stageAnalyzed:
		return nil, fmt.Errorf("%s: convert before analysis: %w", tag, ErrInvalidState)
	case b.d2s.scratch != bufferID(scratch):
		return nil, fmt.Errorf("%s: scratch differs from the analysed one: %w", tag, ErrInvalidState)
	case b.d2s.fp != denseToSparseFingerprint(a, b, alg):
		return nil, sparseErrorf(tag, ErrStaleScratch)
	}
	if err = b.checkPayload(); err != nil {
		return nil, sparseErrorf(tag, err)
	}

	sn := b.snap()
	table := scratch.Bytes()
	tok, err := h.submit("dense2sparse.convert", func() error {
		return h.scatterDense(a, sn, table)
	})
	if err != nil {
		return nil, sparseErrorf(tag, err)
	}
	b.d2s.stage = stageConverted
	h.traceStage(RoutineDenseToSparse, stageConverted, "format", sn.format.String(), "nnz", sn.nnz, "seq", tok.Seq())

	return tok, nil
}

// scatterDense writes every non-zero of a into the arrays of sn, one line
// per task chunk; table[line] is the first slot of the line.
func (h *Handle) scatterDense(a *DnMat, sn snapshot, table []byte) error {
	if sn.nnz == 0 {
		return nil
	}
	src := a.values.Bytes()
	vals := sn.values.Bytes()
	var rowB, colB []byte
	if sn.rowInd != nil {
		rowB = sn.rowInd.Bytes()
	}
	if sn.colInd != nil {
		colB = sn.colInd.Bytes()
	}
	major, minor := sn.rows, sn.cols
	if sn.format == CSC {
		major, minor = sn.cols, sn.rows
	}

	return device.ParallelFor(h.opts.workers, int(major), func(lo, hi int) error {
		for line := int64(lo); line < int64(hi); line++ {
			pos := dtype.LoadIndex(dtype.Index64, table, int(line))
			end := dtype.LoadIndex(dtype.Index64, table, int(line+1))
			for k := int64(0); k < minor; k++ {
				i, j := lineCoords(sn.format, line, k)
				e := a.index(i, j)
				if dtype.IsZero(a.typ, src, e) {
					continue
				}
				if pos >= end {
					return fmt.Errorf("line %d: %w", line, errDenseChanged)
				}
				switch sn.format {
				case CSR:
					dtype.StoreIndex(sn.idxType, colB, int(pos), j+sn.base)
				case CSC:
					dtype.StoreIndex(sn.idxType, rowB, int(pos), i+sn.base)
				case COO:
					dtype.StoreIndex(sn.idxType, rowB, int(pos), i+sn.base)
					dtype.StoreIndex(sn.idxType, colB, int(pos), j+sn.base)
				}
				dtype.Copy(a.typ, vals, int(pos), src, e)
				pos++
			}
			if pos != end {
				return fmt.Errorf("line %d: %w", line, errDenseChanged)
			}
		}
		return nil
	})
}

// lineCoords maps (line, k) to (row, col): lines are rows for CSR/COO and
// columns for CSC.
func lineCoords(f Format, line, k int64) (i, j int64) {
	if f == CSC {
		return k, line
	}

	return line, k
}
