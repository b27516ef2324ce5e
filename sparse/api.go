// SPDX-License-Identifier: MIT
// Package sparse: public API facades.
//
// Purpose:
//   - Run a complete staged protocol in one call for callers that do not
//     manage scratch or output arrays themselves.
//   - Each facade composes the canonical stages; no numeric logic lives here.
//
// Determinism & Policy:
//   - Scratch comes from the handle's context allocator and is freed after
//     the stream has drained, never earlier.
//   - Every facade synchronizes before returning, so results are host-visible.

package sparse

import (
	"context"
	"errors"

	"github.com/katalvlaran/lvsparse/device"
	"github.com/katalvlaran/lvsparse/dtype"
)

// DenseToSparse converts a into b with the default algorithm. Missing
// pointer arrays are allocated and attached before analysis; index and
// value arrays are allocated to the discovered nnz and attached before
// conversion. Arrays allocated here are owned by the caller afterwards.
//
// Complexity: O(rows*cols).
func (h *Handle) DenseToSparse(ctx context.Context, a *DnMat, b *SpMat) (err error) {
	const tag = "DenseToSparse"
	n, err := h.SizeDenseToSparse(a, b, DenseToSparseAlgDefault)
	if err != nil {
		return err
	}
	scratch, err := h.dc.Alloc(n, "dense2sparse.scratch")
	if err != nil {
		return sparseErrorf(tag, err)
	}
	defer func() { err = h.release(ctx, err, scratch) }()

	// Arrays allocated here are freed again if the protocol fails before
	// they are attached.
	var owned []*device.Buffer
	alloc := func(n int, label string) (*device.Buffer, error) {
		buf, err := h.dc.Alloc(n, label)
		if err == nil {
			owned = append(owned, buf)
		}
		return buf, err
	}
	abandon := func(err error) error {
		for _, buf := range owned {
			err = errors.Join(err, h.dc.Free(buf))
		}
		owned = nil
		return err
	}

	if b.format != COO && b.Offsets() == nil {
		ptr, err := alloc(int(b.major()+1)*b.offType.Size(), b.format.String()+".pointers")
		if err != nil {
			return sparseErrorf(tag, err)
		}
		if err = b.attachPointers(ptr, nil, nil, nil); err != nil {
			return abandon(err)
		}
	}
	if err = h.AnalyzeDenseToSparse(a, b, DenseToSparseAlgDefault, scratch); err != nil {
		return err
	}
	owned = nil

	nnz := b.NNZ()
	idxBytes, valBytes := int(nnz)*b.idxType.Size(), int(nnz)*b.typ.Size()
	var rowInd, colInd *device.Buffer
	if b.format != CSR {
		if rowInd, err = alloc(idxBytes, b.format.String()+".rowInd"); err != nil {
			return abandon(sparseErrorf(tag, err))
		}
	}
	if b.format != CSC {
		if colInd, err = alloc(idxBytes, b.format.String()+".colInd"); err != nil {
			return abandon(sparseErrorf(tag, err))
		}
	}
	values, err := alloc(valBytes, b.format.String()+".values")
	if err != nil {
		return abandon(sparseErrorf(tag, err))
	}
	if err = b.attachPointers(b.Offsets(), rowInd, colInd, values); err != nil {
		return abandon(err)
	}
	_, err = h.ConvertDenseToSparse(a, b, DenseToSparseAlgDefault, scratch)

	return err
}

// attachPointers routes arrays to the SetPointers method of b's format.
func (b *SpMat) attachPointers(offsets, rowInd, colInd, values *device.Buffer) error {
	switch b.format {
	case CSR:
		return b.CSRSetPointers(offsets, colInd, values)
	case CSC:
		return b.CSCSetPointers(offsets, rowInd, values)
	default:
		return b.COOSetPointers(rowInd, colInd, values)
	}
}

// SpVV returns op(x)·y accumulated in ct and stored as ct.
//
// Complexity: O(nnz).
func (h *Handle) SpVV(ctx context.Context, op Op, x *SpVec, y *DnVec, ct dtype.DataType) (v complex128, err error) {
	result := NewHostValue(ct, 0)
	n, err := h.SizeSpVV(op, x, y, result, ct)
	if err != nil {
		return 0, err
	}
	var scratch *device.Buffer
	if n > 0 {
		if scratch, err = h.dc.Alloc(n, "spvv.scratch"); err != nil {
			return 0, sparseErrorf("SpVV", err)
		}
	}
	if _, err = h.ComputeSpVV(op, x, y, result, ct, scratch); err != nil {
		return 0, errors.Join(err, h.release(ctx, nil, scratch))
	}
	if err = h.release(ctx, nil, scratch); err != nil {
		return 0, err
	}

	return result.Value()
}

// SDDMM computes C := alpha*(op(A)·op(B))∘spy(C) + beta*C with host scalars
// of type ct.
//
// Complexity: O(nnz*k).
func (h *Handle) SDDMM(ctx context.Context, opA, opB Op, alpha complex128, a, b *DnMat,
	beta complex128, c *SpMat, ct dtype.DataType) (err error) {
	al, be := NewHostValue(ct, alpha), NewHostValue(ct, beta)
	n, err := h.SizeSDDMM(opA, opB, al, a, b, be, c, ct, SDDMMAlgDefault)
	if err != nil {
		return err
	}
	var scratch *device.Buffer
	if n > 0 {
		if scratch, err = h.dc.Alloc(n, "sddmm.scratch"); err != nil {
			return sparseErrorf("SDDMM", err)
		}
	}
	defer func() { err = h.release(ctx, err, scratch) }()

	if _, err = h.PreprocessSDDMM(opA, opB, al, a, b, be, c, ct, SDDMMAlgDefault, scratch); err != nil {
		return err
	}
	_, err = h.ComputeSDDMM(opA, opB, al, a, b, be, c, ct, SDDMMAlgDefault, scratch)

	return err
}

// release drains the stream, then frees scratch. Errors are joined to err.
func (h *Handle) release(ctx context.Context, err error, scratch *device.Buffer) error {
	syncErr := h.Synchronize(ctx)
	if syncErr != nil {
		// The kernel may still hold scratch when the wait was cut short.
		if ctx.Err() != nil {
			return errors.Join(err, syncErr)
		}
	}

	return errors.Join(err, syncErr, h.dc.Free(scratch))
}
