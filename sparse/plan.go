// SPDX-License-Identifier: MIT

package sparse

import "github.com/katalvlaran/lvsparse/dtype"

// plan is the stage state one staged operation leaves on a descriptor.
// A later stage proceeds only with the same scratch buffer and an unchanged
// operand configuration.
type plan struct {
	stage   stage
	scratch uint64
	fp      fingerprint
}

// operand is the shape part of a dense operand's fingerprint.
type operand struct {
	rows, cols, ld int64
	order          Order
	typ            dtype.DataType
	op             Op
}

func operandOf(a *DnMat, op Op) operand {
	return operand{rows: a.rows, cols: a.cols, ld: a.ld, order: a.order, typ: a.typ, op: op}
}

// fingerprint captures everything a stage plan depends on. Values of the
// operands are excluded: only shapes, types and, for SDDMM, the identity of
// the index arrays that carry C's pattern.
type fingerprint struct {
	routine Routine
	alg     uint8
	a, b    operand
	compute dtype.DataType

	format           Format
	rows, cols, nnz  int64
	offType, idxType dtype.IndexType
	base             dtype.IndexBase
	typ              dtype.DataType

	offsets, rowInd, colInd uint64
}

// denseToSparseFingerprint binds a dense-to-sparse plan; caller holds b.mu.
func denseToSparseFingerprint(a *DnMat, b *SpMat, alg DenseToSparseAlg) fingerprint {
	return fingerprint{
		routine: RoutineDenseToSparse, alg: uint8(alg),
		a:      operandOf(a, NonTranspose),
		format: b.format, rows: b.rows, cols: b.cols,
		offType: b.offType, idxType: b.idxType, base: b.base, typ: b.typ,
		offsets: bufferID(b.offsets),
	}
}

// sddmmFingerprint binds an SDDMM plan; caller holds c.mu.
func sddmmFingerprint(opA, opB Op, a, b *DnMat, c *SpMat, ct dtype.DataType, alg SDDMMAlg) fingerprint {
	return fingerprint{
		routine: RoutineSDDMM, alg: uint8(alg),
		a: operandOf(a, opA), b: operandOf(b, opB), compute: ct,
		format: c.format, rows: c.rows, cols: c.cols, nnz: c.nnz,
		offType: c.offType, idxType: c.idxType, base: c.base, typ: c.typ,
		offsets: bufferID(c.offsets), rowInd: bufferID(c.rowInd), colInd: bufferID(c.colInd),
	}
}
