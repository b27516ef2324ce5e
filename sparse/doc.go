// SPDX-License-Identifier: MIT

// Package sparse is a staged dense/sparse interop compute layer.
//
// Three operation families run on the ordered stream of a device.Context,
// each driven by the same protocol:
//
//	size-query → (analysis | preprocess) → execution
//
//	Dense→Sparse: SizeDenseToSparse → AnalyzeDenseToSparse → ConvertDenseToSparse
//	SpVV:         SizeSpVV → ComputeSpVV
//	SDDMM:        SizeSDDMM → PreprocessSDDMM → ComputeSDDMM
//
// The size query is a pure function of descriptor metadata. The caller
// allocates a scratch buffer of at least that many bytes and passes the same
// buffer to every later stage of the operation. Stage order, scratch identity
// and the operand configuration are recorded on the sparse descriptor, so a
// stage called out of order fails with ErrInvalidState and a stage called
// after the operands changed fails with ErrStaleScratch.
//
// Descriptors:
//   - DnMat, DnVec: dense views (row- or column-major, leading dimension).
//   - SpMat: tagged union over CSR, CSC and COO with 32/64-bit indices and a
//     0/1 index base. nnz may be unknown at creation (dense-to-sparse output).
//   - SpVec: sparse vector with fixed nnz.
//   - Scalar: HostValue or DeviceValue. A HostValue written by an operation
//     reports ErrUnsynchronized until the stream has executed the write.
//
// Value types and compute precision are checked against a single table
// (Classify, CheckTypes, SupportedCombos) before any work is issued.
//
// Execution stages return a *device.Token; kernel faults are reported as
// ErrComputeFailure by the token and by the next Synchronize. Validation
// failures are returned synchronously and leave descriptors untouched.
//
// The facades DenseToSparse, SpVV and SDDMM run a whole protocol with
// scratch and output arrays taken from the context allocator.
package sparse
