// SPDX-License-Identifier: MIT

// Package sparse: closed enumerations shared by descriptors and operations.
// Value/index type tags live in package dtype.
package sparse

import "fmt"

// Order is the memory layout of a dense matrix.
type Order uint8

const (
	// RowMajor stores rows contiguously; offset(i,j) = i*ld + j.
	RowMajor Order = iota + 1
	// ColMajor stores columns contiguously; offset(i,j) = j*ld + i.
	ColMajor
)

// Valid reports whether o is a declared layout.
func (o Order) Valid() bool { return o == RowMajor || o == ColMajor }

// String implements fmt.Stringer.
func (o Order) String() string {
	switch o {
	case RowMajor:
		return "row-major"
	case ColMajor:
		return "col-major"
	default:
		return fmt.Sprintf("order(%d)", uint8(o))
	}
}

// Format is the tag of the SpMat union.
type Format uint8

const (
	CSR Format = iota + 1 // row pointers + column indices
	CSC                   // column pointers + row indices
	COO                   // row indices + column indices
)

// Valid reports whether f is a declared format.
func (f Format) Valid() bool { return f >= CSR && f <= COO }

// String implements fmt.Stringer.
func (f Format) String() string {
	switch f {
	case CSR:
		return "csr"
	case CSC:
		return "csc"
	case COO:
		return "coo"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// ParseFormat maps "csr", "csc" or "coo" to its tag.
func ParseFormat(s string) (Format, error) {
	for _, f := range []Format{CSR, CSC, COO} {
		if f.String() == s {
			return f, nil
		}
	}

	return 0, fmt.Errorf("ParseFormat(%q): %w", s, ErrBadLayout)
}

// Op is the operator applied to an operand before it enters a product.
type Op uint8

const (
	NonTranspose       Op = iota + 1 // identity
	Transpose                        // swap row/column roles
	ConjugateTranspose               // transpose and conjugate; element-wise conjugate for vectors
)

// String implements fmt.Stringer.
func (op Op) String() string {
	switch op {
	case NonTranspose:
		return "N"
	case Transpose:
		return "T"
	case ConjugateTranspose:
		return "C"
	default:
		return fmt.Sprintf("op(%d)", uint8(op))
	}
}

// DenseToSparseAlg selects the dense-to-sparse algorithm.
type DenseToSparseAlg uint8

// DenseToSparseAlgDefault counts per line, prefix-sums, then scatters per line.
const DenseToSparseAlgDefault DenseToSparseAlg = 0

// SDDMMAlg selects the SDDMM algorithm.
type SDDMMAlg uint8

// SDDMMAlgDefault expands C's pattern into a coordinate table during
// preprocessing and computes one dot product per stored entry.
const SDDMMAlgDefault SDDMMAlg = 0

// stage is the position of a descriptor in a staged protocol.
type stage uint8

const (
	stageNone stage = iota
	stageAnalyzed
	stageConverted
	stagePreprocessed
	stageComputed
)

func (s stage) String() string {
	switch s {
	case stageNone:
		return "none"
	case stageAnalyzed:
		return "analyzed"
	case stageConverted:
		return "converted"
	case stagePreprocessed:
		return "preprocessed"
	case stageComputed:
		return "computed"
	default:
		return fmt.Sprintf("stage(%d)", uint8(s))
	}
}
