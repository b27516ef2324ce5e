// SPDX-License-Identifier: MIT

package dtype

import (
	"fmt"
	"math"
)

// DataType tags the numeric type of stored elements.
// The zero value is invalid on purpose so that unset descriptors fail validation.
type DataType uint8

// Value types understood by the compute layer.
const (
	R8I  DataType = iota + 1 // 8-bit signed integer
	R32I                     // 32-bit signed integer
	R16F                     // IEEE binary16
	R32F                     // IEEE binary32
	R64F                     // IEEE binary64
	C32F                     // complex of two binary32
	C64F                     // complex of two binary64
)

// allDataTypes lists every valid tag in declaration order.
var allDataTypes = [...]DataType{R8I, R32I, R16F, R32F, R64F, C32F, C64F}

// DataTypes returns every valid value type in a stable order.
func DataTypes() []DataType {
	out := make([]DataType, len(allDataTypes))
	copy(out, allDataTypes[:])

	return out
}

// Valid reports whether t is one of the declared tags.
func (t DataType) Valid() bool { return t >= R8I && t <= C64F }

// Size returns the element width in bytes (0 for invalid tags).
// Complexity: O(1).
func (t DataType) Size() int {
	switch t {
	case R8I:
		return 1
	case R16F:
		return 2
	case R32I, R32F:
		return 4
	case R64F, C32F:
		return 8
	case C64F:
		return 16
	default:
		return 0
	}
}

// IsComplex reports whether t stores a (real, imag) pair.
func (t DataType) IsComplex() bool { return t == C32F || t == C64F }

// IsFloat reports whether t is a floating-point type (real or complex).
func (t DataType) IsFloat() bool { return t >= R16F && t <= C64F }

// IsInteger reports whether t is an integer type.
func (t DataType) IsInteger() bool { return t == R8I || t == R32I }

// String implements fmt.Stringer using the conventional short names.
func (t DataType) String() string {
	switch t {
	case R8I:
		return "r8i"
	case R32I:
		return "r32i"
	case R16F:
		return "r16f"
	case R32F:
		return "r32f"
	case R64F:
		return "r64f"
	case C32F:
		return "c32f"
	case C64F:
		return "c64f"
	default:
		return fmt.Sprintf("dtype(%d)", uint8(t))
	}
}

// ParseDataType maps a short name produced by String back to its tag.
func ParseDataType(s string) (DataType, error) {
	for _, t := range allDataTypes {
		if t.String() == s {
			return t, nil
		}
	}

	return 0, fmt.Errorf("dtype: unknown data type %q", s)
}

// IndexType tags the integer width of index and pointer arrays.
type IndexType uint8

// Index widths.
const (
	Index32 IndexType = iota + 1
	Index64
)

// Valid reports whether it is a declared index width.
func (it IndexType) Valid() bool { return it == Index32 || it == Index64 }

// Size returns the index width in bytes (0 for invalid tags).
func (it IndexType) Size() int {
	switch it {
	case Index32:
		return 4
	case Index64:
		return 8
	default:
		return 0
	}
}

// Max returns the largest value representable by the index width.
func (it IndexType) Max() int64 {
	if it == Index32 {
		return math.MaxInt32
	}

	return math.MaxInt64
}

// String implements fmt.Stringer.
func (it IndexType) String() string {
	switch it {
	case Index32:
		return "i32"
	case Index64:
		return "i64"
	default:
		return fmt.Sprintf("index(%d)", uint8(it))
	}
}

// IndexBase selects zero- or one-origin indexing of stored indices.
type IndexBase uint8

// Index base conventions.
const (
	BaseZero IndexBase = iota
	BaseOne
)

// Valid reports whether b is a declared base.
func (b IndexBase) Valid() bool { return b == BaseZero || b == BaseOne }

// Offset is the value added to a zero-origin position before it is stored.
func (b IndexBase) Offset() int64 { return int64(b) }

// String implements fmt.Stringer.
func (b IndexBase) String() string {
	switch b {
	case BaseZero:
		return "base0"
	case BaseOne:
		return "base1"
	default:
		return fmt.Sprintf("base(%d)", uint8(b))
	}
}
