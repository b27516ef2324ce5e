// SPDX-License-Identifier: MIT

package dtype

import (
	"encoding/binary"
	"math"

	"github.com/x448/float16"
)

var le = binary.LittleEndian

// Load decodes element i of b (interpreted as a packed array of t) and widens
// it to complex128. The caller guarantees that b holds at least i+1 elements.
// Complexity: O(1).
func Load(t DataType, b []byte, i int) complex128 {
	switch t {
	case R8I:
		return complex(float64(int8(b[i])), 0)
	case R32I:
		return complex(float64(int32(le.Uint32(b[i*4:]))), 0)
	case R16F:
		return complex(float64(float16.Frombits(le.Uint16(b[i*2:])).Float32()), 0)
	case R32F:
		return complex(float64(math.Float32frombits(le.Uint32(b[i*4:]))), 0)
	case R64F:
		return complex(math.Float64frombits(le.Uint64(b[i*8:])), 0)
	case C32F:
		off := i * 8
		re := math.Float32frombits(le.Uint32(b[off:]))
		im := math.Float32frombits(le.Uint32(b[off+4:]))
		return complex(float64(re), float64(im))
	case C64F:
		off := i * 16
		re := math.Float64frombits(le.Uint64(b[off:]))
		im := math.Float64frombits(le.Uint64(b[off+8:]))
		return complex(re, im)
	default:
		return 0
	}
}

// Store narrows v to t and encodes it as element i of b.
// Real types drop the imaginary part; integers saturate and truncate toward zero.
// Complexity: O(1).
func Store(t DataType, b []byte, i int, v complex128) {
	switch t {
	case R8I:
		b[i] = byte(int8(saturate(real(v), math.MinInt8, math.MaxInt8)))
	case R32I:
		le.PutUint32(b[i*4:], uint32(int32(saturate(real(v), math.MinInt32, math.MaxInt32))))
	case R16F:
		le.PutUint16(b[i*2:], float16.Fromfloat32(float32(real(v))).Bits())
	case R32F:
		le.PutUint32(b[i*4:], math.Float32bits(float32(real(v))))
	case R64F:
		le.PutUint64(b[i*8:], math.Float64bits(real(v)))
	case C32F:
		off := i * 8
		le.PutUint32(b[off:], math.Float32bits(float32(real(v))))
		le.PutUint32(b[off+4:], math.Float32bits(float32(imag(v))))
	case C64F:
		off := i * 16
		le.PutUint64(b[off:], math.Float64bits(real(v)))
		le.PutUint64(b[off+8:], math.Float64bits(imag(v)))
	}
}

// IsZero reports whether element i of b is exactly the zero element of t.
// Exact equality is used (no magnitude threshold): -0 counts as zero, NaN never does.
func IsZero(t DataType, b []byte, i int) bool {
	return Load(t, b, i) == 0
}

// Copy copies element si of src into element di of dst without decoding.
func Copy(t DataType, dst []byte, di int, src []byte, si int) {
	w := t.Size()
	copy(dst[di*w:di*w+w], src[si*w:si*w+w])
}

// Round narrows v to the precision of t and widens it back.
// It is how kernels emulate "accumulate in compute type t".
func Round(t DataType, v complex128) complex128 {
	switch t {
	case R8I:
		return complex(math.Trunc(saturate(real(v), math.MinInt8, math.MaxInt8)), 0)
	case R32I:
		return complex(math.Trunc(saturate(real(v), math.MinInt32, math.MaxInt32)), 0)
	case R16F:
		return complex(float64(float16.Fromfloat32(float32(real(v))).Float32()), 0)
	case R32F:
		return complex(float64(float32(real(v))), 0)
	case R64F:
		return complex(real(v), 0)
	case C32F:
		return complex128(complex64(v))
	default:
		return v
	}
}

// LoadIndex decodes index i of b for width it.
func LoadIndex(it IndexType, b []byte, i int) int64 {
	if it == Index32 {
		return int64(int32(le.Uint32(b[i*4:])))
	}

	return int64(le.Uint64(b[i*8:]))
}

// StoreIndex encodes v as index i of b for width it.
// The caller must have checked that v fits it (see IndexType.Max).
func StoreIndex(it IndexType, b []byte, i int, v int64) {
	if it == Index32 {
		le.PutUint32(b[i*4:], uint32(int32(v)))
		return
	}
	le.PutUint64(b[i*8:], uint64(v))
}

// saturate clamps x into [lo, hi]; NaN maps to 0.
func saturate(x, lo, hi float64) float64 {
	switch {
	case math.IsNaN(x):
		return 0
	case x < lo:
		return lo
	case x > hi:
		return hi
	default:
		return x
	}
}
