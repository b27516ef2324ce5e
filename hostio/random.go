// SPDX-License-Identifier: MIT

package hostio

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// RandomDense returns an r×c matrix whose entries are non-zero with
// probability density, drawn uniformly from [-1, -0.1] ∪ [0.1, 1].
// The result depends only on rng's state.
func RandomDense(rng *rand.Rand, r, c int, density float64) *mat.Dense {
	data := make([]float64, r*c)
	for i := range data {
		if rng.Float64() >= density {
			continue
		}
		v := 0.1 + 0.9*rng.Float64()
		if rng.Intn(2) == 0 {
			v = -v
		}
		data[i] = v
	}
	if r == 0 || c == 0 {
		return new(mat.Dense)
	}

	return mat.NewDense(r, c, data)
}

// CountNonZero returns the number of entries of m that are not exactly zero.
func CountNonZero(m mat.Matrix) int {
	r, c := m.Dims()
	n := 0
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if m.At(i, j) != 0 {
				n++
			}
		}
	}

	return n
}
