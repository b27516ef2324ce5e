// SPDX-License-Identifier: MIT

package sparse

import (
	"fmt"

	"github.com/katalvlaran/lvsparse/dtype"
)

// Routine names an operation family for type validation and logging.
type Routine uint8

const (
	RoutineDenseToSparse Routine = iota + 1
	RoutineSpVV
	RoutineSDDMM
)

// String implements fmt.Stringer.
func (r Routine) String() string {
	switch r {
	case RoutineDenseToSparse:
		return "dense2sparse"
	case RoutineSpVV:
		return "spvv"
	case RoutineSDDMM:
		return "sddmm"
	default:
		return fmt.Sprintf("routine(%d)", uint8(r))
	}
}

// Support classifies a type combination.
type Support uint8

const (
	Unsupported Support = iota
	SupportedUniform
	SupportedMixed
)

// String implements fmt.Stringer.
func (s Support) String() string {
	switch s {
	case Unsupported:
		return "unsupported"
	case SupportedUniform:
		return "uniform"
	case SupportedMixed:
		return "mixed"
	default:
		return fmt.Sprintf("support(%d)", uint8(s))
	}
}

// Combo is the value/compute types of one call. Unused slots are zero:
//
//	dense2sparse: A = dense, B = sparse
//	spvv:         A = x, B = y, Compute
//	sddmm:        A, B, C, Compute
type Combo struct {
	A, B, C, Compute dtype.DataType
}

// String implements fmt.Stringer.
func (c Combo) String() string {
	return fmt.Sprintf("A=%v B=%v C=%v compute=%v", c.A, c.B, c.C, c.Compute)
}

type comboEntry struct {
	routine Routine
	combo   Combo
	support Support
}

// comboList is the whole precision table, in listing order.
var comboList = buildComboList()

// comboTable indexes comboList.
var comboTable = func() map[Routine]map[Combo]Support {
	t := make(map[Routine]map[Combo]Support, 3)
	for _, e := range comboList {
		if t[e.routine] == nil {
			t[e.routine] = make(map[Combo]Support)
		}
		t[e.routine][e.combo] = e.support
	}
	return t
}()

func buildComboList() []comboEntry {
	var list []comboEntry
	add := func(r Routine, s Support, c Combo) { list = append(list, comboEntry{r, c, s}) }

	// Dense to sparse: uniform floating types only.
	for _, t := range []dtype.DataType{dtype.R16F, dtype.R32F, dtype.R64F, dtype.C32F, dtype.C64F} {
		add(RoutineDenseToSparse, SupportedUniform, Combo{A: t, B: t})
	}

	// SpVV.
	for _, t := range []dtype.DataType{dtype.R32F, dtype.R64F, dtype.C32F, dtype.C64F} {
		add(RoutineSpVV, SupportedUniform, Combo{A: t, B: t, Compute: t})
	}
	add(RoutineSpVV, SupportedMixed, Combo{A: dtype.R8I, B: dtype.R8I, Compute: dtype.R32I})
	add(RoutineSpVV, SupportedMixed, Combo{A: dtype.R8I, B: dtype.R8I, Compute: dtype.R32F})
	add(RoutineSpVV, SupportedMixed, Combo{A: dtype.R16F, B: dtype.R16F, Compute: dtype.R32F})

	// SDDMM.
	for _, t := range []dtype.DataType{dtype.R16F, dtype.R32F, dtype.R64F, dtype.C32F, dtype.C64F} {
		add(RoutineSDDMM, SupportedUniform, Combo{A: t, B: t, C: t, Compute: t})
	}
	add(RoutineSDDMM, SupportedMixed, Combo{A: dtype.R16F, B: dtype.R16F, C: dtype.R16F, Compute: dtype.R32F})
	add(RoutineSDDMM, SupportedMixed, Combo{A: dtype.R16F, B: dtype.R16F, C: dtype.R32F, Compute: dtype.R32F})

	return list
}

// Classify looks c up in the precision table of r.
// Complexity: O(1), no device work.
func Classify(r Routine, c Combo) Support {
	return comboTable[r][c]
}

// CheckTypes returns ErrUnsupportedTypes unless c is supported for r.
func CheckTypes(r Routine, c Combo) error {
	if Classify(r, c) == Unsupported {
		return fmt.Errorf("%v(%v): %w", r, c, ErrUnsupportedTypes)
	}

	return nil
}

// SupportedCombos lists the supported combinations of r in table order
// (uniform first).
func SupportedCombos(r Routine) []Combo {
	var out []Combo
	for _, e := range comboList {
		if e.routine == r {
			out = append(out, e.combo)
		}
	}

	return out
}
