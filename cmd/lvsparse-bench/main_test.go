// SPDX-License-Identifier: MIT

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvsparse/dtype"
	"github.com/katalvlaran/lvsparse/sparse"
)

func TestParseFlags(t *testing.T) {
	cfg, err := parseFlags([]string{"-rows", "8", "-cols", "6", "-type", "c64f", "-format", "coo", "-densities", "0.5, 1"})
	require.NoError(t, err)
	require.Equal(t, 8, cfg.rows)
	require.Equal(t, 6, cfg.cols)
	require.Equal(t, dtype.C64F, cfg.typ)
	require.Equal(t, sparse.COO, cfg.format)
	require.Equal(t, []float64{0.5, 1}, cfg.densities)

	for _, args := range [][]string{
		{"-type", "f32"},
		{"-format", "bsr"},
		{"-densities", "0"},
		{"-densities", "x"},
		{"-rows", "0"},
	} {
		_, err = parseFlags(args)
		require.Error(t, err, args)
	}
}

// TestRunWritesChart runs a tiny sweep end to end for every format.
func TestRunWritesChart(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []sparse.Format{sparse.CSR, sparse.CSC, sparse.COO} {
		out := filepath.Join(dir, f.String()+".png")
		cfg := config{
			rows: 16, cols: 12, k: 4,
			typ: dtype.R16F, format: f,
			densities: []float64{0.1, 0.5},
			out:       out, seed: 3,
		}
		require.NoError(t, run(cfg))
		st, err := os.Stat(out)
		require.NoError(t, err)
		require.Positive(t, st.Size())
	}
}
