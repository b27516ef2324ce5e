// SPDX-License-Identifier: MIT

package sparse_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvsparse/dtype"
	"github.com/katalvlaran/lvsparse/hostio"
	"github.com/katalvlaran/lvsparse/sparse"
)

func TestOptionPanics(t *testing.T) {
	t.Parallel()
	require.Panics(t, func() { sparse.WithWorkers(-1) })
	require.Panics(t, func() { sparse.WithSpVVBlock(0) })
	require.NotPanics(t, func() { sparse.WithWorkers(0) })
	require.NotPanics(t, func() { sparse.WithSpVVBlock(1) })
}

// TestSpVVBlockDrivesSizing: 3000 entries in blocks of 64 need 47 partials.
func TestSpVVBlockDrivesSizing(t *testing.T) {
	t.Parallel()
	h, dc := newHandle(t, sparse.WithSpVVBlock(64), nil)
	idx := make([]int64, 3000)
	for i := range idx {
		idx[i] = int64(i)
	}
	x, err := hostio.UploadSpVec(dc, 3000, idx, make([]complex128, 3000), dtype.Index32, dtype.BaseZero, dtype.R32F)
	require.NoError(t, err)
	y, err := hostio.UploadVector(dc, make([]complex128, 3000), dtype.R32F)
	require.NoError(t, err)

	n, err := h.SizeSpVV(sparse.NonTranspose, x, y, sparse.NewHostValue(dtype.R32F, 0), dtype.R32F)
	require.NoError(t, err)
	require.Equal(t, 768, n)

	hd, _ := newHandle(t)
	n, err = hd.SizeSpVV(sparse.NonTranspose, x, y, sparse.NewHostValue(dtype.R32F, 0), dtype.R32F)
	require.NoError(t, err)
	require.Equal(t, sparse.ScratchAlignment, n, "3 blocks of %d", sparse.DefaultSpVVBlock)
}

// TestWithLogger: stage transitions are logged at Debug with the routine tag.
func TestWithLogger(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h, dc := newHandle(t, sparse.WithLogger(log))
	a, err := hostio.UploadDense(dc, exampleDense(), dtype.R64F, sparse.RowMajor)
	require.NoError(t, err)
	b := newTarget(t, dc, sparse.CSR, 4, 4, dtype.Index32, dtype.BaseZero, dtype.R64F)
	require.NoError(t, h.DenseToSparse(context.Background(), a, b))

	out := buf.String()
	require.Contains(t, out, "lib=sparse")
	require.Contains(t, out, "routine=dense2sparse")
	require.Contains(t, out, "stage=analyzed")
	require.Contains(t, out, "stage=converted")
}
