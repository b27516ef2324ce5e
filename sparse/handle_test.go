// SPDX-License-Identifier: MIT

package sparse_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/lvsparse/device"
	"github.com/katalvlaran/lvsparse/sparse"
)

// TestKernelFaultKinds: a returned error and a panic both surface as
// ErrComputeFailure joined with device.ErrDeviceFault.
func TestKernelFaultKinds(t *testing.T) {
	t.Parallel()
	kernels := map[string]func() error{
		"error": func() error { return errors.New("bad entry") },
		"panic": func() error { var b []byte; b[3] = 1; return nil },
	}
	for name, kernel := range kernels {
		name, kernel := name, kernel
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			h, _ := newHandle(t)
			tok, err := h.SubmitKernel(name, kernel)
			require.NoError(t, err)

			err = h.Synchronize(context.Background())
			require.ErrorIs(t, err, sparse.ErrComputeFailure)
			require.ErrorIs(t, err, device.ErrDeviceFault)
			require.ErrorIs(t, tok.Err(), sparse.ErrComputeFailure)
			require.NoError(t, h.Synchronize(context.Background()))
		})
	}
}
