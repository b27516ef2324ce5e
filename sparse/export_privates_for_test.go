// SPDX-License-Identifier: MIT

package sparse

import "github.com/katalvlaran/lvsparse/device"

// SubmitKernel exposes the kernel submission path to external tests.
func (h *Handle) SubmitKernel(name string, kernel func() error) (*device.Token, error) {
	return h.submit(name, kernel)
}
