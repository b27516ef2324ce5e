// SPDX-License-Identifier: MIT

// Package device is the execution substrate that lvsparse kernels are issued
// against: a compute context owning one ordered stream, an allocator for
// caller-owned buffers, and blocking host/device copy primitives.
//
// Model:
//   - A Buffer is a labelled byte region tagged Host or Device resident.
//   - A Stream executes submitted tasks strictly in issue order on a single
//     worker goroutine. Submission never blocks; completion is observed via
//     Token or Synchronize.
//   - A task failure is sticky: later tasks on the same stream are skipped and
//     the fault is reported (once) by the next Synchronize.
//   - Issued work cannot be cancelled. The context.Context given to
//     Synchronize/Wait bounds only the caller's wait.
//
// The default allocator keeps "device" memory in the host address space, which
// makes kernels testable anywhere; see package wgpudev for mirroring buffers to
// a WebGPU adapter.
package device
