// SPDX-License-Identifier: MIT

// Package lvsparse is a staged sparse compute layer: dense→sparse
// conversion, sparse·dense dot products (SpVV) and sampled dense-dense
// products (SDDMM), issued on an ordered device stream.
//
// 🚀 What is lvsparse?
//
//	A small library that brings together:
//		• Descriptors: dense matrices/vectors, CSR/CSC/COO matrices, sparse vectors
//		• Staged operations: size → analyze/preprocess → execute, with plan checks
//		• Mixed precision: one type-combination table, half and int8 storage
//		• A device substrate: buffers, allocators, an in-order stream, tokens
//		• Host interop: gonum matrices in and out, optional WebGPU mirroring
//
// ✨ Why choose lvsparse?
//
//   - Explicit memory: every scratch and output buffer is caller-owned
//   - Checked stages: out-of-order or stale calls fail before any work runs
//   - Deterministic: reductions do not depend on the worker count
//
// Under the hood, everything is organized under these subpackages:
//
//	dtype/           value/index types, index base, element codecs
//	device/          Context, Buffer, allocators, stream and tokens
//	device/wgpudev/  push/pull device buffers to a WebGPU adapter
//	sparse/          descriptors, type table, sizing and the three operations
//	hostio/          gonum upload/download, random fixtures, output allocation
//	cmd/lvsparse-bench/  density sweep with table and chart output
//
// Quick example (CSR, one-based):
//
//	    1 0 0 0
//	    0 2 0 4      rowPtr [1 2 4 5 7]
//	    0 0 7 0  →   colInd [1 2 4 3 1 4]
//	    9 0 0 1      values [1 2 4 7 9 1]
//
// See examples/ for runnable programs of each flow.
//
//	go get github.com/katalvlaran/lvsparse
package lvsparse
