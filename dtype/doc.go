// SPDX-License-Identifier: MIT

// Package dtype defines the closed set of value and index type tags used by
// lvsparse descriptors, together with a little-endian element codec.
//
// Purpose:
//   - Give every descriptor a single, comparable tag for its value type
//     (R8I … C64F) and index width (32/64-bit), plus the index base.
//   - Decode/encode individual elements of externally-owned byte storage.
//   - Emulate accumulation "in a compute precision" through Round.
//
// Numeric policy:
//   - All elements are widened to complex128 on load; real types carry a zero
//     imaginary part.
//   - Integer stores saturate and truncate toward zero.
//   - R16F uses IEEE 754 binary16 (github.com/x448/float16).
package dtype
