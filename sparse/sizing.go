// SPDX-License-Identifier: MIT

package sparse

// ScratchAlignment is the granularity of every scratch estimate, in bytes.
const ScratchAlignment = 256

const (
	countBytes   = 8  // one int64 per line count / prefix entry
	partialBytes = 16 // one complex128 per SpVV block
	coordBytes   = 16 // one (row, col) int64 pair per SDDMM entry
)

// alignUp rounds n up to ScratchAlignment.
func alignUp(n int64) int {
	return int((n + ScratchAlignment - 1) / ScratchAlignment * ScratchAlignment)
}

// denseToSparseScratch holds the per-line count table, turned into the
// exclusive prefix sum by analysis.
func denseToSparseScratch(b *SpMat) int {
	return alignUp((b.major() + 1) * countBytes)
}

// spvvScratch holds one partial sum per block; a single block needs none.
func spvvScratch(nnz int64, block int) int {
	if nnz <= int64(block) {
		return 0
	}
	blocks := (nnz + int64(block) - 1) / int64(block)

	return alignUp(blocks * partialBytes)
}

// sddmmScratch holds the expanded coordinate table of C's pattern.
func sddmmScratch(nnz int64) int {
	return alignUp(nnz * coordBytes)
}
