// SPDX-License-Identifier: MIT

package device

import (
	"fmt"
	"runtime"
	"sync"
)

// ParallelFor splits [0, n) into at most workers contiguous chunks and runs
// fn(lo, hi) for each chunk on its own goroutine, like a one-dimensional grid
// launch. It returns the error of the lowest failing chunk, so the reported
// error does not depend on goroutine scheduling. Panics inside a chunk are
// returned as errors.
// workers <= 0 means GOMAXPROCS.
func ParallelFor(workers, n int, fn func(lo, hi int) error) error {
	if n <= 0 {
		return nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > n {
		workers = n
	}
	if workers == 1 {
		return fn(0, n)
	}

	chunk := (n + workers - 1) / workers
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		if lo >= n {
			break
		}
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[w] = fmt.Errorf("chunk [%d,%d): panic: %v", lo, hi, r)
				}
			}()
			errs[w] = fn(lo, hi)
		}(w, lo, hi)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}
