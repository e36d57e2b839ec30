// Package parallel provides a chunked fan-out helper for loops over
// independent reference-grid rows. Workers write to disjoint index ranges
// only, so callers need no locking.
package parallel

import (
	"runtime"
	"sync"
)

// Chunked splits [0, items) across the available CPU cores and runs fn once
// per chunk with the half-open range it owns.
func Chunked(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}

	// Ceiling division so the last chunk picks up the remainder
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}

		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}

// ChunkedWithThreshold runs fn sequentially over the whole range when items
// is at or below threshold, and fans out via Chunked otherwise. Small grids
// are not worth the goroutine overhead.
func ChunkedWithThreshold(items, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}

	Chunked(items, fn)
}
