// Package tuning picks worker counts for the parallel backend based on
// the host and the amount of work available.
package tuning

import "runtime"

// minRecordsPerWorker keeps goroutine overhead below the cost of the
// work it amortizes; below this, extra workers slow small datasets down.
const minRecordsPerWorker = 256

// Workers resolves a requested worker count against the host CPU count
// and the dataset size. A request of 0 means "choose for me".
func Workers(requested, numRecords int) int {
	limit := runtime.NumCPU()
	if requested > 0 {
		limit = requested
	}

	if numRecords <= 0 {
		return 1
	}
	byWork := numRecords / minRecordsPerWorker
	if byWork < 1 {
		byWork = 1
	}
	if requested > 0 {
		// An explicit request is honored up to one worker per record.
		byWork = numRecords
	}
	if limit > byWork {
		limit = byWork
	}
	if limit < 1 {
		limit = 1
	}

	return limit
}
