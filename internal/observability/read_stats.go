// Package observability provides the byte counters a benchmark run aggregates
// from its concurrent readers.
package observability

import (
	"fmt"
	"sync/atomic"

	"github.com/arkilian/readbench/pkg/types"
)

// ReadStatsAccumulator aggregates bytes read by concurrent workers.
// Workers report deltas; the shared totals are only ever changed by atomic
// adds, so no update is lost regardless of how many workers report at once.
type ReadStatsAccumulator struct {
	counters  [4]atomic.Int64 // indexed by types.Category
	reads     atomic.Int64
	fallbacks atomic.Int64
}

// NewReadStatsAccumulator creates an accumulator with all counters at zero.
func NewReadStatsAccumulator() *ReadStatsAccumulator {
	return &ReadStatsAccumulator{}
}

// ReportBytes adds delta to the counter for category.
// Negative deltas are rejected: the counters only ever grow.
// This method is O(1) and thread-safe.
func (a *ReadStatsAccumulator) ReportBytes(category types.Category, delta int64) error {
	if category < types.CategoryTotal || category > types.CategoryZeroCopy {
		return fmt.Errorf("%w: %d", types.ErrUnknownCategory, int(category))
	}
	if delta < 0 {
		return fmt.Errorf("negative delta %d for %s bytes", delta, category)
	}
	a.counters[category].Add(delta)
	return nil
}

// ReportStats adds a backend-reported breakdown to every counter except total,
// which the read loop counts itself.
func (a *ReadStatsAccumulator) ReportStats(s types.ReadStats) {
	for c := types.CategoryLocal; c <= types.CategoryZeroCopy; c++ {
		if v, err := s.Get(c); err == nil && v > 0 {
			a.counters[c].Add(v)
		}
	}
}

// RecordRead counts one completed read call.
func (a *ReadStatsAccumulator) RecordRead() {
	a.reads.Add(1)
}

// RecordFallback counts one reader that dropped from zero-copy to standard reads.
func (a *ReadStatsAccumulator) RecordFallback() {
	a.fallbacks.Add(1)
}

// Reads returns the number of read calls recorded.
func (a *ReadStatsAccumulator) Reads() int64 {
	return a.reads.Load()
}

// Fallbacks returns the number of readers that fell back to standard reads.
func (a *ReadStatsAccumulator) Fallbacks() int64 {
	return a.fallbacks.Load()
}

// Snapshot returns the current totals. It is meant to be called after every
// worker has joined, when the values are final.
func (a *ReadStatsAccumulator) Snapshot() types.ReadStats {
	return types.ReadStats{
		TotalBytes:        a.counters[types.CategoryTotal].Load(),
		LocalBytes:        a.counters[types.CategoryLocal].Load(),
		ShortCircuitBytes: a.counters[types.CategoryShortCircuit].Load(),
		ZeroCopyBytes:     a.counters[types.CategoryZeroCopy].Load(),
	}
}
