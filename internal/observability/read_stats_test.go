package observability

import (
	"errors"
	"sync"
	"testing"

	"github.com/arkilian/readbench/pkg/types"
)

// TestReportBytesConcurrent checks that K workers each reporting a fixed delta
// M times produce exactly K*M with no lost updates.
func TestReportBytesConcurrent(t *testing.T) {
	const (
		numWorkers       = 64
		reportsPerWorker = 10000
		delta            = 3
	)

	acc := NewReadStatsAccumulator()
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < reportsPerWorker; j++ {
				if err := acc.ReportBytes(types.CategoryTotal, delta); err != nil {
					t.Error(err)
					return
				}
				acc.RecordRead()
			}
		}()
	}

	wg.Wait()

	snap := acc.Snapshot()
	if want := int64(numWorkers * reportsPerWorker * delta); snap.TotalBytes != want {
		t.Errorf("expected total %d, got %d", want, snap.TotalBytes)
	}
	if want := int64(numWorkers * reportsPerWorker); acc.Reads() != want {
		t.Errorf("expected %d reads, got %d", want, acc.Reads())
	}
}

// TestCategoriesIndependent checks that each category has its own counter.
func TestCategoriesIndependent(t *testing.T) {
	acc := NewReadStatsAccumulator()

	_ = acc.ReportBytes(types.CategoryTotal, 100)
	_ = acc.ReportBytes(types.CategoryLocal, 80)
	_ = acc.ReportBytes(types.CategoryShortCircuit, 60)
	_ = acc.ReportBytes(types.CategoryZeroCopy, 40)

	want := types.ReadStats{TotalBytes: 100, LocalBytes: 80, ShortCircuitBytes: 60, ZeroCopyBytes: 40}
	if got := acc.Snapshot(); got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

// TestReportStatsSkipsTotal checks that a backend breakdown never double counts total.
func TestReportStatsSkipsTotal(t *testing.T) {
	acc := NewReadStatsAccumulator()
	_ = acc.ReportBytes(types.CategoryTotal, 10)

	acc.ReportStats(types.ReadStats{TotalBytes: 10, LocalBytes: 10, ShortCircuitBytes: 10})
	acc.ReportStats(types.ReadStats{TotalBytes: 5, ZeroCopyBytes: 5})

	got := acc.Snapshot()
	if got.TotalBytes != 10 || got.LocalBytes != 10 || got.ShortCircuitBytes != 10 || got.ZeroCopyBytes != 5 {
		t.Errorf("unexpected snapshot %+v", got)
	}
}

// TestReportBytesRejectsBadInput checks unknown categories and negative deltas.
func TestReportBytesRejectsBadInput(t *testing.T) {
	acc := NewReadStatsAccumulator()

	if err := acc.ReportBytes(types.Category(7), 1); !errors.Is(err, types.ErrUnknownCategory) {
		t.Errorf("expected ErrUnknownCategory, got %v", err)
	}
	if err := acc.ReportBytes(types.CategoryTotal, -1); err == nil {
		t.Error("expected error for negative delta")
	}
	if acc.Snapshot() != (types.ReadStats{}) {
		t.Error("rejected reports must not change counters")
	}
}

// TestFallbackCounter tests fallback recording.
func TestFallbackCounter(t *testing.T) {
	acc := NewReadStatsAccumulator()
	acc.RecordFallback()
	acc.RecordFallback()
	if acc.Fallbacks() != 2 {
		t.Errorf("expected 2 fallbacks, got %d", acc.Fallbacks())
	}
}
