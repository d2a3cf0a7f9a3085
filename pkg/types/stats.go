package types

import "fmt"

// Category names one of the independent byte counters kept per run.
type Category int

const (
	CategoryTotal Category = iota
	CategoryLocal
	CategoryShortCircuit
	CategoryZeroCopy
)

// String returns the counter name used in reports.
func (c Category) String() string {
	switch c {
	case CategoryTotal:
		return "total"
	case CategoryLocal:
		return "local"
	case CategoryShortCircuit:
		return "short-circuit"
	case CategoryZeroCopy:
		return "zero-copy"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// ReadStats is a snapshot of byte counters for one run or one file handle.
// The counters are independent: a zero-copy byte read from a local replica
// is counted as total, local, short-circuit and zero-copy.
type ReadStats struct {
	TotalBytes        int64 `json:"total_bytes"`
	LocalBytes        int64 `json:"local_bytes"`
	ShortCircuitBytes int64 `json:"short_circuit_bytes"`
	ZeroCopyBytes     int64 `json:"zero_copy_bytes"`
}

// Add returns the counter-wise sum of s and o.
func (s ReadStats) Add(o ReadStats) ReadStats {
	return ReadStats{
		TotalBytes:        s.TotalBytes + o.TotalBytes,
		LocalBytes:        s.LocalBytes + o.LocalBytes,
		ShortCircuitBytes: s.ShortCircuitBytes + o.ShortCircuitBytes,
		ZeroCopyBytes:     s.ZeroCopyBytes + o.ZeroCopyBytes,
	}
}

// Get returns the counter for a category.
func (s ReadStats) Get(c Category) (int64, error) {
	switch c {
	case CategoryTotal:
		return s.TotalBytes, nil
	case CategoryLocal:
		return s.LocalBytes, nil
	case CategoryShortCircuit:
		return s.ShortCircuitBytes, nil
	case CategoryZeroCopy:
		return s.ZeroCopyBytes, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownCategory, int(c))
	}
}
