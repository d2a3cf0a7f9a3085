// Package partition splits a file into per-worker byte ranges.
package partition

import (
	"fmt"

	benchErrors "github.com/arkilian/readbench/internal/errors"
	"github.com/arkilian/readbench/pkg/types"
)

// Partition divides size bytes into workers contiguous extents.
// Every worker but the last gets size/workers bytes; the last one absorbs the
// remainder of the integer division so the lengths sum to exactly size.
// When workers > size some extents are empty, which is valid.
func Partition(size int64, workers int) ([]types.FileExtent, error) {
	if workers < 1 {
		return nil, benchErrors.NewConfigError(benchErrors.CodeInvalidArgument,
			fmt.Sprintf("worker count must be at least 1, got %d", workers))
	}
	if size < 0 {
		return nil, benchErrors.NewConfigError(benchErrors.CodeInvalidArgument,
			fmt.Sprintf("file size must be non-negative, got %d", size))
	}

	n := int64(workers)
	base := size / n
	extents := make([]types.FileExtent, workers)
	for i := int64(0); i < n-1; i++ {
		extents[i] = types.FileExtent{Offset: i * base, Length: base}
	}
	last := (n - 1) * base
	extents[n-1] = types.FileExtent{Offset: last, Length: size - last}

	return extents, nil
}

// Validate checks that extents tile [0, size) in order with no gaps or overlap.
func Validate(extents []types.FileExtent, size int64) error {
	var next int64
	for i, e := range extents {
		if e.Length < 0 {
			return fmt.Errorf("extent %d has negative length %d", i, e.Length)
		}
		if e.Offset != next {
			return fmt.Errorf("extent %d starts at %d, expected %d", i, e.Offset, next)
		}
		next = e.End()
	}
	if next != size {
		return fmt.Errorf("extents cover %d bytes, expected %d", next, size)
	}
	return nil
}
