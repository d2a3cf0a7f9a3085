// Package executor drives concurrent reads of a file's extents to completion.
package executor

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	benchErrors "github.com/arkilian/readbench/internal/errors"
	"github.com/arkilian/readbench/internal/observability"
	"github.com/arkilian/readbench/internal/storage"
	"github.com/arkilian/readbench/internal/touch"
	"github.com/arkilian/readbench/pkg/types"
)

// DriverConfig holds configuration for the read driver.
type DriverConfig struct {
	// BufferSize is the request size of every read (must be > 0)
	BufferSize int

	// TouchMode selects how delivered bytes are consumed (default: sum)
	TouchMode touch.Mode
}

// WorkerResult is what one worker read.
type WorkerResult struct {
	Worker   int              `json:"worker"`
	Extent   types.FileExtent `json:"extent"`
	Bytes    int64            `json:"bytes"`
	Chunks   int64            `json:"chunks"`
	Sum      uint64           `json:"sum"`
	Stats    types.ReadStats  `json:"stats"`
	Duration time.Duration    `json:"duration"`
}

// Result aggregates all workers of one run.
type Result struct {
	Workers    []WorkerResult `json:"workers"`
	TotalBytes int64          `json:"total_bytes"`

	// ReaderStats is the sum of the breakdowns reported by the readers
	ReaderStats types.ReadStats `json:"reader_stats"`

	// Digest combines the worker sums in extent order
	Digest uint64 `json:"digest"`
}

// Driver runs one worker per extent against an open handle.
type Driver struct {
	bufferSize int
	touchMode  touch.Mode
	stats      *observability.ReadStatsAccumulator
}

// NewDriver creates a driver that reports into stats.
func NewDriver(cfg DriverConfig, stats *observability.ReadStatsAccumulator) *Driver {
	if cfg.TouchMode == "" {
		cfg.TouchMode = touch.ModeSum
	}
	if stats == nil {
		stats = observability.NewReadStatsAccumulator()
	}
	return &Driver{
		bufferSize: cfg.BufferSize,
		touchMode:  cfg.TouchMode,
		stats:      stats,
	}
}

// Run reads every extent concurrently and waits for all workers.
//
// Each worker reads buffer-sized chunks until it has read its extent's
// length. The first failure cancels the others, which stop before their next
// read; Run still waits for all of them and returns only that failure.
// Readers are closed on every path.
func (d *Driver) Run(ctx context.Context, h storage.Handle, extents []types.FileExtent) (*Result, error) {
	if d.bufferSize <= 0 {
		return nil, benchErrors.NewConfigError(benchErrors.CodeInvalidArgument,
			fmt.Sprintf("buffer size must be positive, got %d", d.bufferSize))
	}

	results := make([]WorkerResult, len(extents))
	g, gctx := errgroup.WithContext(ctx)

	for i, ext := range extents {
		g.Go(func() error {
			res, err := d.readExtent(gctx, h, i, ext)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{Workers: results}
	sums := make([]uint64, len(results))
	for i, res := range results {
		result.TotalBytes += res.Bytes
		result.ReaderStats = result.ReaderStats.Add(res.Stats)
		sums[i] = res.Sum
	}
	result.Digest = touch.Combine(sums)
	touch.Publish(result.Digest)

	return result, nil
}

func (d *Driver) readExtent(ctx context.Context, h storage.Handle, worker int, ext types.FileExtent) (res WorkerResult, err error) {
	res = WorkerResult{Worker: worker, Extent: ext}
	start := types.Now()

	r, err := h.NewReader(ext)
	if err != nil {
		if benchErrors.GetCategory(err) == "" {
			err = benchErrors.NewInternalError(fmt.Sprintf("worker %d: failed to create reader for %s", worker, ext), err)
		}
		return res, err
	}
	defer func() {
		res.Stats = r.Stats()
		d.stats.ReportStats(res.Stats)
		if closeErr := r.Close(); closeErr != nil {
			log.Printf("Worker %d: failed to close reader: %v", worker, closeErr)
			if err == nil {
				err = benchErrors.NewReadError(benchErrors.CodeReadFailed,
					fmt.Sprintf("worker %d: close failed", worker), closeErr)
			}
		}
	}()

	toucher := touch.New(d.touchMode)
	for res.Bytes < ext.Length {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		n, err := r.ReadChunk(d.bufferSize, toucher.Touch)
		if err != nil {
			return res, err
		}
		if n == 0 {
			return res, benchErrors.NewSizeMismatchError(benchErrors.CodeUnexpectedEOF, ext.Length, res.Bytes).
				WithDetails(map[string]interface{}{"worker": worker, "extent": ext.String()})
		}

		res.Bytes += int64(n)
		res.Chunks++
		d.stats.ReportBytes(types.CategoryTotal, int64(n))
		d.stats.RecordRead()
	}

	res.Sum = toucher.Sum()
	res.Duration = types.Sub(types.Now(), start).Duration()
	return res, nil
}
