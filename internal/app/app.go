// Package app runs one benchmark: open the backend, partition the file, drive
// the readers, and measure.
package app

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arkilian/readbench/internal/config"
	benchErrors "github.com/arkilian/readbench/internal/errors"
	"github.com/arkilian/readbench/internal/executor"
	"github.com/arkilian/readbench/internal/flush"
	"github.com/arkilian/readbench/internal/hints"
	"github.com/arkilian/readbench/internal/observability"
	"github.com/arkilian/readbench/internal/partition"
	"github.com/arkilian/readbench/internal/report"
	"github.com/arkilian/readbench/internal/shutdown"
	"github.com/arkilian/readbench/internal/storage"
	"github.com/arkilian/readbench/internal/touch"
	"github.com/arkilian/readbench/pkg/types"
)

// RunResult is the outcome of a successful run.
type RunResult struct {
	RunID      string                  `json:"run_id"`
	Backend    types.BackendKind       `json:"backend"`
	Mode       types.ReadMode          `json:"mode"`
	File       string                  `json:"file"`
	Size       int64                   `json:"size"`
	Workers    int                     `json:"workers"`
	BufferSize int                     `json:"buffer_size"`
	Extents    []types.FileExtent      `json:"extents"`
	PerWorker  []executor.WorkerResult `json:"per_worker"`

	// IdleWorkers counts extents with no bytes (more workers than bytes)
	IdleWorkers int `json:"idle_workers"`

	// Stats is the accumulator snapshot taken after all workers joined
	Stats     types.ReadStats `json:"stats"`
	Reads     int64           `json:"reads"`
	Fallbacks int64           `json:"fallbacks"`

	Start  types.Timestamp `json:"start"`
	Opened types.Timestamp `json:"opened"`
	End    types.Timestamp `json:"end"`

	// Throughput is Size / (End - Opened) in bytes per second
	Throughput float64     `json:"throughput"`
	Unit       report.Unit `json:"unit"`

	Digest     uint64 `json:"digest"`
	ShowDigest bool   `json:"-"`
}

// OpenLatency is the time from start to an open handle.
func (r *RunResult) OpenLatency() time.Duration {
	return types.TimingInterval{Start: r.Start, End: r.Opened}.Duration()
}

// Transfer is the time spent reading, from open to the join of all workers.
func (r *RunResult) Transfer() time.Duration {
	return types.TimingInterval{Start: r.Opened, End: r.End}.Duration()
}

// Summary returns the report view of the result.
func (r *RunResult) Summary() report.Summary {
	return report.Summary{
		RunID:       r.RunID,
		Backend:     r.Backend,
		Mode:        r.Mode,
		File:        r.File,
		Size:        r.Size,
		Workers:     r.Workers,
		BufferSize:  r.BufferSize,
		OpenLatency: r.OpenLatency(),
		Transfer:    r.Transfer(),
		Throughput:  r.Throughput,
		Unit:        r.Unit,
		Stats:       r.Stats,
		Digest:      r.Digest,
		ShowDigest:  r.ShowDigest,
	}
}

// Runner executes benchmark runs for one configuration.
type Runner struct {
	cfg   *config.Config
	hints *hints.Applier

	mu      sync.Mutex
	running bool
}

// Option customizes a Runner.
type Option func(*Runner)

// WithAdvisor applies hints through advisor instead of the platform one.
func WithAdvisor(advisor hints.Advisor) Option {
	return func(r *Runner) {
		r.hints = hints.NewApplierWithAdvisor(advisor, r.cfg.HintOptions())
	}
}

// New validates cfg and creates a runner for it.
func New(cfg *config.Config, opts ...Option) (*Runner, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	r := &Runner{cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}
	if r.hints == nil && cfg.HintOptions().Any() {
		r.hints = hints.NewApplier(cfg.HintOptions())
	}
	return r, nil
}

// Config returns the runner's configuration.
func (r *Runner) Config() *config.Config {
	return r.cfg
}

// Run performs one benchmark run. Every resource it opens is released before
// it returns, on success and on failure.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil, benchErrors.NewInternalError("runner is already running", nil)
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	cfg := r.cfg
	res := &RunResult{
		RunID:      uuid.NewString(),
		Backend:    cfg.Type,
		File:       cfg.File,
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		Unit:       cfg.Unit,
		ShowDigest: cfg.Touch == touch.ModeMurmur3,
	}

	stats := observability.NewReadStatsAccumulator()
	closers := shutdown.NewManager()
	defer closers.Shutdown("")

	storageOpts := cfg.StorageOptions()
	storageOpts.Hints = r.hints
	storageOpts.OnFallback = func(error) { stats.RecordFallback() }

	backend, err := storage.New(ctx, cfg.Type, storageOpts)
	if err != nil {
		return nil, err
	}
	closers.RegisterCloser("backend", backend)

	size, err := backend.Size(ctx, cfg.File)
	if err != nil {
		return nil, err
	}
	res.Size = size

	if err := flush.Run(ctx, cfg.FlushCommand); err != nil {
		return nil, err
	}

	log.Printf("Run %s: reading %s (%d bytes) via %s, %d workers, %d byte buffer",
		res.RunID, cfg.File, size, cfg.Type, cfg.Workers, cfg.BufferSize)

	res.Start = types.Now()
	h, err := backend.Open(ctx, cfg.File)
	if err != nil {
		return nil, err
	}
	closers.RegisterCloser("handle", h)
	res.Opened = types.Now()

	if h.Size() < size {
		return nil, benchErrors.NewSizeMismatchError(benchErrors.CodeUnexpectedEOF, size, h.Size())
	}

	extents, err := partition.Partition(size, cfg.Workers)
	if err != nil {
		return nil, err
	}
	res.Extents = extents
	for _, ext := range extents {
		if ext.IsEmpty() {
			res.IdleWorkers++
		}
	}
	if res.IdleWorkers > 0 && size > 0 {
		log.Printf("Run %s: %d of %d workers have no bytes to read", res.RunID, res.IdleWorkers, cfg.Workers)
	}

	driver := executor.NewDriver(executor.DriverConfig{
		BufferSize: cfg.BufferSize,
		TouchMode:  cfg.Touch,
	}, stats)

	dres, err := driver.Run(ctx, h, extents)
	if err != nil {
		return nil, err
	}
	res.End = types.Now()

	stats.ReportStats(h.Stats())
	res.Mode = h.Mode()
	res.PerWorker = dres.Workers
	res.Digest = dres.Digest
	res.Stats = stats.Snapshot()
	res.Reads = stats.Reads()
	res.Fallbacks = stats.Fallbacks()
	res.Throughput = report.Throughput(size, res.Transfer())

	if err := closers.Shutdown("run complete"); err != nil {
		log.Printf("Run %s: %v", res.RunID, err)
	}

	if res.Stats.TotalBytes != size {
		return nil, benchErrors.NewSizeMismatchError(benchErrors.CodeShortTotal, size, res.Stats.TotalBytes)
	}

	if res.Fallbacks > 0 {
		log.Printf("Run %s: %d readers fell back to standard reads", res.RunID, res.Fallbacks)
	}
	return res, nil
}
