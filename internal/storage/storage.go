// Package storage provides the read backends a benchmark run drives: the
// distributed filesystem client, memory-mapped local files and buffered local
// file reads.
package storage

import (
	"context"
	"errors"

	"github.com/arkilian/readbench/internal/dfs"
	"github.com/arkilian/readbench/internal/hints"
	"github.com/arkilian/readbench/pkg/types"
)

// Common errors for storage operations.
var (
	ErrHandleClosed  = errors.New("handle closed")
	ErrExtentInvalid = errors.New("extent outside file")
)

// Backend is a source of bytes that can be opened by path.
// Implementations include the DFS client, mmap and buffered local files.
type Backend interface {
	// Kind returns the backend kind this implementation serves.
	Kind() types.BackendKind

	// Size returns the size of path in bytes without opening it for reading.
	Size(ctx context.Context, path string) (int64, error)

	// Open opens path for reading and applies any configured hints.
	Open(ctx context.Context, path string) (Handle, error)

	// Close releases backend-wide resources such as a filesystem connection.
	Close() error
}

// Handle is an open file. It hands out one Reader per extent; readers of the
// same handle may be used from different goroutines at the same time.
type Handle interface {
	// Size returns the file size observed at open.
	Size() int64

	// NewReader returns a reader positioned at the start of ext that stops
	// at its end.
	NewReader(ext types.FileExtent) (Reader, error)

	// Stats returns backend-reported counters kept on the handle itself.
	// Counters kept per reader are reported by Reader.Stats instead.
	Stats() types.ReadStats

	// Mode returns the read strategy in effect.
	Mode() types.ReadMode

	// Close releases the handle. It is safe to call more than once.
	Close() error
}

// Reader reads one extent sequentially. It is used by a single goroutine.
type Reader interface {
	// ReadChunk delivers up to max bytes at the reader position to fn and
	// advances past them. fn must not retain the slice. It returns the number
	// of bytes delivered; 0 with a nil error means end of data.
	ReadChunk(max int, fn func([]byte)) (int, error)

	// Stats returns backend-reported counters kept per reader.
	Stats() types.ReadStats

	// Close releases reader resources.
	Close() error
}

// Options configures backend construction.
type Options struct {
	// BufferSize is the read request size and client buffer size hint
	BufferSize int

	// ForceStandard disables zero-copy reads on the DFS backend
	ForceStandard bool

	// UsePread selects positioned reads on one shared DFS handle
	UsePread bool

	// Hints is applied once after each open (nil = no hints)
	Hints *hints.Applier

	// OnFallback is called each time a DFS reader drops from zero-copy to
	// standard reads
	OnFallback func(cause error)

	// DFS holds the connection settings for the hdfs backend
	DFS dfs.Options
}

// remaining clamps a read request to what is left of an extent.
func remaining(max int, pos, end int64) int {
	left := end - pos
	if left <= 0 {
		return 0
	}
	if int64(max) > left {
		return int(left)
	}
	return max
}

func checkExtent(ext types.FileExtent, size int64) error {
	if ext.Offset < 0 || ext.Length < 0 || ext.End() > size {
		return ErrExtentInvalid
	}
	return nil
}
