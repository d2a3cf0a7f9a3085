package storage

import (
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/arkilian/readbench/internal/dfs"
	benchErrors "github.com/arkilian/readbench/internal/errors"
	"github.com/arkilian/readbench/pkg/types"
)

// FallbackState is the read mode a FallbackReader is in.
type FallbackState int

const (
	// StateAttemptingZeroCopy issues zero-copy reads
	StateAttemptingZeroCopy FallbackState = iota

	// StateStandardRead issues standard cursor reads; it is never left
	StateStandardRead
)

func (s FallbackState) String() string {
	switch s {
	case StateAttemptingZeroCopy:
		return "attempting-zero-copy"
	case StateStandardRead:
		return "standard-read"
	default:
		return fmt.Sprintf("FallbackState(%d)", int(s))
	}
}

// CursorFile is the part of a DFS file the fallback strategy drives.
type CursorFile interface {
	Read(p []byte) (int, error)
	ReadZero(maxLen int) (dfs.ZeroCopyBuffer, error)
}

// FallbackReader reads from a cursor-based DFS file, preferring zero-copy.
//
// A zero-copy read that fails with dfs.ErrNotSupported moves the reader to
// standard reads for the rest of its life and the same request is served by a
// standard read. Any other zero-copy failure is returned as a ReadError.
// A FallbackReader is used by one goroutine.
type FallbackReader struct {
	file       CursorFile
	state      FallbackState
	buf        []byte
	onFallback func(cause error)
}

// NewFallbackReader creates a reader over file. forceStandard skips the
// zero-copy state entirely. onFallback, if set, is called once when the
// reader drops to standard reads.
func NewFallbackReader(file CursorFile, forceStandard bool, onFallback func(cause error)) *FallbackReader {
	state := StateAttemptingZeroCopy
	if forceStandard {
		state = StateStandardRead
	}
	return &FallbackReader{file: file, state: state, onFallback: onFallback}
}

// State returns the current state.
func (r *FallbackReader) State() FallbackState {
	return r.state
}

// Mode returns the read mode the reader is currently using.
func (r *FallbackReader) Mode() types.ReadMode {
	if r.state == StateAttemptingZeroCopy {
		return types.ReadModeZeroCopy
	}
	return types.ReadModeStandard
}

// ReadChunk reads up to max bytes and passes them to fn. It returns 0, nil at
// end of file.
func (r *FallbackReader) ReadChunk(max int, fn func([]byte)) (int, error) {
	if max <= 0 {
		return 0, nil
	}

	if r.state == StateAttemptingZeroCopy {
		n, err := r.readZeroCopy(max, fn)
		if err == nil {
			return n, nil
		}
		if !errors.Is(err, dfs.ErrNotSupported) {
			return 0, benchErrors.NewReadError(benchErrors.CodeZeroCopyFailed, "zero-copy read failed", err)
		}

		r.state = StateStandardRead
		log.Printf("Zero-copy read not supported, falling back to standard reads: %v", err)
		if r.onFallback != nil {
			r.onFallback(benchErrors.NewUnsupportedError("zero-copy read not supported", err))
		}
	}

	return r.readStandard(max, fn)
}

func (r *FallbackReader) readZeroCopy(max int, fn func([]byte)) (int, error) {
	zb, err := r.file.ReadZero(max)
	if err == io.EOF {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	data := zb.Bytes()
	n := len(data)
	if n > 0 {
		fn(data)
	}
	zb.Release()
	return n, nil
}

func (r *FallbackReader) readStandard(max int, fn func([]byte)) (int, error) {
	if cap(r.buf) < max {
		r.buf = make([]byte, max)
	}

	n, err := r.file.Read(r.buf[:max])
	if n > 0 {
		fn(r.buf[:n])
	}
	if err != nil && err != io.EOF {
		return n, benchErrors.NewReadError(benchErrors.CodeReadFailed, "standard read failed", err)
	}
	return n, nil
}
