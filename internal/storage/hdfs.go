package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/arkilian/readbench/internal/dfs"
	benchErrors "github.com/arkilian/readbench/internal/errors"
	"github.com/arkilian/readbench/pkg/types"
)

// DFSBackend reads through a distributed filesystem client (the hdfs backend).
//
// In positioned-read mode every reader issues Pread calls against one shared
// file. In the cursor modes (zero-copy and standard) each reader owns its own
// file and seeks once to its offset, so no cursor is ever shared between
// goroutines.
type DFSBackend struct {
	fs   dfs.FileSystem
	opts Options
}

// NewDFSBackend creates a backend over an established filesystem connection.
// The backend takes ownership of fs.
func NewDFSBackend(fs dfs.FileSystem, opts Options) *DFSBackend {
	return &DFSBackend{fs: fs, opts: opts}
}

func (b *DFSBackend) Kind() types.BackendKind {
	return types.BackendHDFS
}

func (b *DFSBackend) Size(ctx context.Context, path string) (int64, error) {
	info, err := b.fs.PathInfo(ctx, path)
	if err != nil {
		return 0, benchErrors.NewOpenError(benchErrors.CodeStatFailed,
			fmt.Sprintf("failed to get path info for %s", path), err)
	}
	return info.Size, nil
}

// Open opens path once. That file becomes the shared file in positioned-read
// mode, or the first reader's file otherwise.
func (b *DFSBackend) Open(ctx context.Context, path string) (Handle, error) {
	size, err := b.Size(ctx, path)
	if err != nil {
		return nil, err
	}

	f, err := b.fs.OpenFile(ctx, path, b.opts.BufferSize)
	if err != nil {
		return nil, benchErrors.NewOpenError(benchErrors.CodeOpenFailed,
			fmt.Sprintf("failed to open %s", path), err)
	}

	if b.opts.Hints != nil {
		b.opts.Hints.ApplyProcess()
	}

	return &dfsHandle{
		fs:      b.fs,
		ctx:     ctx,
		path:    path,
		size:    size,
		opts:    b.opts,
		primary: f,
	}, nil
}

func (b *DFSBackend) Close() error {
	return b.fs.Close()
}

type dfsHandle struct {
	fs   dfs.FileSystem
	ctx  context.Context
	path string
	size int64
	opts Options

	mu           sync.Mutex
	primary      dfs.File
	primaryTaken bool

	fellBack atomic.Bool
	closed   atomic.Bool
}

func (h *dfsHandle) Size() int64 {
	return h.size
}

func (h *dfsHandle) NewReader(ext types.FileExtent) (Reader, error) {
	if h.closed.Load() {
		return nil, ErrHandleClosed
	}
	if err := checkExtent(ext, h.size); err != nil {
		return nil, fmt.Errorf("%w: %s of %d bytes", err, ext, h.size)
	}

	if h.opts.UsePread {
		return &preadReader{file: h.primary, pos: ext.Offset, end: ext.End()}, nil
	}

	f, err := h.cursorFile()
	if err != nil {
		return nil, err
	}
	if ext.Offset > 0 {
		if err := f.Seek(ext.Offset); err != nil {
			f.Close()
			return nil, benchErrors.NewReadError(benchErrors.CodeSeekFailed,
				fmt.Sprintf("failed to seek %s to %d", h.path, ext.Offset), err)
		}
	}

	return &cursorReader{
		file: f,
		fr:   NewFallbackReader(f, h.opts.ForceStandard, h.noteFallback),
		pos:  ext.Offset,
		end:  ext.End(),
	}, nil
}

// cursorFile hands the primary file to the first reader and opens a fresh
// file for every later one.
func (h *dfsHandle) cursorFile() (dfs.File, error) {
	h.mu.Lock()
	if !h.primaryTaken {
		h.primaryTaken = true
		f := h.primary
		h.mu.Unlock()
		return f, nil
	}
	h.mu.Unlock()

	f, err := h.fs.OpenFile(h.ctx, h.path, h.opts.BufferSize)
	if err != nil {
		return nil, benchErrors.NewOpenError(benchErrors.CodeOpenFailed,
			fmt.Sprintf("failed to open %s for reader", h.path), err)
	}
	return f, nil
}

func (h *dfsHandle) noteFallback(cause error) {
	h.fellBack.Store(true)
	if h.opts.OnFallback != nil {
		h.opts.OnFallback(cause)
	}
}

// Stats returns the shared file's counters in positioned-read mode. In the
// cursor modes every reader reports its own file.
func (h *dfsHandle) Stats() types.ReadStats {
	if h.opts.UsePread {
		return h.primary.ReadStatistics()
	}
	return types.ReadStats{}
}

func (h *dfsHandle) Mode() types.ReadMode {
	switch {
	case h.opts.UsePread:
		return types.ReadModePositioned
	case h.opts.ForceStandard, h.fellBack.Load():
		return types.ReadModeStandard
	default:
		return types.ReadModeZeroCopy
	}
}

func (h *dfsHandle) Close() error {
	if h.closed.Swap(true) {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.primaryTaken && !h.opts.UsePread {
		return nil
	}
	h.primaryTaken = true
	return h.primary.Close()
}

// cursorReader owns its file and reads it sequentially through the fallback
// strategy.
type cursorReader struct {
	file dfs.File
	fr   *FallbackReader
	pos  int64
	end  int64
}

func (r *cursorReader) ReadChunk(max int, fn func([]byte)) (int, error) {
	want := remaining(max, r.pos, r.end)
	if want == 0 {
		return 0, nil
	}
	n, err := r.fr.ReadChunk(want, fn)
	r.pos += int64(n)
	return n, err
}

func (r *cursorReader) Stats() types.ReadStats {
	return r.file.ReadStatistics()
}

func (r *cursorReader) Close() error {
	return r.file.Close()
}

// preadReader issues positioned reads against a shared file.
type preadReader struct {
	file dfs.File
	pos  int64
	end  int64
	buf  []byte
}

func (r *preadReader) ReadChunk(max int, fn func([]byte)) (int, error) {
	want := remaining(max, r.pos, r.end)
	if want == 0 {
		return 0, nil
	}
	if cap(r.buf) < want {
		r.buf = make([]byte, want)
	}

	n, err := r.file.Pread(r.pos, r.buf[:want])
	if n > 0 {
		fn(r.buf[:n])
		r.pos += int64(n)
	}
	if err != nil && err != io.EOF {
		return n, benchErrors.NewReadError(benchErrors.CodeReadFailed,
			fmt.Sprintf("positioned read at offset %d failed", r.pos), err)
	}
	return n, nil
}

func (r *preadReader) Stats() types.ReadStats {
	return types.ReadStats{}
}

func (r *preadReader) Close() error {
	r.buf = nil
	return nil
}
