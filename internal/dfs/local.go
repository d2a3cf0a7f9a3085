package dfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"

	"github.com/arkilian/readbench/pkg/types"
)

// LocalFileSystem serves DFS paths from a local directory, the way an HDFS
// client configured with a file:// default filesystem would. Every block is
// local, so all reads count as local and short-circuit; zero-copy reads hand
// out slices of a read-only memory mapping.
type LocalFileSystem struct {
	root     string
	zeroCopy bool
	closed   atomic.Bool
}

// NewLocalFileSystem creates a local filesystem rooted at root ("" resolves
// paths as given).
func NewLocalFileSystem(root string, zeroCopy bool) *LocalFileSystem {
	return &LocalFileSystem{root: root, zeroCopy: zeroCopy}
}

func connectLocal(_ context.Context, opts Options) (FileSystem, error) {
	if opts.Root != "" {
		info, err := os.Stat(opts.Root)
		if err != nil {
			return nil, fmt.Errorf("failed to stat dfs root: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("dfs root %s is not a directory", opts.Root)
		}
	}
	return NewLocalFileSystem(opts.Root, !opts.DisableZeroCopy), nil
}

// PathInfo returns the size and modification time of path.
func (l *LocalFileSystem) PathInfo(ctx context.Context, path string) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}
	if l.closed.Load() {
		return FileInfo{}, ErrClosed
	}

	info, err := os.Stat(l.fullPath(path))
	if err != nil {
		return FileInfo{}, err
	}
	if info.IsDir() {
		return FileInfo{}, fmt.Errorf("%s is a directory", path)
	}
	return FileInfo{Path: path, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// OpenFile opens path for reading. The buffer size hint is unused: reads go
// straight to the descriptor.
func (l *LocalFileSystem) OpenFile(ctx context.Context, path string, bufferSize int) (File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if l.closed.Load() {
		return nil, ErrClosed
	}

	f, err := os.Open(l.fullPath(path))
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	return &localFile{
		f:        f,
		size:     info.Size(),
		zeroCopy: l.zeroCopy,
	}, nil
}

// Close marks the filesystem closed. Open files stay usable until closed.
func (l *LocalFileSystem) Close() error {
	l.closed.Store(true)
	return nil
}

func (l *LocalFileSystem) fullPath(path string) string {
	if l.root == "" {
		return path
	}
	return filepath.Join(l.root, filepath.FromSlash(path))
}

// localFile implements File over an os.File.
type localFile struct {
	f        *os.File
	size     int64
	zeroCopy bool

	pos int64 // cursor for Read/Seek/ReadZero

	mapOnce sync.Once
	mapping mmap.MMap
	mapErr  error

	outstanding atomic.Int64 // zero-copy buffers not yet released

	total        atomic.Int64
	local        atomic.Int64
	shortCircuit atomic.Int64
	zeroCopied   atomic.Int64

	closed atomic.Bool
}

func (lf *localFile) Read(p []byte) (int, error) {
	n, err := lf.Pread(lf.pos, p)
	lf.pos += int64(n)
	return n, err
}

func (lf *localFile) Seek(offset int64) error {
	if lf.closed.Load() {
		return ErrClosed
	}
	if offset < 0 {
		return fmt.Errorf("negative seek offset %d", offset)
	}
	lf.pos = offset
	return nil
}

func (lf *localFile) Pread(offset int64, p []byte) (int, error) {
	if lf.closed.Load() {
		return 0, ErrClosed
	}
	if offset >= lf.size {
		return 0, io.EOF
	}
	if rem := lf.size - offset; int64(len(p)) > rem {
		p = p[:rem]
	}

	n, err := lf.f.ReadAt(p, offset)
	lf.count(int64(n), false)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

func (lf *localFile) ReadZero(maxLen int) (ZeroCopyBuffer, error) {
	if lf.closed.Load() {
		return nil, ErrClosed
	}
	if !lf.zeroCopy {
		return nil, ErrNotSupported
	}
	if lf.pos >= lf.size {
		return nil, io.EOF
	}

	lf.mapOnce.Do(func() {
		lf.mapping, lf.mapErr = mmap.Map(lf.f, mmap.RDONLY, 0)
	})
	if lf.mapErr != nil {
		return nil, fmt.Errorf("failed to map file for zero-copy read: %w", lf.mapErr)
	}

	n := int64(maxLen)
	if rem := lf.size - lf.pos; n > rem {
		n = rem
	}
	buf := &mappedBuffer{file: lf, data: lf.mapping[lf.pos : lf.pos+n]}
	lf.pos += n
	lf.outstanding.Add(1)
	lf.count(n, true)
	return buf, nil
}

func (lf *localFile) ReadStatistics() types.ReadStats {
	return types.ReadStats{
		TotalBytes:        lf.total.Load(),
		LocalBytes:        lf.local.Load(),
		ShortCircuitBytes: lf.shortCircuit.Load(),
		ZeroCopyBytes:     lf.zeroCopied.Load(),
	}
}

func (lf *localFile) Close() error {
	if lf.closed.Swap(true) {
		return nil
	}

	// The descriptor and the mapping are released even with buffers still
	// outstanding; those buffers must not be read after Close.
	var errs []error
	if n := lf.outstanding.Load(); n > 0 {
		errs = append(errs, fmt.Errorf("closing file with %d unreleased zero-copy buffers", n))
	}
	if lf.mapping != nil {
		if err := lf.mapping.Unmap(); err != nil {
			errs = append(errs, fmt.Errorf("unmap: %w", err))
		}
		lf.mapping = nil
	}
	if err := lf.f.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (lf *localFile) count(n int64, zeroCopy bool) {
	if n <= 0 {
		return
	}
	lf.total.Add(n)
	lf.local.Add(n)
	lf.shortCircuit.Add(n)
	if zeroCopy {
		lf.zeroCopied.Add(n)
	}
}

type mappedBuffer struct {
	file     *localFile
	data     []byte
	released bool
}

func (b *mappedBuffer) Bytes() []byte {
	return b.data
}

func (b *mappedBuffer) Release() {
	if b.released {
		return
	}
	b.released = true
	b.data = nil
	b.file.outstanding.Add(-1)
}
