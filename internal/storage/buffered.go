package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	benchErrors "github.com/arkilian/readbench/internal/errors"
	"github.com/arkilian/readbench/pkg/types"
)

// BufferedBackend reads a local file with positioned reads into a
// per-reader buffer (the file_read backend). All readers share one
// descriptor; ReadAt does not move a shared cursor.
type BufferedBackend struct {
	opts Options
}

// NewBufferedBackend creates a buffered local file backend.
func NewBufferedBackend(opts Options) *BufferedBackend {
	return &BufferedBackend{opts: opts}
}

func (b *BufferedBackend) Kind() types.BackendKind {
	return types.BackendFileRead
}

func (b *BufferedBackend) Size(ctx context.Context, path string) (int64, error) {
	return statLocal(ctx, path)
}

func (b *BufferedBackend) Open(ctx context.Context, path string) (Handle, error) {
	f, size, err := openLocal(ctx, path)
	if err != nil {
		return nil, err
	}

	if b.opts.Hints != nil {
		b.opts.Hints.ApplyFile(f.Fd(), size)
	}

	return &bufferedHandle{f: f, size: size}, nil
}

func (b *BufferedBackend) Close() error {
	return nil
}

type bufferedHandle struct {
	f      *os.File
	size   int64
	closed atomic.Bool
}

func (h *bufferedHandle) Size() int64 {
	return h.size
}

func (h *bufferedHandle) NewReader(ext types.FileExtent) (Reader, error) {
	if h.closed.Load() {
		return nil, ErrHandleClosed
	}
	if err := checkExtent(ext, h.size); err != nil {
		return nil, fmt.Errorf("%w: %s of %d bytes", err, ext, h.size)
	}
	return &bufferedReader{f: h.f, pos: ext.Offset, end: ext.End()}, nil
}

func (h *bufferedHandle) Stats() types.ReadStats {
	return types.ReadStats{}
}

func (h *bufferedHandle) Mode() types.ReadMode {
	return types.ReadModeBuffered
}

func (h *bufferedHandle) Close() error {
	if h.closed.Swap(true) {
		return nil
	}
	return h.f.Close()
}

type bufferedReader struct {
	f   *os.File
	pos int64
	end int64
	buf []byte
}

func (r *bufferedReader) ReadChunk(max int, fn func([]byte)) (int, error) {
	want := remaining(max, r.pos, r.end)
	if want == 0 {
		return 0, nil
	}
	if cap(r.buf) < want {
		r.buf = make([]byte, want)
	}

	n, err := r.f.ReadAt(r.buf[:want], r.pos)
	if n > 0 {
		fn(r.buf[:n])
		r.pos += int64(n)
	}
	if err != nil && err != io.EOF {
		return n, benchErrors.NewReadError(benchErrors.CodeReadFailed,
			fmt.Sprintf("read at offset %d failed", r.pos), err)
	}
	return n, nil
}

func (r *bufferedReader) Stats() types.ReadStats {
	return types.ReadStats{}
}

func (r *bufferedReader) Close() error {
	r.buf = nil
	return nil
}

func statLocal(ctx context.Context, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, benchErrors.NewOpenError(benchErrors.CodeStatFailed,
			fmt.Sprintf("failed to stat %s", path), err)
	}
	if info.IsDir() {
		return 0, benchErrors.NewOpenError(benchErrors.CodeStatFailed,
			fmt.Sprintf("%s is a directory", path), nil)
	}
	return info.Size(), nil
}

func openLocal(ctx context.Context, path string) (*os.File, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, benchErrors.NewOpenError(benchErrors.CodeOpenFailed,
			fmt.Sprintf("failed to open %s", path), err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, benchErrors.NewOpenError(benchErrors.CodeStatFailed,
			fmt.Sprintf("failed to stat %s", path), err)
	}
	return f, info.Size(), nil
}
