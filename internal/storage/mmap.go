package storage

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"

	benchErrors "github.com/arkilian/readbench/internal/errors"
	"github.com/arkilian/readbench/pkg/types"
)

// MmapBackend maps the whole file read-only and hands readers sub-slices of
// the mapping (the file_mmap backend). Nothing is copied; bytes are faulted
// in as the toucher walks them.
type MmapBackend struct {
	opts Options
}

// NewMmapBackend creates a memory-mapped local file backend.
func NewMmapBackend(opts Options) *MmapBackend {
	return &MmapBackend{opts: opts}
}

func (b *MmapBackend) Kind() types.BackendKind {
	return types.BackendFileMmap
}

func (b *MmapBackend) Size(ctx context.Context, path string) (int64, error) {
	return statLocal(ctx, path)
}

// Open maps path. A zero-length file cannot be mapped, so its handle carries
// an empty region.
func (b *MmapBackend) Open(ctx context.Context, path string) (Handle, error) {
	f, size, err := openLocal(ctx, path)
	if err != nil {
		return nil, err
	}

	h := &mmapHandle{f: f, size: size}
	if size > 0 {
		h.region, err = mmap.Map(f, mmap.RDONLY, 0)
		if err != nil {
			f.Close()
			return nil, benchErrors.NewOpenError(benchErrors.CodeMapFailed,
				fmt.Sprintf("failed to map %s", path), err)
		}
	}

	if b.opts.Hints != nil {
		b.opts.Hints.ApplyMapping(f.Fd(), h.region)
	}

	return h, nil
}

func (b *MmapBackend) Close() error {
	return nil
}

type mmapHandle struct {
	f      *os.File
	size   int64
	region mmap.MMap
	closed atomic.Bool
}

func (h *mmapHandle) Size() int64 {
	return h.size
}

func (h *mmapHandle) NewReader(ext types.FileExtent) (Reader, error) {
	if h.closed.Load() {
		return nil, ErrHandleClosed
	}
	if err := checkExtent(ext, h.size); err != nil {
		return nil, fmt.Errorf("%w: %s of %d bytes", err, ext, h.size)
	}
	return &mmapReader{region: h.region, pos: ext.Offset, end: ext.End()}, nil
}

func (h *mmapHandle) Stats() types.ReadStats {
	return types.ReadStats{}
}

func (h *mmapHandle) Mode() types.ReadMode {
	return types.ReadModeMmap
}

func (h *mmapHandle) Close() error {
	if h.closed.Swap(true) {
		return nil
	}

	var unmapErr error
	if h.region != nil {
		unmapErr = h.region.Unmap()
		h.region = nil
	}
	if err := h.f.Close(); err != nil {
		return err
	}
	return unmapErr
}

type mmapReader struct {
	region []byte
	pos    int64
	end    int64
}

func (r *mmapReader) ReadChunk(max int, fn func([]byte)) (int, error) {
	n := remaining(max, r.pos, r.end)
	if n == 0 {
		return 0, nil
	}
	fn(r.region[r.pos : r.pos+int64(n)])
	r.pos += int64(n)
	return n, nil
}

func (r *mmapReader) Stats() types.ReadStats {
	return types.ReadStats{}
}

func (r *mmapReader) Close() error {
	r.region = nil
	return nil
}
