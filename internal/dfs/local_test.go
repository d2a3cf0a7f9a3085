package dfs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
}

func pattern(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return data
}

func TestConnect_UnknownDriver(t *testing.T) {
	_, err := Connect(context.Background(), Options{Driver: "gopher"})
	if !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("expected ErrUnknownDriver, got %v", err)
	}
}

func TestConnect_LocalRootMustExist(t *testing.T) {
	_, err := Connect(context.Background(), Options{Driver: "local", Root: filepath.Join(t.TempDir(), "missing")})
	if err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestDrivers_Registered(t *testing.T) {
	names := Drivers()
	if len(names) < 2 || names[0] != "local" || names[1] != "s3" {
		t.Errorf("unexpected drivers: %v", names)
	}
}

func TestLocal_PathInfo(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data.bin", pattern(1000))

	fs, err := Connect(context.Background(), Options{Driver: "local", Root: dir})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer fs.Close()

	info, err := fs.PathInfo(context.Background(), "data.bin")
	if err != nil {
		t.Fatalf("PathInfo failed: %v", err)
	}
	if info.Size != 1000 {
		t.Errorf("expected size 1000, got %d", info.Size)
	}

	if _, err := fs.PathInfo(context.Background(), "nope.bin"); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestLocal_StandardReadCountsLocalAndShortCircuit(t *testing.T) {
	dir := t.TempDir()
	data := pattern(10000)
	writeFile(t, dir, "data.bin", data)

	fs := NewLocalFileSystem(dir, true)
	f, err := fs.OpenFile(context.Background(), "data.bin", 4096)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer f.Close()

	if err := f.Seek(5000); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}

	var got bytes.Buffer
	buf := make([]byte, 3000)
	for {
		n, err := f.Read(buf)
		got.Write(buf[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Read failed: %v", err)
		}
	}

	if !bytes.Equal(got.Bytes(), data[5000:]) {
		t.Fatal("read data mismatch")
	}

	stats := f.ReadStatistics()
	if stats.TotalBytes != 5000 || stats.LocalBytes != 5000 || stats.ShortCircuitBytes != 5000 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.ZeroCopyBytes != 0 {
		t.Errorf("standard reads must not count zero-copy bytes, got %d", stats.ZeroCopyBytes)
	}
}

func TestLocal_ZeroCopyRead(t *testing.T) {
	dir := t.TempDir()
	data := pattern(10000)
	writeFile(t, dir, "data.bin", data)

	fs := NewLocalFileSystem(dir, true)
	f, err := fs.OpenFile(context.Background(), "data.bin", 0)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}

	var got bytes.Buffer
	for {
		zb, err := f.ReadZero(4096)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("ReadZero failed: %v", err)
		}
		if len(zb.Bytes()) > 4096 {
			t.Fatalf("buffer exceeds maxLen: %d", len(zb.Bytes()))
		}
		got.Write(zb.Bytes())
		zb.Release()
	}

	if !bytes.Equal(got.Bytes(), data) {
		t.Fatal("zero-copy data mismatch")
	}

	stats := f.ReadStatistics()
	if stats.ZeroCopyBytes != 10000 || stats.TotalBytes != 10000 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	if err := f.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestLocal_ZeroCopyDisabled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data.bin", pattern(100))

	fs, err := Connect(context.Background(), Options{Driver: "local", Root: dir, DisableZeroCopy: true})
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	f, err := fs.OpenFile(context.Background(), "data.bin", 0)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer f.Close()

	if _, err := f.ReadZero(64); !errors.Is(err, ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported, got %v", err)
	}
}

func TestLocal_CloseWithUnreleasedBuffer(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data.bin", pattern(100))

	f, err := NewLocalFileSystem(dir, true).OpenFile(context.Background(), "data.bin", 0)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}

	zb, err := f.ReadZero(10)
	if err != nil {
		t.Fatalf("ReadZero failed: %v", err)
	}
	if err := f.Close(); err == nil {
		t.Error("expected error closing with unreleased buffer")
	}
	zb.Release()

	lf := f.(*localFile)
	if _, err := lf.f.Stat(); !errors.Is(err, os.ErrClosed) {
		t.Errorf("descriptor should be closed despite the error, got %v", err)
	}
	if lf.mapping != nil {
		t.Error("mapping should be released despite the error")
	}
	if err := f.Close(); err != nil {
		t.Errorf("second Close should be a no-op, got %v", err)
	}
}

func TestLocal_ConcurrentPread(t *testing.T) {
	dir := t.TempDir()
	data := pattern(64 * 1024)
	writeFile(t, dir, "data.bin", data)

	f, err := NewLocalFileSystem(dir, false).OpenFile(context.Background(), "data.bin", 0)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer f.Close()

	const workers = 8
	part := len(data) / workers

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			buf := make([]byte, part)
			n, err := f.Pread(int64(w*part), buf)
			if err != nil {
				errs <- err
				return
			}
			if !bytes.Equal(buf[:n], data[w*part:(w+1)*part]) {
				errs <- errors.New("pread data mismatch")
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	if got := f.ReadStatistics().TotalBytes; got != int64(len(data)) {
		t.Errorf("expected %d total bytes, got %d", len(data), got)
	}
}

func TestLocal_PreadPastEnd(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data.bin", pattern(10))

	f, err := NewLocalFileSystem(dir, false).OpenFile(context.Background(), "data.bin", 0)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer f.Close()

	buf := make([]byte, 8)
	n, err := f.Pread(6, buf)
	if err != nil || n != 4 {
		t.Fatalf("expected short read of 4, got %d, %v", n, err)
	}
	if _, err := f.Pread(10, buf); err != io.EOF {
		t.Errorf("expected io.EOF at end, got %v", err)
	}
}
