package benchmark

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/joho/godotenv"

	"github.com/arkilian/readbench/internal/config"
	"github.com/arkilian/readbench/pkg/types"
)

const defaultBenchFileSize = 64 << 20

// benchFile returns the path of the file to benchmark against.
// READBENCH_BENCH_FILE (from .env or environment) selects an existing file;
// otherwise a file of READBENCH_BENCH_SIZE bytes (default 64 MiB) is
// generated in a temp dir.
func benchFile(b *testing.B) (string, int64) {
	b.Helper()
	// Try loading .env from project root (../../.env relative to test/benchmark)
	_ = godotenv.Load("../../.env")

	if path := os.Getenv("READBENCH_BENCH_FILE"); path != "" {
		info, err := os.Stat(path)
		if err != nil {
			b.Fatalf("bench file: %v", err)
		}
		return path, info.Size()
	}

	size := int64(defaultBenchFileSize)
	if v := os.Getenv("READBENCH_BENCH_SIZE"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			b.Fatalf("invalid READBENCH_BENCH_SIZE %q", v)
		}
		size = n
	}

	path := filepath.Join(b.TempDir(), "bench.bin")
	f, err := os.Create(path)
	if err != nil {
		b.Fatal(err)
	}
	defer f.Close()

	chunk := make([]byte, 1<<20)
	for i := range chunk {
		chunk[i] = byte(i * 7)
	}
	for written := int64(0); written < size; {
		n := int64(len(chunk))
		if size-written < n {
			n = size - written
		}
		if _, err := f.Write(chunk[:n]); err != nil {
			b.Fatal(err)
		}
		written += n
	}
	return path, size
}

func benchConfig(kind types.BackendKind, path string, bufferSize, workers int) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Type = kind
	cfg.File = path
	cfg.BufferSize = bufferSize
	cfg.Workers = workers
	return cfg
}
