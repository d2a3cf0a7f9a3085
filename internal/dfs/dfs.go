// Package dfs defines the distributed filesystem client the hdfs backend reads
// through, and the drivers that implement it.
//
// The client surface mirrors a libhdfs-style API: connect, path info, open,
// cursor and positioned reads, zero-copy reads that hand out library-owned
// buffers, and cumulative per-file read statistics.
package dfs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/arkilian/readbench/pkg/types"
)

// Common errors for DFS operations.
var (
	// ErrNotSupported is returned when the driver or environment cannot
	// perform the requested operation (for example zero-copy reads)
	ErrNotSupported = errors.New("operation not supported")

	// ErrClosed is returned by operations on a closed file or filesystem
	ErrClosed = errors.New("file closed")

	// ErrUnknownDriver is returned by Connect for an unregistered driver name
	ErrUnknownDriver = errors.New("unknown dfs driver")
)

// FileInfo describes a path on the filesystem.
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// FileSystem is a connection to a distributed filesystem.
type FileSystem interface {
	// PathInfo returns metadata for path, including its size in bytes.
	PathInfo(ctx context.Context, path string) (FileInfo, error)

	// OpenFile opens path for reading. bufferSize is the client-side buffer
	// size hint; drivers may ignore it.
	OpenFile(ctx context.Context, path string, bufferSize int) (File, error)

	// Close releases the connection.
	Close() error
}

// File is an open file on a distributed filesystem.
//
// Read, Seek and ReadZero share one cursor and must not be called
// concurrently. Pread takes an explicit offset and is safe to call from
// several goroutines at once. ReadStatistics is always safe.
type File interface {
	// Read reads up to len(p) bytes at the cursor and advances it.
	// It returns 0, io.EOF at end of file.
	Read(p []byte) (int, error)

	// Seek moves the cursor to an absolute offset.
	Seek(offset int64) error

	// Pread reads up to len(p) bytes at offset without touching the cursor.
	// It may return fewer bytes than requested; it returns 0, io.EOF at or
	// past end of file.
	Pread(offset int64, p []byte) (int, error)

	// ReadZero reads up to maxLen bytes at the cursor without copying them
	// into caller memory. The returned buffer must be released. It returns
	// an error matching ErrNotSupported when zero-copy is unavailable, and
	// nil, io.EOF at end of file.
	ReadZero(maxLen int) (ZeroCopyBuffer, error)

	// ReadStatistics returns cumulative byte counters for this handle.
	ReadStatistics() types.ReadStats

	// Close releases the handle.
	Close() error
}

// ZeroCopyBuffer is a reference to a library-managed buffer.
type ZeroCopyBuffer interface {
	// Bytes returns the data. It is only valid until Release.
	Bytes() []byte

	// Release returns the buffer to the library.
	Release()
}

// Options holds connection settings for all drivers.
type Options struct {
	// Driver is the registered driver name: local, s3
	Driver string `json:"driver" yaml:"driver" toml:"driver"`

	// Host and Port locate the filesystem endpoint (s3: the service endpoint)
	Host string `json:"host" yaml:"host" toml:"host"`
	Port int    `json:"port" yaml:"port" toml:"port"`

	// Root is the directory paths are resolved against (local driver)
	Root string `json:"root" yaml:"root" toml:"root"`

	// Bucket and Region select the object store namespace (s3 driver)
	Bucket string `json:"bucket" yaml:"bucket" toml:"bucket"`
	Region string `json:"region" yaml:"region" toml:"region"`

	// UsePathStyle enables path-style addressing (required for MinIO)
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style" toml:"use_path_style"`

	// DisableZeroCopy makes zero-copy reads report ErrNotSupported
	DisableZeroCopy bool `json:"disable_zero_copy" yaml:"disable_zero_copy" toml:"disable_zero_copy"`
}

// Endpoint returns host:port, or host alone when no port is set.
func (o Options) Endpoint() string {
	if o.Host == "" {
		return ""
	}
	if o.Port == 0 {
		return o.Host
	}
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

// Driver connects to a filesystem.
type Driver func(ctx context.Context, opts Options) (FileSystem, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]Driver)
)

// Register makes a driver available to Connect. Registering a name twice
// replaces the earlier driver.
func Register(name string, d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = d
}

// Drivers returns the registered driver names in sorted order.
func Drivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Connect opens a connection using the driver named in opts.
func Connect(ctx context.Context, opts Options) (FileSystem, error) {
	driversMu.RLock()
	d, ok := drivers[opts.Driver]
	driversMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownDriver, opts.Driver, Drivers())
	}
	return d(ctx, opts)
}

func init() {
	Register("local", connectLocal)
	Register("s3", connectS3)
}
