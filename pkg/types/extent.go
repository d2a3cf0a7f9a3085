// Package types holds the value types shared across readbench packages.
package types

import "fmt"

// FileExtent is a contiguous byte range of a file assigned to one worker.
// Extents are created by the partitioner and never mutated afterwards.
type FileExtent struct {
	// Offset is the first byte of the range
	Offset int64 `json:"offset"`

	// Length is the number of bytes in the range (may be zero)
	Length int64 `json:"length"`
}

// End returns the offset one past the last byte of the extent.
func (e FileExtent) End() int64 {
	return e.Offset + e.Length
}

// IsEmpty reports whether the extent covers no bytes.
func (e FileExtent) IsEmpty() bool {
	return e.Length == 0
}

// String returns the extent as a half-open interval.
func (e FileExtent) String() string {
	return fmt.Sprintf("[%d, %d)", e.Offset, e.End())
}

// BackendKind selects which storage backend a benchmark reads through.
type BackendKind string

const (
	// BackendHDFS reads through the distributed filesystem client
	BackendHDFS BackendKind = "hdfs"

	// BackendFileMmap maps the local file and touches the mapped region
	BackendFileMmap BackendKind = "file_mmap"

	// BackendFileRead reads the local file through buffered positioned reads
	BackendFileRead BackendKind = "file_read"
)

// ParseBackendKind validates a backend name from user input.
func ParseBackendKind(s string) (BackendKind, error) {
	switch k := BackendKind(s); k {
	case BackendHDFS, BackendFileMmap, BackendFileRead:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q (must be hdfs, file_mmap or file_read)", ErrUnknownBackend, s)
	}
}

// ReadMode is the read strategy a backend actually used.
type ReadMode string

const (
	ReadModeZeroCopy   ReadMode = "zero-copy"
	ReadModeStandard   ReadMode = "standard"
	ReadModePositioned ReadMode = "pread"
	ReadModeMmap       ReadMode = "mmap"
	ReadModeBuffered   ReadMode = "buffered"
)
