// Package report formats benchmark results for the terminal.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/arkilian/readbench/pkg/types"
)

// Unit is the unit throughput is reported in.
type Unit string

const (
	UnitB  Unit = "B"
	UnitKB Unit = "KB"
	UnitMB Unit = "MB"
	UnitGB Unit = "GB"
)

// ParseUnit validates a unit name, ignoring case.
func ParseUnit(s string) (Unit, error) {
	switch u := Unit(strings.ToUpper(s)); u {
	case UnitB, UnitKB, UnitMB, UnitGB:
		return u, nil
	default:
		return "", fmt.Errorf("unknown unit %q (must be B, KB, MB or GB)", s)
	}
}

// Divisor returns the number of bytes in one unit (binary multiples).
func (u Unit) Divisor() float64 {
	switch u {
	case UnitKB:
		return 1 << 10
	case UnitMB:
		return 1 << 20
	case UnitGB:
		return 1 << 30
	default:
		return 1
	}
}

// Throughput returns bytes per second. It is 0 when nothing was read or no
// time elapsed.
func Throughput(size int64, elapsed time.Duration) float64 {
	if size <= 0 || elapsed <= 0 {
		return 0
	}
	return float64(size) / elapsed.Seconds()
}

// Scale converts a bytes-per-second figure into u per second.
func Scale(bytesPerSec float64, u Unit) float64 {
	return bytesPerSec / u.Divisor()
}

// Summary is everything the report prints about one run.
type Summary struct {
	RunID       string
	Backend     types.BackendKind
	Mode        types.ReadMode
	File        string
	Size        int64
	Workers     int
	BufferSize  int
	OpenLatency time.Duration
	Transfer    time.Duration
	Throughput  float64 // bytes per second
	Unit        Unit
	Stats       types.ReadStats
	Digest      uint64
	ShowDigest  bool
}

// Scaled returns the throughput in the summary's unit.
func (s Summary) Scaled() float64 {
	return Scale(s.Throughput, s.Unit)
}

// Line returns the one-line human-readable summary.
func (s Summary) Line() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Read %d bytes from %s via %s (%s, %d workers, %d byte buffer) in %.6f s: %.3f %s/s",
		s.Size, s.File, s.Backend, s.Mode, s.Workers, s.BufferSize,
		s.Transfer.Seconds(), s.Scaled(), s.Unit)

	if s.Backend == types.BackendHDFS {
		fmt.Fprintf(&b, " [total=%d local=%d short-circuit=%d zero-copy=%d]",
			s.Stats.TotalBytes, s.Stats.LocalBytes, s.Stats.ShortCircuitBytes, s.Stats.ZeroCopyBytes)
	}
	if s.ShowDigest {
		fmt.Fprintf(&b, " digest=%016x", s.Digest)
	}
	return b.String()
}

// Write prints the summary line followed by the bare throughput figure.
func Write(w io.Writer, s Summary) error {
	if _, err := fmt.Fprintln(w, s.Line()); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%.6f\n", s.Scaled())
	return err
}

// CSVHeader is the column list written by CSVWriter.
var CSVHeader = []string{
	"run_id", "type", "mode", "buffer_size", "workers", "bytes",
	"open_seconds", "transfer_seconds", "throughput", "unit",
	"local_bytes", "short_circuit_bytes", "zero_copy_bytes",
}

// CSVWriter writes one row per run.
type CSVWriter struct {
	w *csv.Writer
}

// NewCSVWriter creates a writer and emits the header row.
func NewCSVWriter(w io.Writer) (*CSVWriter, error) {
	cw := &CSVWriter{w: csv.NewWriter(w)}
	if err := cw.w.Write(CSVHeader); err != nil {
		return nil, err
	}
	cw.w.Flush()
	return cw, cw.w.Error()
}

// Write emits the row for s and flushes it.
func (c *CSVWriter) Write(s Summary) error {
	row := []string{
		s.RunID,
		string(s.Backend),
		string(s.Mode),
		strconv.Itoa(s.BufferSize),
		strconv.Itoa(s.Workers),
		strconv.FormatInt(s.Size, 10),
		strconv.FormatFloat(s.OpenLatency.Seconds(), 'f', 6, 64),
		strconv.FormatFloat(s.Transfer.Seconds(), 'f', 6, 64),
		strconv.FormatFloat(s.Scaled(), 'f', 6, 64),
		string(s.Unit),
		strconv.FormatInt(s.Stats.LocalBytes, 10),
		strconv.FormatInt(s.Stats.ShortCircuitBytes, 10),
		strconv.FormatInt(s.Stats.ZeroCopyBytes, 10),
	}
	if err := c.w.Write(row); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}
