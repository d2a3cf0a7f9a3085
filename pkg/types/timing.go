package types

import (
	"fmt"
	"time"
)

// NanosPerSecond is the carry unit between Timestamp fields.
const NanosPerSecond = 1_000_000_000

// processEpoch anchors Now so timestamps come from the monotonic clock.
var processEpoch = time.Now()

// Timestamp is a monotonic instant split into seconds and nanoseconds,
// with 0 <= Nsec < NanosPerSecond for any value produced by Now.
type Timestamp struct {
	Sec  int64
	Nsec int64
}

// Now returns the current monotonic timestamp.
func Now() Timestamp {
	return FromDuration(time.Since(processEpoch))
}

// FromDuration splits d into a Timestamp.
func FromDuration(d time.Duration) Timestamp {
	return Timestamp{
		Sec:  int64(d / time.Second),
		Nsec: int64(d % time.Second),
	}
}

// Duration converts the timestamp to a time.Duration.
func (t Timestamp) Duration() time.Duration {
	return time.Duration(t.Sec)*time.Second + time.Duration(t.Nsec)
}

// String formats the timestamp as seconds with nanosecond precision.
func (t Timestamp) String() string {
	return fmt.Sprintf("%d.%09ds", t.Sec, t.Nsec)
}

// Sub returns end - start, borrowing one second when the nanosecond
// component underflows. A result that would be negative (end before
// start) is clamped to zero.
func Sub(end, start Timestamp) Timestamp {
	var d Timestamp
	if end.Nsec-start.Nsec < 0 {
		d.Sec = end.Sec - start.Sec - 1
		d.Nsec = NanosPerSecond + end.Nsec - start.Nsec
	} else {
		d.Sec = end.Sec - start.Sec
		d.Nsec = end.Nsec - start.Nsec
	}
	if d.Sec < 0 {
		return Timestamp{}
	}
	return d
}

// TimingInterval is a pair of monotonic timestamps.
type TimingInterval struct {
	Start Timestamp
	End   Timestamp
}

// Elapsed returns End - Start as a Timestamp.
func (i TimingInterval) Elapsed() Timestamp {
	return Sub(i.End, i.Start)
}

// Duration returns End - Start as a time.Duration.
func (i TimingInterval) Duration() time.Duration {
	return i.Elapsed().Duration()
}
