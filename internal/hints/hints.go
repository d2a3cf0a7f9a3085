// Package hints applies optional, platform-specific I/O tuning after a backend
// opens its file: access-pattern advice, read-ahead and I/O priority.
// Hints never change what is read; a hint that fails or is unsupported is
// logged and ignored.
package hints

import (
	"errors"
	"log"
)

// ErrUnsupported is returned by advisors that cannot apply a hint on this platform.
var ErrUnsupported = errors.New("hint not supported on this platform")

// Advice is an access-pattern hint.
type Advice int

const (
	AdviceSequential Advice = iota
	AdviceWillNeed
)

func (a Advice) String() string {
	switch a {
	case AdviceSequential:
		return "sequential"
	case AdviceWillNeed:
		return "willneed"
	default:
		return "unknown"
	}
}

// Options selects which hints to apply. Sequential and WillNeed are mutually
// exclusive; config validation enforces that.
type Options struct {
	AdviseSequential bool
	AdviseWillNeed   bool
	ReadAhead        bool
	IOPriority       bool
}

// Any reports whether at least one hint is enabled.
func (o Options) Any() bool {
	return o.AdviseSequential || o.AdviseWillNeed || o.ReadAhead || o.IOPriority
}

// Advisor is the platform capability behind the hints.
type Advisor interface {
	// Fadvise declares the access pattern for a byte range of an open descriptor.
	Fadvise(fd uintptr, offset, length int64, advice Advice) error

	// Madvise declares the access pattern for a mapped region.
	Madvise(b []byte, advice Advice) error

	// Readahead asks the kernel to populate the page cache for a descriptor.
	Readahead(fd uintptr, offset, length int64) error

	// RaiseIOPriority raises the I/O scheduling priority of the process.
	RaiseIOPriority() error
}

// Applier applies the configured hints through an Advisor.
type Applier struct {
	advisor Advisor
	opts    Options
}

// NewApplier creates an applier using the platform advisor.
func NewApplier(opts Options) *Applier {
	return NewApplierWithAdvisor(platformAdvisor(), opts)
}

// NewApplierWithAdvisor creates an applier with a specific advisor.
func NewApplierWithAdvisor(advisor Advisor, opts Options) *Applier {
	if advisor == nil {
		advisor = NoopAdvisor{}
	}
	return &Applier{advisor: advisor, opts: opts}
}

// ApplyFile applies descriptor hints for a file of the given size.
// It returns the number of hints that failed, for tests and diagnostics.
func (a *Applier) ApplyFile(fd uintptr, size int64) int {
	failed := 0
	if advice, ok := a.advice(); ok {
		failed += a.report("fadvise "+advice.String(), a.advisor.Fadvise(fd, 0, size, advice))
	}
	if a.opts.ReadAhead {
		failed += a.report("readahead", a.advisor.Readahead(fd, 0, size))
	}
	if a.opts.IOPriority {
		failed += a.report("ioprio", a.advisor.RaiseIOPriority())
	}
	return failed
}

// ApplyMapping applies hints to a memory-mapped region of the file open on fd.
func (a *Applier) ApplyMapping(fd uintptr, b []byte) int {
	failed := 0
	if len(b) > 0 {
		if advice, ok := a.advice(); ok {
			failed += a.report("madvise "+advice.String(), a.advisor.Madvise(b, advice))
		}
		if a.opts.ReadAhead {
			failed += a.report("readahead", a.advisor.Readahead(fd, 0, int64(len(b))))
		}
	}
	if a.opts.IOPriority {
		failed += a.report("ioprio", a.advisor.RaiseIOPriority())
	}
	return failed
}

// ApplyProcess applies the hints that do not need a local descriptor.
// Backends reading through a remote client only get the I/O priority.
func (a *Applier) ApplyProcess() int {
	if a.opts.IOPriority {
		return a.report("ioprio", a.advisor.RaiseIOPriority())
	}
	return 0
}

func (a *Applier) advice() (Advice, bool) {
	switch {
	case a.opts.AdviseSequential:
		return AdviceSequential, true
	case a.opts.AdviseWillNeed:
		return AdviceWillNeed, true
	default:
		return 0, false
	}
}

func (a *Applier) report(hint string, err error) int {
	if err == nil {
		return 0
	}
	log.Printf("Ignoring %s hint: %v", hint, err)
	return 1
}

// NoopAdvisor is used on platforms without hint support.
type NoopAdvisor struct{}

func (NoopAdvisor) Fadvise(uintptr, int64, int64, Advice) error { return ErrUnsupported }
func (NoopAdvisor) Madvise([]byte, Advice) error                { return ErrUnsupported }
func (NoopAdvisor) Readahead(uintptr, int64, int64) error       { return ErrUnsupported }
func (NoopAdvisor) RaiseIOPriority() error                      { return ErrUnsupported }
