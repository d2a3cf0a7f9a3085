//go:build linux && (amd64 || arm64)

package hints

import (
	"golang.org/x/sys/unix"
)

const (
	ioprioClassShift = 13
	ioprioClassBE    = 2
	ioprioWhoProcess = 1
)

type unixAdvisor struct{}

func platformAdvisor() Advisor {
	return unixAdvisor{}
}

func (unixAdvisor) Fadvise(fd uintptr, offset, length int64, advice Advice) error {
	return unix.Fadvise(int(fd), offset, length, fadviseFlag(advice))
}

func (unixAdvisor) Madvise(b []byte, advice Advice) error {
	flag := unix.MADV_SEQUENTIAL
	if advice == AdviceWillNeed {
		flag = unix.MADV_WILLNEED
	}
	return unix.Madvise(b, flag)
}

func (unixAdvisor) Readahead(fd uintptr, offset, length int64) error {
	_, _, errno := unix.Syscall(unix.SYS_READAHEAD, fd, uintptr(offset), uintptr(length))
	if errno != 0 {
		return errno
	}
	return nil
}

// RaiseIOPriority moves the process to the highest best-effort I/O priority.
func (unixAdvisor) RaiseIOPriority() error {
	prio := uintptr(ioprioClassBE << ioprioClassShift)
	_, _, errno := unix.Syscall(unix.SYS_IOPRIO_SET, ioprioWhoProcess, 0, prio)
	if errno != 0 {
		return errno
	}
	return nil
}

func fadviseFlag(advice Advice) int {
	if advice == AdviceWillNeed {
		return unix.FADV_WILLNEED
	}
	return unix.FADV_SEQUENTIAL
}
