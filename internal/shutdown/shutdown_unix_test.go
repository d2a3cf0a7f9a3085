//go:build unix

package shutdown

import (
	"context"
	"syscall"
	"testing"
	"time"
)

func TestListenForSignals_CancelsOnSignal(t *testing.T) {
	m := NewManager()
	ctx, stop := m.ListenForSignals(context.Background())
	defer stop()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGINT); err != nil {
		t.Skipf("cannot signal self: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("context not cancelled after SIGINT")
	}
}
