// Package shutdown releases run resources in order, on normal completion and
// when the process is interrupted.
package shutdown

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Manager closes registered resources in reverse order of registration.
// Shutdown runs at most once; later calls return the first result.
type Manager struct {
	closers   []namedCloser
	closersMu sync.Mutex

	shutdownOnce sync.Once
	shutdownErr  error
	shutdownCh   chan struct{}
}

type namedCloser struct {
	name   string
	closer io.Closer
}

// NewManager creates a manager with no registered closers.
func NewManager() *Manager {
	return &Manager{shutdownCh: make(chan struct{})}
}

// RegisterCloser adds a closer to be called during shutdown.
// Closers are called in reverse order of registration (LIFO).
func (m *Manager) RegisterCloser(name string, closer io.Closer) {
	m.closersMu.Lock()
	defer m.closersMu.Unlock()
	m.closers = append(m.closers, namedCloser{name: name, closer: closer})
}

// Shutdown closes every registered closer, newest first. All closers run even
// if some fail; the first failure is returned.
func (m *Manager) Shutdown(reason string) error {
	m.shutdownOnce.Do(func() {
		close(m.shutdownCh)

		m.closersMu.Lock()
		closers := m.closers
		m.closers = nil
		m.closersMu.Unlock()

		if reason != "" && len(closers) > 0 {
			log.Printf("Releasing %d resources: %s", len(closers), reason)
		}

		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].closer.Close(); err != nil {
				log.Printf("Failed to close %s: %v", closers[i].name, err)
				if m.shutdownErr == nil {
					m.shutdownErr = fmt.Errorf("close %s: %w", closers[i].name, err)
				}
			}
		}
	})
	return m.shutdownErr
}

// ListenForSignals returns a context that is cancelled on SIGINT or SIGTERM.
// Cancellation stops the readers; the resources are still released by the
// owner's Shutdown once the workers have joined. Call stop to stop listening.
func (m *Manager) ListenForSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		select {
		case sig := <-sigCh:
			log.Printf("Received signal %v, stopping readers", sig)
			cancel()
		case <-ctx.Done():
		case <-m.shutdownCh:
		}
	}()

	stop := func() {
		signal.Stop(sigCh)
		cancel()
	}
	return ctx, stop
}
