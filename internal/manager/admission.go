package manager

import (
	"context"
	"time"
)

// acquire waits for the single in-flight slot of sl. There is no queue limit
// and no timeout; only ctx cancellation stops the wait.
// Returns a release func to be deferred.
func (m *Manager) acquire(ctx context.Context, sl *slot) (func(), error) {
	m.mu.Lock()
	sl.waiting++
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		sl.waiting--
		m.mu.Unlock()
	}()

	select {
	case sl.genCh <- struct{}{}:
		m.mu.Lock()
		sl.lastUsed = time.Now()
		m.mu.Unlock()
		return func() { <-sl.genCh }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	}
}
