package manager

import (
	"time"
)

// ensureSlot returns the session pinned to d, opening it on first use.
// Sessions are never moved between devices.
func (m *Manager) ensureSlot(d Device) (*slot, error) {
	m.mu.RLock()
	sl := m.slots[d]
	m.mu.RUnlock()
	if sl != nil {
		return sl, nil
	}
	m.openMu.Lock()
	defer m.openMu.Unlock()
	// Re-check: another request may have opened it while we waited.
	m.mu.RLock()
	sl = m.slots[d]
	ready := m.state == StateReady
	m.mu.RUnlock()
	if sl != nil {
		return sl, nil
	}
	if !ready {
		return nil, ErrUninitialized
	}
	return m.openSlot(d)
}

// openSlot loads the tokenizer and model onto d. The caller holds openMu.
func (m *Manager) openSlot(d Device) (*slot, error) {
	m.mu.RLock()
	b, a := m.backend, m.artifacts
	m.mu.RUnlock()
	if b == nil {
		return nil, ErrUninitialized
	}
	start := time.Now()
	sess, err := b.Open(a, d)
	dur := time.Since(start)
	loadDuration.WithLabelValues(d.String()).Observe(dur.Seconds())
	if err != nil {
		m.log.Error().Err(err).Str("device", d.String()).Str("backend", b.Name()).Msg("open session failed")
		return nil, err
	}
	sl := newSlot(d, sess)
	m.mu.Lock()
	m.slots[d] = sl
	m.mu.Unlock()
	m.loads.Add(1)
	m.pub.Publish(Event{Name: EventSessionOpen, Device: d.String(), Fields: map[string]any{"backend": b.Name(), "duration_ms": dur.Milliseconds()}})
	m.log.Info().Str("device", d.String()).Str("backend", b.Name()).Dur("dur", dur).Msg("session open")
	return sl, nil
}
