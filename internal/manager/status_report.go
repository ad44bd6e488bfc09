package manager

import (
	"sort"
	"time"

	"scored/pkg/types"
)

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	State   State
	Backend string
	Dir     string
	Err     string
}

// Snapshot returns a read-only view of the manager state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Snapshot{State: m.state, Dir: m.artifacts.Dir, Err: m.err}
	if m.backend != nil {
		s.Backend = m.backend.Name()
	}
	return s
}

// Status builds a detailed status response for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	resp := types.StatusResponse{
		State:          string(m.state),
		ModelDir:       m.artifacts.Dir,
		GPUAvailable:   m.gpuAvail,
		LastError:      m.err,
		UptimeSeconds:  int64(now.Sub(m.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
		RunsTotal:      m.runs.Load(),
		LoadsTotal:     m.loads.Load(),
	}
	if m.backend != nil {
		resp.Backend = m.backend.Name()
	}
	resp.Sessions = make([]types.SessionStatus, 0, len(m.slots))
	for _, sl := range m.slots {
		resp.Sessions = append(resp.Sessions, types.SessionStatus{
			Device:      sl.device.String(),
			State:       string(StateReady),
			LastUsed:    sl.lastUsed.Unix(),
			Inflight:    len(sl.genCh),
			Waiting:     sl.waiting,
			Generations: sl.gens,
		})
	}
	sort.Slice(resp.Sessions, func(i, j int) bool { return resp.Sessions[i].Device < resp.Sessions[j].Device })
	return resp
}
