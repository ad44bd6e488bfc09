package manager

import "time"

// State represents lifecycle state of the manager and its sessions.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StateError    State = "error"
)

// Device is the compute backend a session is pinned to.
type Device int

const (
	DeviceCPU Device = iota
	DeviceGPU
)

// String returns the device name used in logs ("cpu" or "cuda").
func (d Device) String() string {
	if d == DeviceGPU {
		return "cuda"
	}
	return "cpu"
}

// slot is an open session pinned to one device plus its admission
// primitives. Slots exist only for sessions that opened successfully.
type slot struct {
	device   Device
	sess     Session
	lastUsed time.Time
	gens     uint64
	// genCh has capacity 1: one generation in flight per session.
	genCh   chan struct{}
	waiting int
}

func newSlot(d Device, s Session) *slot {
	return &slot{
		device:   d,
		sess:     s,
		lastUsed: time.Now(),
		genCh:    make(chan struct{}, 1),
	}
}
