package manager

// Event represents a manager lifecycle event.
// Minimal and stable: name + device and optional fields via key/values.
type Event struct {
	Name   string
	Device string
	Fields map[string]any
}

// Event names published by the manager and its backends.
const (
	EventLoadStart      = "load_start"
	EventLoadDone       = "load_done"
	EventLoadError      = "load_error"
	EventSessionOpen    = "session_open"
	EventDeviceFallback = "device_fallback"
	EventGPUIdle        = "gpu_idle"
	EventRunError       = "run_error"
	EventSpawnStart     = "spawn_start"
	EventSpawnReady     = "spawn_ready"
	EventSpawnExit      = "spawn_exit"
	EventSpawnStop      = "spawn_stop"
)

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
