package manager

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"scored/internal/registry"
	"scored/pkg/types"
)

// Manager holds the process-wide tokenizer/model state. It is uninitialized
// until Init succeeds; every request fails closed before that.
type Manager struct {
	cfg Config
	log zerolog.Logger
	pub EventPublisher

	mu        sync.RWMutex
	state     State
	err       string
	backend   Backend
	artifacts types.ModelArtifacts
	gpuAvail  bool
	slots     map[Device]*slot

	// openMu serializes Init and session opens so a device is loaded once.
	openMu sync.Mutex

	startTime time.Time
	runs      atomic.Uint64
	loads     atomic.Uint64
}

// New constructs an uninitialized Manager. Call Init before serving.
func New(cfg Config) *Manager {
	cfg = cfg.withDefaults()
	return &Manager{
		cfg:       cfg,
		log:       cfg.Logger,
		pub:       cfg.Publisher,
		state:     StateUnloaded,
		slots:     make(map[Device]*slot),
		startTime: time.Now(),
	}
}

// Init resolves the model directory, picks a backend and loads the tokenizer
// and model on the CPU. It is a no-op once the manager is ready. On failure
// the manager stays uninitialized and a load error is returned; ErrorJSON
// renders it as the error envelope.
func (m *Manager) Init() error {
	m.openMu.Lock()
	defer m.openMu.Unlock()
	if m.Ready() {
		return nil
	}
	m.setState(StateLoading, "")
	m.pub.Publish(Event{Name: EventLoadStart, Device: DeviceCPU.String(), Fields: map[string]any{"root": m.cfg.ModelRoot}})
	m.log.Info().Str("root", m.cfg.ModelRoot).Str("subfolder", m.cfg.Subfolder).Msg("Loading model from path.")

	if err := m.load(); err != nil {
		m.setState(StateError, err.Error())
		m.pub.Publish(Event{Name: EventLoadError, Device: DeviceCPU.String(), Fields: map[string]any{"error": err.Error()}})
		m.log.Error().Err(err).Msg("model load failed")
		return loadError{err: err}
	}
	m.setState(StateReady, "")
	m.pub.Publish(Event{Name: EventLoadDone, Device: DeviceCPU.String(), Fields: map[string]any{"dir": m.artifacts.Dir}})
	m.log.Info().Str("dir", m.artifacts.Dir).Str("backend", m.backend.Name()).Msg("Loading successful.")
	return nil
}

// load performs Init's work; the caller holds openMu.
func (m *Manager) load() error {
	dir, err := registry.ResolveModelDir(m.cfg.ModelRoot, m.cfg.ModelPath, m.cfg.Subfolder)
	if err != nil {
		if m.cfg.ModelRoot == "" {
			return fmt.Errorf("%s is not set", ModelDirEnv)
		}
		return err
	}
	a, err := registry.Inspect(dir)
	if err != nil {
		return err
	}
	b, err := m.resolveBackend(a)
	if err != nil {
		return err
	}
	gpuOK := m.cfg.GPUProbe()
	m.mu.Lock()
	m.artifacts = a
	m.backend = b
	m.gpuAvail = gpuOK
	m.mu.Unlock()
	if _, err := m.openSlot(DeviceCPU); err != nil {
		m.mu.Lock()
		m.backend = nil
		m.mu.Unlock()
		return err
	}
	return nil
}

// Ready reports whether the tokenizer/model pair is loaded.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateReady && m.backend != nil && m.slots[DeviceCPU] != nil
}

// Close releases every device session and returns the manager to the
// uninitialized state.
func (m *Manager) Close() error {
	m.openMu.Lock()
	defer m.openMu.Unlock()
	m.mu.Lock()
	slots := m.slots
	m.slots = make(map[Device]*slot)
	m.state = StateUnloaded
	m.backend = nil
	m.mu.Unlock()
	var errs []error
	for _, sl := range slots {
		// wait for the in-flight generation to finish
		sl.genCh <- struct{}{}
		if err := sl.sess.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s session: %w", sl.device, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) setState(s State, errMsg string) {
	m.mu.Lock()
	m.state = s
	if errMsg != "" || s == StateReady {
		m.err = errMsg
	}
	m.mu.Unlock()
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.err = err.Error()
	m.mu.Unlock()
}

// ErrorJSON renders err as the {"error": "..."} envelope.
func ErrorJSON(err error) []byte {
	b, mErr := json.Marshal(types.ErrorResponse{Error: err.Error()})
	if mErr != nil {
		return []byte(`{"error": "internal error"}`)
	}
	return b
}
