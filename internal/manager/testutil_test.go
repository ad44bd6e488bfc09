package manager

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"scored/pkg/types"
)

// newModelDir lays out <root>/<DefaultModelPath>/<DefaultSubfolder> with the
// files an onnx model needs and returns root.
func newModelDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, DefaultModelPath, DefaultSubfolder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, name := range []string{"model.onnx", "tokenizer.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return root
}

// fakeBackend is an in-memory backend used for tests.
type fakeBackend struct {
	mu       sync.Mutex
	openErr  map[Device]error
	genErr   error
	panicMsg string
	// delay makes Generate block for a while, honoring ctx.
	delay time.Duration

	opened   []Device
	params   []GenerateParams
	inflight int
	maxSeen  int
	closed   int
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Open(a types.ModelArtifacts, device Device) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.openErr[device]; err != nil {
		return nil, err
	}
	f.opened = append(f.opened, device)
	return &fakeSession{f: f, device: device}, nil
}

func (f *fakeBackend) openedDevices() []Device {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Device(nil), f.opened...)
}

func (f *fakeBackend) lastParams() GenerateParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.params) == 0 {
		return GenerateParams{}
	}
	return f.params[len(f.params)-1]
}

type fakeSession struct {
	f      *fakeBackend
	device Device
}

// Generate echoes the input with a device suffix.
func (s *fakeSession) Generate(ctx context.Context, input string, p GenerateParams) (Generation, error) {
	f := s.f
	f.mu.Lock()
	f.params = append(f.params, p)
	f.inflight++
	if f.inflight > f.maxSeen {
		f.maxSeen = f.inflight
	}
	genErr, panicMsg, delay := f.genErr, f.panicMsg, f.delay
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inflight--
		f.mu.Unlock()
	}()
	if panicMsg != "" {
		panic(panicMsg)
	}
	if genErr != nil {
		return Generation{}, genErr
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return Generation{}, ctx.Err()
		}
	}
	return Generation{Text: input + " <" + s.device.String() + ">", PromptTokens: 1, NewTokens: 2, FinishReason: FinishStop}, nil
}

func (s *fakeSession) Close() error {
	s.f.mu.Lock()
	s.f.closed++
	s.f.mu.Unlock()
	return nil
}

var errFake = errors.New("fake failure")

// newTestManager returns an initialized manager over a fake backend.
func newTestManager(t *testing.T, gpu bool) (*Manager, *fakeBackend, *MemoryPublisher) {
	t.Helper()
	fb := &fakeBackend{}
	pub := NewMemoryPublisher()
	m := New(Config{
		ModelRoot: newModelDir(t),
		Backend:   fb,
		Publisher: pub,
		GPUProbe:  func() bool { return gpu },
		Logger:    zerolog.Nop(),
	})
	if err := m.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = m.Close() })
	return m, fb, pub
}

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return c
}

func hasEvent(pub *MemoryPublisher, name string) bool {
	for _, n := range pub.Names() {
		if n == name {
			return true
		}
	}
	return false
}

func testArtifacts(weights string) types.ModelArtifacts {
	return types.ModelArtifacts{Dir: filepath.Dir(weights), Format: "gguf", Weights: weights}
}
