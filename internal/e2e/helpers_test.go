package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"scored/internal/httpapi"
	"scored/internal/manager"
	"scored/pkg/types"
)

// createModelRoot lays out <root>/<model path>/<subfolder> with onnx-shaped
// placeholder artifacts and returns root.
func createModelRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, manager.DefaultModelPath, manager.DefaultSubfolder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, n := range []string{"model.onnx", "tokenizer.json"} {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("{}"), 0o644); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
	return root
}

// upperBackend "generates" by appending the upper-cased prompt, so outputs
// are distinguishable per input and per device.
type upperBackend struct {
	mu      sync.Mutex
	devices []manager.Device
	failOn  string
}

func (b *upperBackend) Name() string { return "upper" }

func (b *upperBackend) Open(a types.ModelArtifacts, d manager.Device) (manager.Session, error) {
	b.mu.Lock()
	b.devices = append(b.devices, d)
	b.mu.Unlock()
	return upperSession{b: b, d: d}, nil
}

type upperSession struct {
	b *upperBackend
	d manager.Device
}

func (s upperSession) Generate(ctx context.Context, input string, p manager.GenerateParams) (manager.Generation, error) {
	if s.b.failOn != "" && input == s.b.failOn {
		return manager.Generation{}, io.ErrUnexpectedEOF
	}
	return manager.Generation{Text: input + " " + strings.ToUpper(input) + "@" + s.d.String(), NewTokens: 1, FinishReason: manager.FinishStop}, nil
}

func (s upperSession) Close() error { return nil }

func newServer(t *testing.T, root string, b manager.Backend, gpu bool) (*httptest.Server, *manager.Manager) {
	t.Helper()
	mgr := manager.New(manager.Config{
		ModelRoot: root,
		Backend:   b,
		GPUProbe:  func() bool { return gpu },
		Logger:    zerolog.Nop(),
	})
	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { _ = mgr.Close() })
	return srv, mgr
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
