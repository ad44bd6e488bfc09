package manager

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

func TestServerArgs(t *testing.T) {
	o := LlamaServerOptions{ContextSize: 2048, Threads: 8, ExtraArgs: []string{"--flash-attn"}}
	got := strings.Join(serverArgs("/m.gguf", "127.0.0.1", 9000, DeviceGPU, o), " ")
	want := "-m /m.gguf --host 127.0.0.1 --port 9000 -ngl 999 -c 2048 -t 8 --flash-attn"
	if got != want {
		t.Fatalf("args=%q want %q", got, want)
	}
	got = strings.Join(serverArgs("/m.gguf", "127.0.0.1", 9000, DeviceCPU, LlamaServerOptions{}), " ")
	if got != "-m /m.gguf --host 127.0.0.1 --port 9000 -ngl 0" {
		t.Fatalf("cpu args=%q", got)
	}
}

func TestPickFreePort(t *testing.T) {
	p, err := pickFreePort("127.0.0.1")
	if err != nil || p <= 0 {
		t.Fatalf("pickFreePort: %d %v", p, err)
	}
}

// newFakeLlamaServer serves the tokenize/completion/detokenize API with one
// token per byte.
func newFakeLlamaServer(t *testing.T, completion func(req completionRequest) completionResponse) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/tokenize", func(w http.ResponseWriter, r *http.Request) {
		var req tokenizeRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		toks := make([]int, 0, len(req.Content))
		for _, b := range []byte(req.Content) {
			toks = append(toks, int(b))
		}
		_ = json.NewEncoder(w).Encode(tokensResponse{Tokens: toks})
	})
	mux.HandleFunc("/completion", func(w http.ResponseWriter, r *http.Request) {
		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(completion(req))
	})
	mux.HandleFunc("/detokenize", func(w http.ResponseWriter, r *http.Request) {
		var req detokenizeRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b := make([]byte, 0, len(req.Tokens))
		for _, tok := range req.Tokens {
			b = append(b, byte(tok))
		}
		_ = json.NewEncoder(w).Encode(detokenizeResponse{Content: string(b)})
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func TestLlamaServerSession_GenerateFullSequence(t *testing.T) {
	var mu sync.Mutex
	var seen completionRequest
	ts := newFakeLlamaServer(t, func(req completionRequest) completionResponse {
		mu.Lock()
		seen = req
		mu.Unlock()
		return completionResponse{Content: "!?", Tokens: []int{'!', '?'}, TokensPredicted: 2, StoppedLimit: true}
	})
	s := &llamaServerSession{baseURL: ts.URL, client: &http.Client{Timeout: 0}, pub: noopPublisher{}, exited: make(chan struct{})}
	if !s.healthy(time.Second) {
		t.Fatalf("expected healthy")
	}
	g, err := s.Generate(testCtx(t), "hi", GenerateParams{MaxNewTokens: 2, Temperature: 1, TopK: 50, TopP: 1})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if g.Text != "hi!?" || g.PromptTokens != 2 || g.NewTokens != 2 || g.FinishReason != FinishLength {
		t.Fatalf("unexpected generation: %+v", g)
	}
	mu.Lock()
	defer mu.Unlock()
	if seen.NPredict != 2 || seen.Seed != -1 || seen.Stream || len(seen.Prompt) != 2 {
		t.Fatalf("unexpected completion request: %+v", seen)
	}
}

func TestLlamaServerSession_ContentFallback(t *testing.T) {
	ts := newFakeLlamaServer(t, func(req completionRequest) completionResponse {
		return completionResponse{Content: " there", TokensPredicted: 1, StoppedEOS: true}
	})
	s := &llamaServerSession{baseURL: ts.URL, client: &http.Client{}, pub: noopPublisher{}}
	g, err := s.Generate(testCtx(t), "hi", GenerateParams{MaxNewTokens: 4, Seed: 9})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if g.Text != "hi there" || g.FinishReason != FinishStop {
		t.Fatalf("unexpected generation: %+v", g)
	}
}

func TestLlamaServerSession_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model exploded", http.StatusInternalServerError)
	}))
	defer ts.Close()
	s := &llamaServerSession{baseURL: ts.URL, client: &http.Client{}, pub: noopPublisher{}}
	_, err := s.Generate(testCtx(t), "hi", GenerateParams{MaxNewTokens: 1})
	if err == nil || !strings.Contains(err.Error(), "model exploded") {
		t.Fatalf("expected http error, got %v", err)
	}
}

func TestLlamaServerSession_CloseWithoutProcess(t *testing.T) {
	s := &llamaServerSession{pub: noopPublisher{}}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestLlamaServerBackend_MissingBinary(t *testing.T) {
	b := NewLlamaServerBackend(LlamaServerOptions{Bin: "/does/not/exist/llama-server"})
	if b.Name() != BackendLlamaServer {
		t.Fatalf("name=%s", b.Name())
	}
	_, err := b.Open(testArtifacts("/m.gguf"), DeviceCPU)
	if !IsDependencyUnavailable(err) {
		t.Fatalf("expected dependency unavailable, got %v", err)
	}
	if _, err := b.Open(testArtifacts(""), DeviceCPU); err == nil {
		t.Fatalf("expected empty path error")
	}
}
