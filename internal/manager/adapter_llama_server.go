package manager

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"scored/internal/common/fsutil"
	"scored/pkg/types"
)

// LlamaServerOptions configures the llama-server subprocess backend.
type LlamaServerOptions struct {
	Bin         string
	Host        string
	ContextSize int
	Threads     int
	ExtraArgs   []string
	ReadyWait   time.Duration
	Publisher   EventPublisher
	Logger      zerolog.Logger
}

// llamaServerBackend spawns one llama.cpp server per device session.
type llamaServerBackend struct {
	opts       LlamaServerOptions
	httpClient *http.Client
}

// NewLlamaServerBackend constructs a subprocess-backed backend.
func NewLlamaServerBackend(opts LlamaServerOptions) Backend {
	if strings.TrimSpace(opts.Host) == "" {
		opts.Host = defaultLlamaHost
	}
	if opts.ReadyWait <= 0 {
		opts.ReadyWait = defaultReadyWait
	}
	if opts.Publisher == nil {
		opts.Publisher = noopPublisher{}
	}
	// Timeout=0: every call carries a context deadline or the request context.
	return &llamaServerBackend{opts: opts, httpClient: &http.Client{Timeout: 0}}
}

func (b *llamaServerBackend) Name() string { return BackendLlamaServer }

// llamaServerSession talks to one spawned server pinned to a device.
type llamaServerSession struct {
	baseURL string
	client  *http.Client
	cmd     *exec.Cmd
	exited  chan struct{}
	pub     EventPublisher
	device  Device

	closeOnce sync.Once
}

// serverArgs builds the llama-server command line for device.
func serverArgs(modelPath, host string, port int, device Device, o LlamaServerOptions) []string {
	args := []string{
		"-m", modelPath,
		"--host", host,
		"--port", strconv.Itoa(port),
	}
	if device == DeviceGPU {
		args = append(args, "-ngl", "999")
	} else {
		args = append(args, "-ngl", "0")
	}
	if o.ContextSize > 0 {
		args = append(args, "-c", strconv.Itoa(o.ContextSize))
	}
	if o.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(o.Threads))
	}
	return append(args, o.ExtraArgs...)
}

// Open starts a server for the model on device and waits until /health is OK.
func (b *llamaServerBackend) Open(a types.ModelArtifacts, device Device) (Session, error) {
	if strings.TrimSpace(a.Weights) == "" {
		return nil, errors.New("model path is empty")
	}
	bin := b.opts.Bin
	if bin == "" {
		bin = discoverLlamaServer()
	}
	if bin == "" || !fsutil.IsFile(bin) {
		return nil, ErrDependencyUnavailable("llama-server not found")
	}
	port, err := pickFreePort(b.opts.Host)
	if err != nil {
		return nil, err
	}
	baseURL := fmt.Sprintf("http://%s", net.JoinHostPort(b.opts.Host, strconv.Itoa(port)))

	cmd := exec.Command(bin, serverArgs(a.Weights, b.opts.Host, port, device, b.opts)...)
	// stderr is kept in memory; its tail is included on failure
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start llama-server: %w", err)
	}
	log := b.opts.Logger.With().Str("adapter", BackendLlamaServer).Str("device", device.String()).Int("pid", cmd.Process.Pid).Logger()
	log.Info().Str("model", a.Weights).Str("url", baseURL).Msg("spawn start")
	b.opts.Publisher.Publish(Event{Name: EventSpawnStart, Device: device.String(), Fields: map[string]any{"pid": cmd.Process.Pid, "port": port}})

	s := &llamaServerSession{baseURL: baseURL, client: b.httpClient, cmd: cmd, exited: make(chan struct{}), pub: b.opts.Publisher, device: device}
	waitErrCh := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		close(s.exited)
		waitErrCh <- err
	}()

	deadline := time.Now().Add(b.opts.ReadyWait)
	for {
		select {
		case werr := <-waitErrCh:
			tail := stderr.String()
			if len(tail) > 4096 {
				tail = tail[len(tail)-4096:]
			}
			log.Error().AnErr("wait", werr).Msg("exited before ready")
			b.opts.Publisher.Publish(Event{Name: EventSpawnExit, Device: device.String(), Fields: map[string]any{"pid": cmd.Process.Pid, "before_ready": true}})
			return nil, fmt.Errorf("llama-server exited before ready: %v; stderr tail: %s", werr, tail)
		default:
		}
		if s.healthy(time.Second) {
			log.Info().Msg("spawn ready")
			b.opts.Publisher.Publish(Event{Name: EventSpawnReady, Device: device.String(), Fields: map[string]any{"pid": cmd.Process.Pid, "url": baseURL}})
			return s, nil
		}
		if time.Now().After(deadline) {
			_ = s.Close()
			return nil, fmt.Errorf("llama-server not ready in time: %s", baseURL)
		}
		time.Sleep(100 * time.Millisecond)
	}
}

func (s *llamaServerSession) healthy(timeout time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

type tokenizeRequest struct {
	Content    string `json:"content"`
	AddSpecial bool   `json:"add_special"`
}

type tokensResponse struct {
	Tokens []int `json:"tokens"`
}

type completionRequest struct {
	Prompt      []int   `json:"prompt"`
	NPredict    int     `json:"n_predict"`
	Temperature float32 `json:"temperature"`
	TopK        int     `json:"top_k"`
	TopP        float32 `json:"top_p"`
	Seed        int64   `json:"seed"`
	Stream      bool    `json:"stream"`
	CachePrompt bool    `json:"cache_prompt"`
	// ReturnTokens asks the server to include the generated token ids.
	ReturnTokens bool `json:"return_tokens"`
}

type completionResponse struct {
	Content         string `json:"content"`
	Tokens          []int  `json:"tokens"`
	TokensPredicted int    `json:"tokens_predicted"`
	StoppedEOS      bool   `json:"stopped_eos"`
	StoppedLimit    bool   `json:"stopped_limit"`
}

type detokenizeRequest struct {
	Tokens []int `json:"tokens"`
}

type detokenizeResponse struct {
	Content string `json:"content"`
}

// Generate tokenizes, completes and detokenizes through the server API.
func (s *llamaServerSession) Generate(ctx context.Context, input string, p GenerateParams) (Generation, error) {
	var tok tokensResponse
	if err := s.post(ctx, "/tokenize", tokenizeRequest{Content: input, AddSpecial: true}, &tok); err != nil {
		return Generation{}, err
	}
	seed := p.Seed
	if seed == 0 {
		seed = -1
	}
	var comp completionResponse
	err := s.post(ctx, "/completion", completionRequest{
		Prompt:       tok.Tokens,
		NPredict:     p.MaxNewTokens,
		Temperature:  p.Temperature,
		TopK:         p.TopK,
		TopP:         p.TopP,
		Seed:         seed,
		ReturnTokens: true,
	}, &comp)
	if err != nil {
		return Generation{}, err
	}
	g := Generation{PromptTokens: len(tok.Tokens), NewTokens: comp.TokensPredicted, FinishReason: FinishStop}
	if comp.StoppedLimit {
		g.FinishReason = FinishLength
	}
	if len(comp.Tokens) == 0 {
		g.Text = input + comp.Content
		return g, nil
	}
	full := make([]int, 0, len(tok.Tokens)+len(comp.Tokens))
	full = append(append(full, tok.Tokens...), comp.Tokens...)
	var detok detokenizeResponse
	if err := s.post(ctx, "/detokenize", detokenizeRequest{Tokens: full}, &detok); err != nil {
		return Generation{}, err
	}
	g.Text = strings.TrimPrefix(detok.Content, " ")
	return g, nil
}

func (s *llamaServerSession) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("llama server http error: %s: %s", resp.Status, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// Close terminates the spawned server: SIGTERM first, then kill after 2s.
func (s *llamaServerSession) Close() error {
	s.closeOnce.Do(func() {
		if s.cmd == nil || s.cmd.Process == nil {
			return
		}
		_ = s.cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-s.exited:
		case <-time.After(2 * time.Second):
			_ = s.cmd.Process.Kill()
			<-s.exited
		}
		s.pub.Publish(Event{Name: EventSpawnStop, Device: s.device.String(), Fields: map[string]any{"pid": s.cmd.Process.Pid}})
	})
	return nil
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected addr: %s", l.Addr())
	}
	return addr.Port, nil
}

// discoverLlamaServer looks for a llama-server binary in common install
// locations, then on PATH.
func discoverLlamaServer() string {
	home, _ := os.UserHomeDir()
	candidates := []string{
		filepath.Join(home, "apps", "llama.cpp", "build", "bin", "llama-server"),
		"/usr/local/bin/llama-server",
		"/opt/homebrew/bin/llama-server",
	}
	for _, p := range candidates {
		if fsutil.IsFile(p) {
			return p
		}
	}
	if lp, err := exec.LookPath("llama-server"); err == nil {
		return lp
	}
	return ""
}
