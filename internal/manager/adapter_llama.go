//go:build llama

package manager

import (
	"context"
	"errors"
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"

	"scored/pkg/types"
)

// llamaBuilt indicates this binary was compiled with real llama support.
var llamaBuilt = true

// gpuLayers offloads every layer when a session is pinned to the GPU.
const gpuLayers = 999

// llamaBackend holds global config used to load a model per device.
type llamaBackend struct {
	opts LlamaOptions
}

func NewLlamaBackend(opts LlamaOptions) Backend {
	return &llamaBackend{opts: opts}
}

func (b *llamaBackend) Name() string { return BackendLlama }

// llamaSession owns the loaded model; the gguf file carries the tokenizer.
type llamaSession struct {
	model   *llama.LLama
	threads int
}

func (b *llamaBackend) Open(a types.ModelArtifacts, device Device) (Session, error) {
	if strings.TrimSpace(a.Weights) == "" {
		return nil, errors.New("model path is empty")
	}
	mo := []llama.ModelOption{
		llama.SetContext(b.opts.ContextSize),
	}
	if device == DeviceGPU {
		mo = append(mo, llama.SetGPULayers(gpuLayers))
	}
	m, err := llama.New(a.Weights, mo...)
	if err != nil {
		return nil, err
	}
	return &llamaSession{model: m, threads: b.opts.Threads}, nil
}

func (s *llamaSession) Generate(ctx context.Context, input string, p GenerateParams) (Generation, error) {
	if s.model == nil {
		return Generation{}, errors.New("llama model not initialized")
	}
	_, prompt, err := s.model.TokenizeString(input, llama.SetThreads(max(1, s.threads)))
	if err != nil {
		return Generation{}, err
	}
	n := 0
	s.model.SetTokenCallback(func(tok string) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		n++
		return true
	})
	defer s.model.SetTokenCallback(nil)
	text, err := s.model.Predict(input, predictOptions(p, s.threads)...)
	if err != nil {
		if ctx.Err() != nil {
			return Generation{}, ctx.Err()
		}
		return Generation{}, err
	}
	if ctx.Err() != nil {
		return Generation{}, ctx.Err()
	}
	finish := FinishStop
	if n >= p.MaxNewTokens {
		finish = FinishLength
	}
	// The full sequence is returned, matching a decode of prompt + continuation.
	return Generation{Text: input + text, PromptTokens: len(prompt), NewTokens: n, FinishReason: finish}, nil
}

func (s *llamaSession) Close() error {
	if s.model != nil {
		s.model.Free()
		s.model = nil
	}
	return nil
}

// predictOptions converts sampling params into go-llama.cpp options.
func predictOptions(p GenerateParams, threads int) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, p.MaxNewTokens)),
		llama.SetThreads(max(1, threads)),
		llama.SetTemperature(p.Temperature),
		llama.SetTopK(p.TopK),
		llama.SetTopP(p.TopP),
	}
	if p.Seed != 0 {
		po = append(po, llama.SetSeed(int(p.Seed)))
	}
	return po
}
