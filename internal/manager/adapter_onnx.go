//go:build onnx

package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/daulet/tokenizers"
	ort "github.com/yalue/onnxruntime_go"

	"scored/pkg/types"
)

// onnxBuilt indicates this binary was compiled with onnxruntime support.
var onnxBuilt = true

type onnxBackend struct {
	opts     ONNXOptions
	initOnce sync.Once
	initErr  error
}

// NewONNXBackend returns a backend loading tokenizer.json with the HF
// tokenizers bindings and model.onnx with onnxruntime.
func NewONNXBackend(opts ONNXOptions) Backend {
	return &onnxBackend{opts: opts}
}

func (b *onnxBackend) Name() string { return BackendONNX }

func (b *onnxBackend) initRuntime() error {
	b.initOnce.Do(func() {
		if b.opts.Library != "" {
			ort.SetSharedLibraryPath(b.opts.Library)
		}
		if !ort.IsInitialized() {
			b.initErr = ort.InitializeEnvironment()
		}
	})
	return b.initErr
}

// onnxSession owns a tokenizer and an onnxruntime session on one device.
type onnxSession struct {
	tok        *tokenizers.Tokenizer
	sess       *ort.DynamicAdvancedSession
	inputNames []string
	cfg        modelConfig
	vocab      int
	maxContext int
}

func (b *onnxBackend) Open(a types.ModelArtifacts, device Device) (Session, error) {
	if err := b.initRuntime(); err != nil {
		return nil, fmt.Errorf("initialize onnxruntime: %w", err)
	}
	cfg, err := readModelConfig(a.Config)
	if err != nil {
		return nil, err
	}
	inputs, err := onnxInputNames(a.Weights)
	if err != nil {
		return nil, err
	}
	tok, err := tokenizers.FromFile(a.Tokenizer)
	if err != nil {
		return nil, fmt.Errorf("load tokenizer: %w", err)
	}
	opts, err := ort.NewSessionOptions()
	if err != nil {
		tok.Close()
		return nil, fmt.Errorf("session options: %w", err)
	}
	defer opts.Destroy()
	if b.opts.Threads > 0 {
		if err := opts.SetIntraOpNumThreads(b.opts.Threads); err != nil {
			tok.Close()
			return nil, fmt.Errorf("set threads: %w", err)
		}
	}
	if device == DeviceGPU {
		if err := appendCUDA(opts); err != nil {
			tok.Close()
			return nil, err
		}
	}
	sess, err := ort.NewDynamicAdvancedSession(a.Weights, inputs, []string{"logits"}, opts)
	if err != nil {
		tok.Close()
		return nil, fmt.Errorf("load model: %w", err)
	}
	vocab := cfg.VocabSize
	if vocab <= 0 {
		vocab = int(tok.VocabSize())
	}
	maxCtx := b.opts.MaxContext
	if cfg.MaxPos > 0 && (maxCtx <= 0 || cfg.MaxPos < maxCtx) {
		maxCtx = cfg.MaxPos
	}
	return &onnxSession{tok: tok, sess: sess, inputNames: inputs, cfg: cfg, vocab: vocab, maxContext: maxCtx}, nil
}

func appendCUDA(opts *ort.SessionOptions) error {
	cuda, err := ort.NewCUDAProviderOptions()
	if err != nil {
		return fmt.Errorf("cuda provider options: %w", err)
	}
	defer cuda.Destroy()
	if err := cuda.Update(map[string]string{"device_id": "0"}); err != nil {
		return fmt.Errorf("cuda provider options: %w", err)
	}
	if err := opts.AppendExecutionProviderCUDA(cuda); err != nil {
		return fmt.Errorf("append cuda provider: %w", err)
	}
	return nil
}

// onnxInputNames validates the graph signature: input_ids is required,
// attention_mask and position_ids are fed when present, and a cached
// (past_key_values) export is rejected.
func onnxInputNames(path string) ([]string, error) {
	ins, outs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("read model signature: %w", err)
	}
	var names []string
	hasIDs := false
	for _, in := range ins {
		switch in.Name {
		case "input_ids":
			hasIDs = true
			names = append(names, in.Name)
		case "attention_mask", "position_ids":
			names = append(names, in.Name)
		default:
			return nil, fmt.Errorf("unsupported model input %q: export the model without past key values", in.Name)
		}
	}
	if !hasIDs {
		return nil, errors.New("model has no input_ids input")
	}
	for _, out := range outs {
		if out.Name == "logits" {
			return names, nil
		}
	}
	return nil, errors.New("model has no logits output")
}

func (s *onnxSession) Generate(ctx context.Context, input string, p GenerateParams) (Generation, error) {
	ids, _ := s.tok.Encode(input, true)
	prompt := make([]int64, len(ids))
	for i, id := range ids {
		prompt[i] = int64(id)
	}
	seq, finish, err := decodeLoop(ctx, prompt, s.forward, s.cfg, s.maxContext, p)
	if err != nil {
		return Generation{}, err
	}
	out := make([]uint32, len(seq))
	for i, id := range seq {
		out[i] = uint32(id)
	}
	return Generation{
		Text:         s.tok.Decode(out, true),
		PromptTokens: len(prompt),
		NewTokens:    len(seq) - len(prompt),
		FinishReason: finish,
	}, nil
}

// forward runs the full sequence and returns the last position's logits.
func (s *onnxSession) forward(seq []int64) ([]float32, error) {
	n := int64(len(seq))
	shape := ort.NewShape(1, n)
	var inputs []ort.Value
	for _, name := range s.inputNames {
		data := make([]int64, n)
		switch name {
		case "input_ids":
			copy(data, seq)
		case "attention_mask":
			for i := range data {
				data[i] = 1
			}
		case "position_ids":
			for i := range data {
				data[i] = int64(i)
			}
		}
		t, err := ort.NewTensor(shape, data)
		if err != nil {
			return nil, fmt.Errorf("input tensor %s: %w", name, err)
		}
		defer t.Destroy()
		inputs = append(inputs, t)
	}
	out, err := ort.NewEmptyTensor[float32](ort.NewShape(1, n, int64(s.vocab)))
	if err != nil {
		return nil, fmt.Errorf("output tensor: %w", err)
	}
	defer out.Destroy()
	if err := s.sess.Run(inputs, []ort.Value{out}); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	data := out.GetData()
	last := make([]float32, s.vocab)
	copy(last, data[(len(seq)-1)*s.vocab:])
	return last, nil
}

func (s *onnxSession) Close() error {
	var errs []error
	if s.sess != nil {
		errs = append(errs, s.sess.Destroy())
		s.sess = nil
	}
	if s.tok != nil {
		errs = append(errs, s.tok.Close())
		s.tok = nil
	}
	return errors.Join(errs...)
}
