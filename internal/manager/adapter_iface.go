package manager

import (
	"context"

	"scored/pkg/types"
)

// Backend abstracts the model runtime used by the Manager.
// Concrete implementations (onnx, llama.cpp, llama-server) satisfy this interface.
type Backend interface {
	// Name identifies the backend in logs and status.
	Name() string
	// Open loads the tokenizer and model from the artifacts onto device. The
	// returned session is pinned to that device for its whole life.
	Open(a types.ModelArtifacts, device Device) (Session, error)
}

// Session is a loaded tokenizer/model pair on one device.
type Session interface {
	// Generate tokenizes input, samples up to params.MaxNewTokens new tokens
	// and decodes the full sequence with special tokens skipped.
	// Implementations should stop early when ctx is canceled.
	Generate(ctx context.Context, input string, params GenerateParams) (Generation, error)
	// Close releases any resources associated with the session.
	Close() error
}

// GenerateParams captures sampling-based decoding options.
type GenerateParams struct {
	MaxNewTokens int
	Temperature  float32
	TopK         int
	TopP         float32
	// Seed for the sampler; 0 lets the backend choose.
	Seed int64
}

// Generation is the decoded output for one input.
type Generation struct {
	Text         string
	PromptTokens int
	NewTokens    int
	FinishReason string
}

// Finish reasons reported by backends.
const (
	FinishStop   = "stop"
	FinishLength = "length"
)
