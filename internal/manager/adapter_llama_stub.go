//go:build !llama

package manager

// No-CGO stub for the llama adapter, compiled when the 'llama' build tag is
// NOT set. The real adapter lives in adapter_llama.go.

import (
	"scored/pkg/types"
)

var llamaBuilt = false

type llamaBackend struct{ opts LlamaOptions }

func NewLlamaBackend(opts LlamaOptions) Backend { return &llamaBackend{opts: opts} }

func (b *llamaBackend) Name() string { return BackendLlama }

// Open fails fast: llama runtime not available in this build.
func (b *llamaBackend) Open(a types.ModelArtifacts, device Device) (Session, error) {
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
