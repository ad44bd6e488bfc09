//go:build !onnx

package manager

// This file provides a no-CGO stub for the onnx backend. It is compiled when
// the 'onnx' build tag is NOT set, keeping default builds CGO-free.

import (
	"scored/pkg/types"
)

var onnxBuilt = false

type onnxBackend struct{ opts ONNXOptions }

func NewONNXBackend(opts ONNXOptions) Backend { return &onnxBackend{opts: opts} }

func (b *onnxBackend) Name() string { return BackendONNX }

// Open fails fast: onnxruntime is not available in this build.
func (b *onnxBackend) Open(a types.ModelArtifacts, device Device) (Session, error) {
	return nil, ErrDependencyUnavailable("onnx support not built (missing 'onnx' build tag)")
}
