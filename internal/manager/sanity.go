package manager

import (
	"scored/internal/common/fsutil"
	"scored/internal/registry"
)

// SanityReport describes what Init would find, without loading anything.
type SanityReport struct {
	ModelDir     string `json:"model_dir,omitempty"`
	Format       string `json:"format,omitempty"`
	Backend      string `json:"backend,omitempty"`
	GPUAvailable bool   `json:"gpu_available"`
	ONNXBuilt    bool   `json:"onnx_built"`
	LlamaBuilt   bool   `json:"llama_built"`
	LlamaFound   bool   `json:"llama_found"`
	LlamaPath    string `json:"llama_path,omitempty"`
	Error        string `json:"error,omitempty"`
}

// OK reports whether the checks found nothing that would make Init fail.
func (r SanityReport) OK() bool { return r.Error == "" }

// SanityCheck validates the model directory and the runtime the backend
// needs. It does not mutate state and is safe to call at any time.
func (m *Manager) SanityCheck() SanityReport {
	r := SanityReport{ONNXBuilt: onnxBuilt, LlamaBuilt: llamaBuilt, GPUAvailable: m.cfg.GPUProbe()}
	dir, err := registry.ResolveModelDir(m.cfg.ModelRoot, m.cfg.ModelPath, m.cfg.Subfolder)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.ModelDir = dir
	a, err := registry.Inspect(dir)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Format = a.Format
	b, err := m.resolveBackend(a)
	if err != nil {
		r.Error = err.Error()
		return r
	}
	r.Backend = b.Name()
	switch r.Backend {
	case BackendONNX:
		if !onnxBuilt {
			r.Error = "onnx support not built (missing 'onnx' build tag)"
		}
	case BackendLlama:
		if !llamaBuilt {
			r.Error = "llama support not built (missing 'llama' build tag)"
		}
	case BackendLlamaServer:
		bin := m.cfg.LlamaServerBin
		if bin == "" {
			bin = discoverLlamaServer()
		}
		r.LlamaPath = bin
		if bin != "" && fsutil.IsFile(bin) {
			r.LlamaFound = true
		} else {
			r.Error = "llama-server not found"
		}
	}
	return r
}
