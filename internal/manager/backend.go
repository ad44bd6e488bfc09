package manager

import (
	"fmt"

	"scored/internal/registry"
	"scored/pkg/types"
)

// ONNXOptions configures the onnxruntime backend.
type ONNXOptions struct {
	// Library is the onnxruntime shared library path; empty uses the loader default.
	Library string
	Threads int
	// MaxContext caps prompt plus generated tokens; 0 means no cap.
	MaxContext int
}

// LlamaOptions configures the in-process llama.cpp backend.
type LlamaOptions struct {
	ContextSize int
	Threads     int
}

// resolveBackend picks the runtime for the inspected artifacts.
func (m *Manager) resolveBackend(a types.ModelArtifacts) (Backend, error) {
	if m.cfg.Backend != nil {
		return m.cfg.Backend, nil
	}
	name := m.cfg.BackendName
	if name == BackendAuto {
		switch a.Format {
		case registry.FormatONNX:
			name = BackendONNX
		case registry.FormatGGUF:
			name = BackendLlamaServer
			if llamaBuilt {
				name = BackendLlama
			}
		}
	}
	switch name {
	case BackendONNX:
		if a.Format != registry.FormatONNX {
			return nil, fmt.Errorf("backend %s needs %s and %s in %s", name, registry.ONNXModelFile, registry.TokenizerFile, a.Dir)
		}
		return NewONNXBackend(ONNXOptions{Library: m.cfg.ONNXLibrary, Threads: m.cfg.Threads, MaxContext: m.cfg.ContextSize}), nil
	case BackendLlama, BackendLlamaServer:
		if a.Format != registry.FormatGGUF {
			return nil, fmt.Errorf("backend %s needs a *.gguf file in %s", name, a.Dir)
		}
		if name == BackendLlama {
			return NewLlamaBackend(LlamaOptions{ContextSize: m.cfg.ContextSize, Threads: m.cfg.Threads}), nil
		}
		return NewLlamaServerBackend(LlamaServerOptions{
			Bin:         m.cfg.LlamaServerBin,
			Host:        m.cfg.LlamaHost,
			ContextSize: m.cfg.ContextSize,
			Threads:     m.cfg.Threads,
			ExtraArgs:   m.cfg.LlamaExtraArgs,
			ReadyWait:   m.cfg.LlamaReadyWait,
			Publisher:   m.pub,
			Logger:      m.log,
		}), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want %s, %s, %s or %s)", name, BackendAuto, BackendONNX, BackendLlama, BackendLlamaServer)
	}
}
