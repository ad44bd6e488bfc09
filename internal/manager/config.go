package manager

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"scored/internal/gpu"
)

// Defaults applied when corresponding Config fields are unset.
const (
	// ModelDirEnv names the environment variable holding the artifact root.
	ModelDirEnv      = "AZUREML_MODEL_DIR"
	DefaultModelPath = "INPUT_model_path"
	DefaultSubfolder = "open_llama_7b_preview_200bt_transformers_weights"

	BackendAuto        = "auto"
	BackendONNX        = "onnx"
	BackendLlama       = "llama"
	BackendLlamaServer = "llama-server"

	defaultLlamaHost   = "127.0.0.1"
	defaultReadyWait   = 120 * time.Second
	defaultThreads     = 4
	defaultContextSize = 2048
)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	// ModelRoot is the artifact root; empty falls back to $AZUREML_MODEL_DIR.
	ModelRoot string
	ModelPath string
	// Subfolder inside the model path; "." selects the model path itself.
	Subfolder string
	// BackendName picks the runtime: auto, onnx, llama or llama-server.
	BackendName string
	// Backend overrides BackendName with a concrete implementation.
	Backend Backend

	Logger    zerolog.Logger
	Publisher EventPublisher
	// GPUProbe reports GPU availability; probed once during Init.
	GPUProbe gpu.Probe

	// Runtime configuration (no envs; set by callers)
	ONNXLibrary    string
	Threads        int
	ContextSize    int
	LlamaServerBin string
	LlamaHost      string
	LlamaExtraArgs []string
	LlamaReadyWait time.Duration
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.ModelRoot) == "" {
		c.ModelRoot = os.Getenv(ModelDirEnv)
	}
	if c.ModelPath == "" {
		c.ModelPath = DefaultModelPath
	}
	if c.Subfolder == "" {
		c.Subfolder = DefaultSubfolder
	}
	if c.BackendName == "" {
		c.BackendName = BackendAuto
	}
	if c.Publisher == nil {
		c.Publisher = noopPublisher{}
	}
	if c.GPUProbe == nil {
		c.GPUProbe = gpu.Available
	}
	if c.Threads <= 0 {
		c.Threads = defaultThreads
	}
	if c.ContextSize <= 0 {
		c.ContextSize = defaultContextSize
	}
	if strings.TrimSpace(c.LlamaHost) == "" {
		c.LlamaHost = defaultLlamaHost
	}
	if c.LlamaReadyWait <= 0 {
		c.LlamaReadyWait = defaultReadyWait
	}
	return c
}
