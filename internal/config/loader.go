package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr     string `json:"addr" yaml:"addr" toml:"addr"`
	LogLevel string `json:"log_level" yaml:"log_level" toml:"log_level"`

	// Model location: <model_root>/<model_path>/<subfolder>.
	ModelRoot string `json:"model_root" yaml:"model_root" toml:"model_root"`
	ModelPath string `json:"model_path" yaml:"model_path" toml:"model_path"`
	Subfolder string `json:"subfolder" yaml:"subfolder" toml:"subfolder"`
	// Backend: auto, onnx, llama or llama-server.
	Backend         string `json:"backend" yaml:"backend" toml:"backend"`
	FailOnLoadError bool   `json:"fail_on_load_error" yaml:"fail_on_load_error" toml:"fail_on_load_error"`

	// HTTP
	MaxBodyBytes int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORSEnabled  bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins  []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	Swagger      bool     `json:"swagger" yaml:"swagger" toml:"swagger"`

	// Runtimes
	ONNXLibrary    string   `json:"onnx_library" yaml:"onnx_library" toml:"onnx_library"`
	Threads        int      `json:"threads" yaml:"threads" toml:"threads"`
	ContextSize    int      `json:"context_size" yaml:"context_size" toml:"context_size"`
	LlamaServerBin string   `json:"llama_server_bin" yaml:"llama_server_bin" toml:"llama_server_bin"`
	LlamaHost      string   `json:"llama_host" yaml:"llama_host" toml:"llama_host"`
	LlamaExtraArgs []string `json:"llama_extra_args" yaml:"llama_extra_args" toml:"llama_extra_args"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse json: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse toml: %w", err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Merge overlays the non-zero fields of o onto c and returns the result.
// Boolean switches can only be turned on by an overlay.
func (c Config) Merge(o Config) Config {
	str := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	str(&c.Addr, o.Addr)
	str(&c.LogLevel, o.LogLevel)
	str(&c.ModelRoot, o.ModelRoot)
	str(&c.ModelPath, o.ModelPath)
	str(&c.Subfolder, o.Subfolder)
	str(&c.Backend, o.Backend)
	str(&c.ONNXLibrary, o.ONNXLibrary)
	str(&c.LlamaServerBin, o.LlamaServerBin)
	str(&c.LlamaHost, o.LlamaHost)
	if o.MaxBodyBytes > 0 {
		c.MaxBodyBytes = o.MaxBodyBytes
	}
	if o.Threads > 0 {
		c.Threads = o.Threads
	}
	if o.ContextSize > 0 {
		c.ContextSize = o.ContextSize
	}
	if len(o.CORSOrigins) > 0 {
		c.CORSOrigins = append([]string(nil), o.CORSOrigins...)
	}
	if len(o.LlamaExtraArgs) > 0 {
		c.LlamaExtraArgs = append([]string(nil), o.LlamaExtraArgs...)
	}
	c.FailOnLoadError = c.FailOnLoadError || o.FailOnLoadError
	c.CORSEnabled = c.CORSEnabled || o.CORSEnabled
	c.Swagger = c.Swagger || o.Swagger
	return c
}
