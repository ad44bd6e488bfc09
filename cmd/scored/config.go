package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"scored/internal/config"
	"scored/internal/manager"
)

// Environment defaults, lowest precedence after built-in defaults.
const (
	envAddr     = "SCORED_ADDR"
	envLogLevel = "SCORED_LOG_LEVEL"
)

func defaultConfig() config.Config {
	return config.Config{
		Addr:         ":8080",
		LogLevel:     "info",
		ModelPath:    manager.DefaultModelPath,
		Subfolder:    manager.DefaultSubfolder,
		Backend:      manager.BackendAuto,
		MaxBodyBytes: 1 << 20,
	}
}

func envConfig() config.Config {
	return config.Config{
		Addr:      os.Getenv(envAddr),
		LogLevel:  os.Getenv(envLogLevel),
		ModelRoot: os.Getenv(manager.ModelDirEnv),
	}
}

// resolveConfig layers flag > config file > env > default.
func resolveConfig(cmd *cobra.Command) (config.Config, error) {
	cfg := defaultConfig().Merge(envConfig())
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		fileCfg, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = cfg.Merge(fileCfg)
	}
	return cfg.Merge(flagConfig(cmd)), nil
}

// flagConfig collects only the flags set on the command line.
func flagConfig(cmd *cobra.Command) config.Config {
	var c config.Config
	fs := cmd.Flags()
	str := func(name string, dst *string) {
		if f := fs.Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}
	str("addr", &c.Addr)
	str("log-level", &c.LogLevel)
	str("model-root", &c.ModelRoot)
	str("model-path", &c.ModelPath)
	str("subfolder", &c.Subfolder)
	str("backend", &c.Backend)
	str("onnx-library", &c.ONNXLibrary)
	str("llama-server-bin", &c.LlamaServerBin)
	if f := fs.Lookup("threads"); f != nil && f.Changed {
		c.Threads, _ = fs.GetInt("threads")
	}
	if f := fs.Lookup("context-size"); f != nil && f.Changed {
		c.ContextSize, _ = fs.GetInt("context-size")
	}
	if f := fs.Lookup("max-body-bytes"); f != nil && f.Changed {
		c.MaxBodyBytes, _ = fs.GetInt64("max-body-bytes")
	}
	if f := fs.Lookup("cors-origins"); f != nil && f.Changed {
		c.CORSOrigins = splitCSV(f.Value.String())
	}
	if f := fs.Lookup("llama-args"); f != nil && f.Changed {
		c.LlamaExtraArgs = strings.Fields(f.Value.String())
	}
	c.FailOnLoadError, _ = fs.GetBool("fail-on-load-error")
	c.CORSEnabled, _ = fs.GetBool("cors-enabled")
	c.Swagger, _ = fs.GetBool("swagger")
	return c
}

// managerConfig maps the resolved config onto manager.Config.
func managerConfig(c config.Config) manager.Config {
	return manager.Config{
		ModelRoot:      c.ModelRoot,
		ModelPath:      c.ModelPath,
		Subfolder:      c.Subfolder,
		BackendName:    c.Backend,
		ONNXLibrary:    c.ONNXLibrary,
		Threads:        c.Threads,
		ContextSize:    c.ContextSize,
		LlamaServerBin: c.LlamaServerBin,
		LlamaHost:      c.LlamaHost,
		LlamaExtraArgs: c.LlamaExtraArgs,
	}
}

// splitCSV splits a comma-separated list, trimming blanks and dropping empties.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
