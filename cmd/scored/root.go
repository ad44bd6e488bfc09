package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"scored/internal/config"
	"scored/internal/manager"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scored",
		Short:         "Serve a causal language model behind a JSON scoring endpoint",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.String("config", "", "Config file (.yaml, .yml, .toml or .json)")
	pf.String("log-level", "", "Log level: debug|info|warn|error (defaults SCORED_LOG_LEVEL or info)")
	pf.String("log-format", "auto", "Log format: auto|json|console")
	pf.String("model-root", "", "Artifact root (defaults $"+manager.ModelDirEnv+")")
	pf.String("model-path", "", "Model path under the root (default "+manager.DefaultModelPath+")")
	pf.String("subfolder", "", "Weights subfolder under the model path")
	pf.String("backend", "", "Runtime: auto|onnx|llama|llama-server")
	pf.String("onnx-library", "", "onnxruntime shared library path")
	pf.Int("threads", 0, "Inference threads")
	pf.Int("context-size", 0, "Context window in tokens")
	pf.String("llama-server-bin", "", "llama-server binary (discovered when empty)")
	pf.String("llama-args", "", "Extra llama-server arguments, space separated")

	root.AddCommand(newServeCmd(), newRunCmd(), newCheckCmd(), newVersionCmd())
	return root
}

// setup resolves config and builds the logger and manager for a command.
func setup(cmd *cobra.Command) (config.Config, zerolog.Logger, *manager.Manager, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return cfg, zerolog.Nop(), nil, err
	}
	format, _ := cmd.Flags().GetString("log-format")
	log := newLogger(cfg.LogLevel, format, cmd.ErrOrStderr())
	mc := managerConfig(cfg)
	mc.Logger = log
	return cfg, log, manager.New(mc), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), "scored "+version)
			return nil
		},
	}
}
