package main

import (
	"fmt"
	"io"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"scored/internal/manager"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Score one request envelope and print the response envelope",
		Example: `  echo '{"inputs":{"input_str":["Hello"],"params":{"max_new_tokens":16}}}' | scored run
  scored run --file request.json --progress`,
		Args: cobra.NoArgs,
		RunE: runOnce,
	}
	cmd.Flags().StringP("file", "f", "", "Read the request envelope from a file instead of stdin")
	cmd.Flags().Bool("progress", false, "Show a progress bar over the inputs on stderr")
	return cmd
}

func runOnce(cmd *cobra.Command, args []string) error {
	_, _, mgr, err := setup(cmd)
	if err != nil {
		return err
	}
	defer mgr.Close()

	raw, err := readEnvelope(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	// Init failures are reported like any other error: as an envelope.
	if err := mgr.Init(); err != nil {
		fmt.Fprintln(out, string(manager.ErrorJSON(err)))
		return err
	}

	var opts []manager.RunOption
	if on, _ := cmd.Flags().GetBool("progress"); on {
		var bar *progressbar.ProgressBar
		opts = append(opts, manager.WithProgress(func(done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetWriter(cmd.ErrOrStderr()),
					progressbar.OptionSetDescription("generating"),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
				)
			}
			_ = bar.Set(done)
		}))
	}
	fmt.Fprintln(out, string(mgr.RunJSON(cmd.Context(), raw, opts...)))
	return nil
}

func readEnvelope(cmd *cobra.Command) ([]byte, error) {
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		return os.ReadFile(path)
	}
	return io.ReadAll(cmd.InOrStdin())
}
