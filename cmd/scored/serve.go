package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"scored/internal/httpapi"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Load the model and serve POST /score",
		Example: "  scored serve --addr :8080 --model-root /var/azureml-app/model",
		RunE:    runServe,
	}
	f := cmd.Flags()
	f.String("addr", "", "HTTP listen address (defaults SCORED_ADDR or :8080)")
	f.Bool("fail-on-load-error", false, "Exit when the model fails to load instead of serving error envelopes")
	f.Int64("max-body-bytes", 0, "Maximum request body size in bytes")
	f.Bool("cors-enabled", false, "Enable CORS")
	f.String("cors-origins", "", "Comma-separated allowed CORS origins")
	f.Bool("swagger", false, "Serve the swagger UI under /swagger/")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, mgr, err := setup(cmd)
	if err != nil {
		return err
	}
	defer mgr.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpapi.SetLogger(log)
	httpapi.SetBaseContext(ctx)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins, nil, nil)
	httpapi.SetSwagger(cfg.Swagger)
	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(mgr), ReadHeaderTimeout: 10 * time.Second}

	// Load in the background so /healthz answers and /readyz reports loading.
	loadErr := make(chan error, 1)
	go func() { loadErr <- mgr.Init() }()

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("backend", cfg.Backend).Msg("scored listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var runErr error
	for done := false; !done; {
		select {
		case err := <-loadErr:
			loadErr = nil
			if err != nil && cfg.FailOnLoadError {
				runErr = err
				done = true
			}
		case err := <-serveErr:
			runErr = err
			done = true
		case <-ctx.Done():
			done = true
		}
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
	return runErr
}
