package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"embedd/internal/config"
	"embedd/internal/httpapi"
)

const shutdownTimeout = 5 * time.Second

var servePreload bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP embedding API",
	Long: `Serve POST /embed, GET /health, /healthz, /readyz and /metrics.

The model loads on the first request unless --preload is set.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagCfg.Addr, "addr", "", "HTTP listen address, e.g. :8080 (env EMBEDD_ADDR)")
	serveCmd.Flags().BoolVar(&servePreload, "preload", false, "Load the model at startup instead of on the first request")
	serveCmd.Flags().Int64Var(&flagCfg.MaxBodyBytes, "max-body-bytes", 0, "Maximum request body size in bytes (env EMBEDD_MAX_BODY_BYTES)")
	serveCmd.Flags().Int64Var(&flagCfg.EmbedTimeoutSeconds, "embed-timeout", 0, "Seconds one embed request may take, 0 for no limit (env EMBEDD_EMBED_TIMEOUT_SECONDS)")
	serveCmd.Flags().BoolVar(&corsEnabled, "cors", true, "Enable CORS headers (env EMBEDD_CORS_ENABLED)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := globalConfig
	a, err := buildApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	configureHTTP(ctx, cfg)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(a.svc),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	if servePreload {
		go func() {
			if err := a.svc.Warm(ctx); err != nil {
				logger.Warn().Err(err).Msg("preload failed; the next request will retry")
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("model", cfg.ModelName).Str("backend", a.backend).Msg("embedd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	logger.Info().Msg("shutting down")
	sctx, scancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer scancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

// configureHTTP applies cfg to the package-level httpapi settings.
func configureHTTP(ctx context.Context, cfg config.Config) {
	httpapi.SetLogger(logger)
	httpapi.SetRequestLogLevel(accessLogLevel(cfg.LogLevel))
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetEmbedTimeout(time.Duration(cfg.EmbedTimeoutSeconds) * time.Second)
	httpapi.SetCORSOptions(cfg.CORSEnabled != nil && *cfg.CORSEnabled, cfg.CORSOrigins, nil, nil)
	httpapi.SetBaseContext(ctx)
}
