package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/raysh454/appreviewer/internal/logging"
	"github.com/raysh454/appreviewer/internal/server"
)

const shutdownTimeout = 20 * time.Second

func NewServeCmd(opts *Options) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the upload and analysis API.

Examples:
  # Listen on the configured address (default :8000)
  appreviewer serve

  # Listen elsewhere and use an LLM for analysis
  ANTHROPIC_API_KEY=... appreviewer serve --addr :9000 --mode llm`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
	return cmd
}

func runServe(ctx context.Context, opts *Options, addr string) error {
	cfg, err := opts.LoadConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.ListenAddr = addr
	}

	logger, err := newLogger(cfg, "appreviewer")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	srv, err := server.NewServer(server.Config{AppConfig: cfg, Logger: logger})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpSrv := srv.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", logging.Field{Key: "addr", Value: httpSrv.Addr})
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
