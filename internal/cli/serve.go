package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/tally/internal/api"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr string

	// Ready, if set, receives the bound address once the listener is up.
	Ready chan<- string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the counter over HTTP",
		Long: `Start the engine loop and serve it over HTTP until interrupted.

Endpoints:
  GET  /health
  GET  /state
  GET  /counter
  POST /counter/increment?amount=N
  POST /counter/decrement?amount=N
  POST /counter/reset
  GET  /journal
  GET  /sessions

Example:
  tally serve --addr 127.0.0.1:9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}

	e, j, err := openEngine(cfg, nil, "")
	if err != nil {
		return err
	}
	defer closeJournal(j)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to listen", err)
	}

	srv := &http.Server{
		Handler:           api.NewServer(e, j),
		ReadHeaderTimeout: 5 * time.Second,
	}

	engineDone := make(chan error, 1)
	go func() { engineDone <- e.Run(ctx) }()

	serveDone := make(chan error, 1)
	go func() { serveDone <- srv.Serve(ln) }()

	addr := ln.Addr().String()
	slog.Info("serving", "addr", addr, "session", e.Session())
	fmt.Fprintf(cmd.OutOrStdout(), "Listening on http://%s\n", addr)
	if opts.Ready != nil {
		opts.Ready <- addr
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-serveDone:
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}

	if err := <-engineDone; err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "engine error", err)
	}
	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return WrapExitError(ExitFailure, "http server error", serveErr)
	}

	slog.Info("server stopped gracefully", "counter", e.Counter())
	return nil
}
