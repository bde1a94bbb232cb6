package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/roach88/til/internal/httpapi"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the facts table over REST",
		Long: `Serve the configured backend at /rest/v1/facts so other clients can
use it with --remote.

Examples:
  til serve --db ./til.db
  til serve --config til.yaml --listen :9090`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	e, err := setup(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	addr := opts.Listen
	if addr == "" {
		addr = e.cfg.Listen
	}

	gin.SetMode(gin.ReleaseMode)
	srv := httpapi.NewServer(e.backend.Remote, httpapi.WithLogger(e.logger))

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			e.logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	e.logger.Info("server starting", "addr", addr, "driver", e.backend.Driver)
	fmt.Fprintf(cmd.OutOrStdout(), "Serving facts on %s. Press Ctrl-C to stop.\n", addr)

	if err := srv.ListenAndServe(ctx, addr); err != nil && !errors.Is(err, context.Canceled) {
		return e.formatter.Fail(ExitFailure, ErrCodeGeneric, "server error", err)
	}

	e.logger.Info("server stopped gracefully")
	return nil
}
