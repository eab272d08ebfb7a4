package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jo-hoe/imageset/internal/backend"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *options) *cobra.Command {
	var port int

	ccmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored images over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			if c.Flags().Changed("port") {
				opts.config.Port = port
			}
			return serve(c.Context(), opts)
		},
	}

	ccmd.Flags().IntVarP(&port, "port", "p", 0, "override port from the config")
	return ccmd
}

// serve runs the HTTP API until ctx is cancelled, then shuts down gracefully.
func serve(ctx context.Context, opts *options) error {
	coreService, err := opts.newCoreService(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := coreService.Close(); err != nil {
			slog.Error("core service close error", "error", err)
		}
	}()

	store, err := coreService.AcquireStore(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	server := backend.NewServer()
	backend.NewAPIService(store, coreService, coreService.Pipeline()).SetRoutes(server)

	port := coreService.Config().Port
	portString := fmt.Sprintf(":%d", port)
	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "port", port, "commands", coreService.Pipeline().Len())
		if err := server.Start(portString); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}
