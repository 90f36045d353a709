// Command fluxclim reduces daily gridded precipitation fluxes to a monthly
// climatology per cell and an area-weighted regional average.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		// Errors from a wired command are already in the configured log;
		// config and flag errors happen before it exists.
		var logged loggedError
		if !errors.As(err, &logged) {
			slog.Error("fluxclim failed", "error", err)
		}
		stop()
		os.Exit(1)
	}
}
