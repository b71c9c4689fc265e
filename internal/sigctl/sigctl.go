// Package sigctl wires SIGINT/SIGTERM into a cancellable context, the
// same shutdown shape every cmd/* binary uses, grounded on
// examples/orion-pipeline/main.go and
// modules/stream-capture/cmd/test-capture/main.go.
package sigctl

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// Context returns a context canceled on SIGINT or SIGTERM, and a stop
// function that cancels the context and releases the signal handler
// early (e.g. after a clean
// exit, so a second Ctrl-C before process exit doesn't trigger another
// log line through an abandoned handler). Callers defer stop().
func Context(log *slog.Logger) (ctx context.Context, stop func()) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			log.Info("shutdown signal received", "signal", sig.String())
			cancel()
		case <-done:
		}
	}()

	stop = func() {
		close(done)
		signal.Stop(sigCh)
		cancel()
	}
	return ctx, stop
}
