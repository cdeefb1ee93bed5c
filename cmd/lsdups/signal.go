package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// setupSignalContext returns a context cancelled when SIGINT or SIGTERM is
// received. The returned stop function releases the signal handler.
func setupSignalContext(parent context.Context, stderr io.Writer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	// Create a channel to receive OS signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			fmt.Fprintf(stderr, "\nReceived signal: %v\n", sig)
			fmt.Fprintf(stderr, "Cancelling scan...\n")
			cancel()
		case <-ctx.Done():
		}
		// Stop receiving signals so a second Ctrl+C terminates immediately
		signal.Stop(sigChan)
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
