package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ListenForProcessInterruptOrKill blocks until it receives an interrupt
// (Ctrl+C) or termination signal (SIGTERM), or until ctx is done. This is
// typically used to keep a program running until the user requests
// shutdown.
func ListenForProcessInterruptOrKill(ctx context.Context) os.Signal {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		return sig
	case <-ctx.Done():
		return nil
	}
}
