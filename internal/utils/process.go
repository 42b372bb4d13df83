package utils

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// WaitForInterruptOrKill blocks until the process receives an interrupt
// (Ctrl+C) or termination signal (SIGTERM), or until ctx is done. It
// returns the signal received, or nil when ctx ended the wait.
func WaitForInterruptOrKill(ctx context.Context) os.Signal {
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
