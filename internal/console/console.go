// Package console detects whether the process has an operator at a terminal and wires
// shutdown signals.
package console

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ShutdownSignals end the process gracefully.
var ShutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// IsInteractive reports whether stdin is a terminal, i.e. someone can answer
// calibration prompts.
func IsInteractive() bool {
	return isCharDevice(os.Stdin)
}

func isCharDevice(f *os.File) bool {
	if f == nil {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// NotifyShutdown returns a context cancelled on the first shutdown signal. A second
// signal exits immediately, for when a calibration wait or device call is stuck.
func NotifyShutdown(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, ShutdownSignals...)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
			return
		}
		select {
		case <-sigCh:
			os.Exit(130)
		case <-parent.Done():
		}
	}()
	return ctx, cancel
}
