package collector

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

// SetupSignalHandler returns a context derived from parent that is cancelled on
// SIGTERM or SIGINT. onShutdown runs before cancellation. A second signal exits
// the process immediately.
func SetupSignalHandler(parent context.Context, logger *zap.Logger, onShutdown func()) context.Context {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	return handleSignals(parent, logger, sigCh, onShutdown, func() { os.Exit(1) })
}

func handleSignals(parent context.Context, logger *zap.Logger, sigCh <-chan os.Signal, onShutdown, forceExit func()) context.Context {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)

	go func() {
		select {
		case <-parent.Done():
			cancel()
			return
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		}

		if onShutdown != nil {
			onShutdown()
		}
		cancel()

		sig := <-sigCh
		logger.Warn("received second signal, forcing exit", zap.String("signal", sig.String()))
		forceExit()
	}()

	return ctx
}
