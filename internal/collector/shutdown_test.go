package collector

import (
	"context"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

func TestHandleSignals_FirstSignalCancels(t *testing.T) {
	sigCh := make(chan os.Signal, 1)
	var shutdownCalled atomic.Bool

	ctx := handleSignals(context.Background(), nil, sigCh,
		func() { shutdownCalled.Store(true) },
		func() { t.Error("force exit should not run on first signal") })

	sigCh <- syscall.SIGINT

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled after signal")
	}
	if !shutdownCalled.Load() {
		t.Error("shutdown function should have been called")
	}
}

func TestHandleSignals_SecondSignalForcesExit(t *testing.T) {
	sigCh := make(chan os.Signal, 1)
	exited := make(chan struct{})

	ctx := handleSignals(context.Background(), nil, sigCh, nil, func() { close(exited) })

	sigCh <- syscall.SIGTERM
	<-ctx.Done()
	sigCh <- syscall.SIGTERM

	select {
	case <-exited:
	case <-time.After(2 * time.Second):
		t.Fatal("second signal did not force exit")
	}
}

func TestHandleSignals_ParentCancelled(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	var shutdownCalled atomic.Bool

	ctx := handleSignals(parent, nil, sigCh, func() { shutdownCalled.Store(true) }, func() {})
	cancel()

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled with parent")
	}
	if shutdownCalled.Load() {
		t.Error("shutdown function should not run without a signal")
	}
}
