package launchloop

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// ShutdownTimeout bounds how long cleanup functions are given to finish
// once a signal arrives; a cleanup that blocks past this is abandoned so
// the process can still exit.
const ShutdownTimeout = 5 * time.Second

// ShutdownHandler watches for SIGINT/SIGTERM and, once a signal arrives,
// cancels the context returned by Wait and then runs registered cleanup
// functions in LIFO order.
type ShutdownHandler struct {
	logger   *zap.Logger
	mu       sync.Mutex
	cleanups []func()
	sigCh    chan os.Signal
}

func NewShutdownHandler(logger *zap.Logger) *ShutdownHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &ShutdownHandler{logger: logger, sigCh: make(chan os.Signal, 1)}
	signal.Notify(h.sigCh, syscall.SIGINT, syscall.SIGTERM)
	return h
}

// RegisterCleanup adds fn to the LIFO cleanup list run on shutdown.
func (h *ShutdownHandler) RegisterCleanup(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cleanups = append(h.cleanups, fn)
}

// Wait returns immediately with a context derived from ctx. A background
// goroutine waits for a signal, cancels that context the moment it is
// received, and then runs the cleanups, so callers polling in a loop can
// select on the context to stop starting new work.
func (h *ShutdownHandler) Wait(ctx context.Context) context.Context {
	shutdownCtx, cancel := context.WithCancel(ctx)
	go func() {
		sig := <-h.sigCh
		h.logger.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
		h.runCleanups()
	}()
	return shutdownCtx
}

func (h *ShutdownHandler) runCleanups() {
	h.mu.Lock()
	fns := append([]func(){}, h.cleanups...)
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(ShutdownTimeout):
		h.logger.Warn("shutdown cleanup did not finish within timeout", zap.Duration("timeout", ShutdownTimeout))
	}
}
