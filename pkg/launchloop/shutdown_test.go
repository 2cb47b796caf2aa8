package launchloop

import (
	"context"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestShutdownHandler_CancelsContextAndRunsCleanupsOnSignal(t *testing.T) {
	h := NewShutdownHandler(zap.NewNop())

	var mu sync.Mutex
	var order []int
	h.RegisterCleanup(func() { mu.Lock(); order = append(order, 1); mu.Unlock() })
	h.RegisterCleanup(func() { mu.Lock(); order = append(order, 2); mu.Unlock() })

	ctx := h.Wait(context.Background())

	h.sigCh <- syscall.SIGTERM

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("context was not cancelled after signal")
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{2, 1}, order)
}

func TestShutdownHandler_SlowCleanupDoesNotBlockPastTimeout(t *testing.T) {
	h := NewShutdownHandler(zap.NewNop())
	h.RegisterCleanup(func() { time.Sleep(time.Hour) })

	start := time.Now()
	h.runCleanups()
	assert.Less(t, time.Since(start), 2*ShutdownTimeout)
}
