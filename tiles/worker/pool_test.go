package worker_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olablt/gio-fieldmap/tiles/worker"
)

func TestPool_RunsSubmittedTasks(t *testing.T) {
	p := worker.NewPool(2, 4, time.Second)
	defer p.Shutdown()

	var done atomic.Int32
	for i := 0; i < 20; i++ {
		ok := p.Submit(worker.Task{Work: func(ctx context.Context) error {
			done.Add(1)
			return nil
		}})
		require.True(t, ok)
	}

	assert.Eventually(t, func() bool { return done.Load() == 20 }, time.Second, time.Millisecond)
}

func TestPool_BoundsConcurrency(t *testing.T) {
	p := worker.NewPool(2, 8, time.Second)
	defer p.Shutdown()

	var running, peak, finished atomic.Int32
	for i := 0; i < 8; i++ {
		p.Submit(worker.Task{Work: func(ctx context.Context) error {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			running.Add(-1)
			finished.Add(1)
			return nil
		}})
	}

	require.Eventually(t, func() bool { return finished.Load() == 8 }, 2*time.Second, time.Millisecond)
	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestPool_TimeoutCancelsTask(t *testing.T) {
	p := worker.NewPool(1, 1, 10*time.Millisecond)
	defer p.Shutdown()

	errs := make(chan error, 1)
	p.Submit(worker.Task{Work: func(ctx context.Context) error {
		<-ctx.Done()
		errs <- ctx.Err()
		return ctx.Err()
	}})

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(time.Second):
		t.Fatal("task was not cancelled")
	}
}

func TestPool_ShutdownCancelsAndRejects(t *testing.T) {
	p := worker.NewPool(1, 1, 0)

	started := make(chan struct{})
	p.Submit(worker.Task{Work: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}})
	<-started

	p.Shutdown()
	assert.False(t, p.Submit(worker.Task{Work: func(ctx context.Context) error { return nil }}))
}
