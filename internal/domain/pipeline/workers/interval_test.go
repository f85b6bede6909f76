package workers_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/andrescamacho/pipeline-go/internal/domain/pipeline/workers"
	"github.com/andrescamacho/pipeline-go/internal/domain/shared"
)

func TestIntervalWorker_RunsUntilStopped(t *testing.T) {
	clock := shared.NewMockClock(time.Now())
	var calls int32

	w := workers.NewIntervalWorker(func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, 5, "test-worker", clock)

	var running int32 = 1
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		w.RunLoop(ctx, func() bool { return atomic.LoadInt32(&running) == 1 })
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&calls) < 3 && time.Now().Before(deadline) {
		clock.Advance(5 * time.Second)
		time.Sleep(time.Millisecond)
	}

	atomic.StoreInt32(&running, 0)
	cancel()
	<-done

	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(1))
}

func TestIntervalWorker_RecoversCallbackPanic(t *testing.T) {
	clock := shared.NewMockClock(time.Now())
	var calls int32

	w := workers.NewIntervalWorker(func(ctx context.Context) error {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			panic("boom")
		}
		return nil
	}, 1, "panicky", clock)

	var running int32 = 1
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		w.RunLoop(ctx, func() bool { return atomic.LoadInt32(&running) == 1 })
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt32(&calls) < 2 && time.Now().Before(deadline) {
		clock.Advance(time.Second)
		time.Sleep(time.Millisecond)
	}

	atomic.StoreInt32(&running, 0)
	cancel()
	<-done

	assert.GreaterOrEqual(t, atomic.LoadInt32(&calls), int32(2), "loop must survive a panicking callback")
}

func TestIntervalWorker_MinIntervalFloorsZeroInterval(t *testing.T) {
	clock := shared.NewMockClock(time.Now())
	w := workers.NewIntervalWorker(func(ctx context.Context) error { return nil }, 0, "floor", clock)
	assert.Equal(t, 1, w.MinIntervalSeconds)
}

func TestIntervalWorker_SetIntervalUpdatesLive(t *testing.T) {
	clock := shared.NewMockClock(time.Now())
	w := workers.NewIntervalWorker(func(ctx context.Context) error { return nil }, 60, "live", clock)
	assert.Equal(t, 60, w.Interval())

	w.SetInterval(3600)
	assert.Equal(t, 3600, w.Interval())
}
