package workers_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/andrescamacho/pipeline-go/internal/domain/pipeline/workers"
)

func TestHybridWorker_StartRunsAllRunnersAndStopAwaitsThem(t *testing.T) {
	h := workers.NewHybridWorker()

	var aDone, bDone int32
	h.AddRunner("a", func(ctx context.Context) {
		<-ctx.Done()
		time.Sleep(5 * time.Millisecond)
		atomic.StoreInt32(&aDone, 1)
	})
	h.AddRunner("b", func(ctx context.Context) {
		<-ctx.Done()
		time.Sleep(5 * time.Millisecond)
		atomic.StoreInt32(&bDone, 1)
	})

	h.Start(context.Background())
	h.Stop()

	assert.Equal(t, int32(1), atomic.LoadInt32(&aDone), "Stop must wait for runner a to return")
	assert.Equal(t, int32(1), atomic.LoadInt32(&bDone), "Stop must wait for runner b to return")
}

func TestHybridWorker_StartIsIdempotentForRunningRunners(t *testing.T) {
	h := workers.NewHybridWorker()

	var starts int32
	h.AddRunner("a", func(ctx context.Context) {
		atomic.AddInt32(&starts, 1)
		<-ctx.Done()
	})

	h.Start(context.Background())
	h.Start(context.Background())
	h.Stop()

	assert.Equal(t, int32(1), atomic.LoadInt32(&starts), "starting twice must not launch a second goroutine for the same runner")
}
