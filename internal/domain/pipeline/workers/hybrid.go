package workers

import (
	"context"
	"sync"
)

// HybridWorker starts and stops multiple named run-loop goroutines as a
// single lifecycle unit, the Go analogue of composing several asyncio
// tasks under one cancellation scope.
type HybridWorker struct {
	mu      sync.Mutex
	runners map[string]func(ctx context.Context)
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewHybridWorker returns an empty composer.
func NewHybridWorker() *HybridWorker {
	return &HybridWorker{
		runners: map[string]func(ctx context.Context){},
		cancels: map[string]context.CancelFunc{},
	}
}

// AddRunner registers a named loop function to start under Start.
func (h *HybridWorker) AddRunner(name string, runner func(ctx context.Context)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runners[name] = runner
}

// Start launches every registered runner not already running, each in its
// own goroutine with its own cancellable context derived from ctx.
func (h *HybridWorker) Start(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for name, runner := range h.runners {
		if _, running := h.cancels[name]; running {
			continue
		}
		runCtx, cancel := context.WithCancel(ctx)
		h.cancels[name] = cancel
		h.wg.Add(1)
		go func(name string, runner func(ctx context.Context), runCtx context.Context) {
			defer h.wg.Done()
			runner(runCtx)
		}(name, runner, runCtx)
	}
}

// Stop cancels every running loop and waits for all of them to return.
func (h *HybridWorker) Stop() {
	h.mu.Lock()
	for _, cancel := range h.cancels {
		cancel()
	}
	h.cancels = map[string]context.CancelFunc{}
	h.mu.Unlock()

	h.wg.Wait()
}
