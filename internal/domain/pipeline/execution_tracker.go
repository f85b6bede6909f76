package pipeline

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andrescamacho/pipeline-go/internal/domain/shared"
)

const (
	executionOrderCap    = 500
	executionResultBytes = 4000
)

// TaskRunner is the function an ExecutionTracker launches in its own
// goroutine. It receives a cancellable context and the execution id it was
// assigned, so it can stamp intermediate stage markers via SetStage.
type TaskRunner func(ctx context.Context, executionID string) (map[string]any, error)

type trackedExecution struct {
	state  *shared.ExecutionStateMachine
	mode   string
	reason string
	stage  *string
	result map[string]any
	err    error
	cancel context.CancelFunc
	mu     sync.Mutex
}

// ExecutionTracker launches task runners as goroutines and tracks their
// queued -> running -> terminal lifecycle, exposing a capped history of
// execution ids in launch order.
type ExecutionTracker struct {
	mu    sync.RWMutex
	tasks map[string]*trackedExecution
	order []string
	clock shared.Clock
	wg    sync.WaitGroup
}

// NewExecutionTracker creates an empty tracker.
func NewExecutionTracker(clock shared.Clock) *ExecutionTracker {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &ExecutionTracker{
		tasks: map[string]*trackedExecution{},
		clock: clock,
	}
}

// Launch assigns a new uuid-v4 execution id, starts runner in its own
// goroutine, and returns the id immediately. The goroutine is tracked until
// it reaches a terminal state or is cancelled via CancelAll.
func (t *ExecutionTracker) Launch(ctx context.Context, mode, reason string, runner TaskRunner) string {
	id := uuid.NewString()

	runCtx, cancel := context.WithCancel(ctx)
	tracked := &trackedExecution{
		state:  shared.NewExecutionStateMachine(t.clock),
		mode:   mode,
		reason: reason,
		cancel: cancel,
	}

	t.mu.Lock()
	t.tasks[id] = tracked
	t.order = append(t.order, id)
	if len(t.order) > executionOrderCap {
		evicted := t.order[0]
		t.order = t.order[1:]
		delete(t.tasks, evicted)
	}
	t.mu.Unlock()

	t.wg.Add(1)
	go t.run(runCtx, id, tracked, runner)

	return id
}

func (t *ExecutionTracker) run(ctx context.Context, id string, tracked *trackedExecution, runner TaskRunner) {
	defer t.wg.Done()

	tracked.mu.Lock()
	_ = tracked.state.Start()
	tracked.mu.Unlock()

	out, err := runProtectedTask(ctx, id, runner)

	tracked.mu.Lock()
	defer tracked.mu.Unlock()

	// CancelAll may have already moved this execution to cancelled while
	// the runner was in flight; don't overwrite a terminal state.
	if tracked.state.IsFinished() {
		return
	}
	// A runner whose context was cancelled ends as cancelled, whatever it
	// returned; its output is discarded.
	if ctx.Err() != nil {
		_ = tracked.state.Cancel()
		return
	}

	if err != nil {
		_ = tracked.state.Fail(err)
		tracked.err = err
		return
	}
	_ = tracked.state.Complete()
	tracked.result = summarizePayload(out, executionResultBytes)
}

func runProtectedTask(ctx context.Context, id string, runner TaskRunner) (out map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = shared.NewDomainError("execution runner panicked")
		}
	}()
	return runner(ctx, id)
}

// SetStage records a free-form progress marker for an in-flight execution,
// used by long multi-stage pipelines to report where they are.
func (t *ExecutionTracker) SetStage(id, stage string) {
	t.mu.RLock()
	tracked, ok := t.tasks[id]
	t.mu.RUnlock()
	if !ok {
		return
	}
	tracked.mu.Lock()
	tracked.stage = &stage
	tracked.mu.Unlock()
}

// GetStatus returns the current record for one execution.
func (t *ExecutionTracker) GetStatus(id string) (ExecutionRecord, bool) {
	t.mu.RLock()
	tracked, ok := t.tasks[id]
	t.mu.RUnlock()
	if !ok {
		return ExecutionRecord{}, false
	}
	return toRecord(id, tracked), true
}

// List returns up to limit most-recently-launched executions (all of them
// if limit <= 0), newest first.
func (t *ExecutionTracker) List(limit int) []ExecutionRecord {
	t.mu.RLock()
	order := append([]string(nil), t.order...)
	t.mu.RUnlock()

	out := make([]ExecutionRecord, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		t.mu.RLock()
		tracked, ok := t.tasks[order[i]]
		t.mu.RUnlock()
		if !ok {
			continue
		}
		out = append(out, toRecord(order[i], tracked))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// CancelAll cancels every in-flight execution's context and waits for each
// runner goroutine to observe cancellation and return before marking the
// remaining non-terminal executions cancelled. This closes the race the
// original cooperative-scheduling implementation tolerated: a preemptively
// scheduled runner goroutine can no longer race CancelAll to decide an
// execution's terminal state.
func (t *ExecutionTracker) CancelAll() {
	t.mu.RLock()
	tracked := make([]*trackedExecution, 0, len(t.tasks))
	for _, tr := range t.tasks {
		tracked = append(tracked, tr)
	}
	t.mu.RUnlock()

	for _, tr := range tracked {
		tr.cancel()
	}

	t.wg.Wait()

	for _, tr := range tracked {
		tr.mu.Lock()
		if !tr.state.IsFinished() {
			_ = tr.state.Cancel()
		}
		tr.mu.Unlock()
	}
}

func toRecord(id string, tracked *trackedExecution) ExecutionRecord {
	tracked.mu.Lock()
	defer tracked.mu.Unlock()

	r := ExecutionRecord{
		ExecutionID: id,
		Mode:        tracked.mode,
		Reason:      tracked.reason,
		Stage:       tracked.stage,
		Status:      string(tracked.state.Status()),
		CreatedAt:   tracked.state.CreatedAt().Format(time.RFC3339Nano),
		UpdatedAt:   tracked.state.UpdatedAt().Format(time.RFC3339Nano),
		Result:      tracked.result,
	}
	if tracked.err != nil {
		msg := tracked.err.Error()
		r.Error = &msg
	}
	return r
}

// summarizePayload truncates a result document's JSON encoding to maxBytes,
// appending a truncation marker, matching the spec's bounded-history
// behavior for large executor outputs.
func summarizePayload(payload map[string]any, maxBytes int) map[string]any {
	if payload == nil {
		return nil
	}
	encoded, err := json.Marshal(payload)
	if err != nil || len(encoded) <= maxBytes {
		return payload
	}
	truncated := string(encoded[:maxBytes]) + "…(truncated)"
	return map[string]any{"_truncated": truncated}
}
