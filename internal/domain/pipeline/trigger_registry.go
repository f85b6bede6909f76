package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/andrescamacho/pipeline-go/internal/domain/shared"
)

const triggerHistoryCap = 500

// TriggerFlowRegistry dispatches named triggers and keeps a capped history
// ring of every dispatch, augmented with timing and status.
type TriggerFlowRegistry struct {
	mu       sync.RWMutex
	triggers map[string]TriggerSpec
	history  []map[string]any
	clock    shared.Clock
}

// NewTriggerFlowRegistry creates an empty registry.
func NewTriggerFlowRegistry(clock shared.Clock) *TriggerFlowRegistry {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &TriggerFlowRegistry{
		triggers: map[string]TriggerSpec{},
		clock:    clock,
	}
}

// Register adds one trigger under "pipeline.name".
func (r *TriggerFlowRegistry) Register(spec TriggerSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggers[spec.Key()] = spec
}

// List returns every registered trigger spec, sorted by key.
func (r *TriggerFlowRegistry) List() []TriggerSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]TriggerSpec, 0, len(r.triggers))
	for _, s := range r.triggers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Get returns the trigger registered under "pipeline.name".
func (r *TriggerFlowRegistry) Get(pipeline, name string) (TriggerSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.triggers[pipeline+"."+name]
	return s, ok
}

// Run dispatches to the named trigger and appends an augmented history
// entry. An unknown trigger produces a "status": "failed",
// "error": "unknown_trigger_flow" payload rather than an error return.
func (r *TriggerFlowRegistry) Run(ctx context.Context, pipelineName, name string, args map[string]any) map[string]any {
	startedAt := r.clock.Now()

	spec, ok := r.Get(pipelineName, name)
	if !ok {
		payload := map[string]any{
			"status":     "failed",
			"error":      "unknown_trigger_flow",
			"trigger_id": pipelineName + "." + name,
		}
		r.appendHistory(payload, startedAt)
		return payload
	}

	out, err := spec.Trigger.Resolve(ctx, args)
	payload := map[string]any{}
	for k, v := range out {
		payload[k] = v
	}
	if err != nil {
		payload["status"] = "failed"
		payload["error"] = err.Error()
	} else if _, has := payload["status"]; !has {
		payload["status"] = "completed"
	}
	payload["trigger_id"] = spec.Key()
	r.appendHistory(payload, startedAt)
	return payload
}

// appendHistory stamps started_at/completed_at onto payload and pushes it
// onto the capped history ring, dropping the oldest entry once the cap is
// exceeded.
func (r *TriggerFlowRegistry) appendHistory(payload map[string]any, startedAt time.Time) {
	payload["started_at"] = startedAt.Format(time.RFC3339Nano)
	payload["completed_at"] = r.clock.Now().Format(time.RFC3339Nano)
	entry := map[string]any{}
	for k, v := range payload {
		entry[k] = v
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, entry)
	if len(r.history) > triggerHistoryCap {
		r.history = r.history[len(r.history)-triggerHistoryCap:]
	}
}

// ListHistory returns the most recent n history entries (all of them if
// n <= 0), newest last.
func (r *TriggerFlowRegistry) ListHistory(n int) []map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if n <= 0 || n >= len(r.history) {
		out := make([]map[string]any, len(r.history))
		copy(out, r.history)
		return out
	}
	out := make([]map[string]any, n)
	copy(out, r.history[len(r.history)-n:])
	return out
}
