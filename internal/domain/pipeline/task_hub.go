package pipeline

import (
	"context"
	"sort"
	"sync"

	"github.com/andrescamacho/pipeline-go/internal/domain/shared"
)

// TaskFlowHub is the dependency-ordered registry and executor for a
// manager's task flows. Unlike the interpreted original this hub rejects
// dependency cycles and unknown dependencies at registration time: Register
// returns an error immediately rather than letting Run silently drop
// unreachable tasks.
type TaskFlowHub struct {
	mu    sync.RWMutex
	flows map[string]TaskFlowSpec
}

// NewTaskFlowHub creates an empty hub.
func NewTaskFlowHub() *TaskFlowHub {
	return &TaskFlowHub{flows: map[string]TaskFlowSpec{}}
}

// Register adds one task flow, validating its dependencies form no cycle
// with the flows already registered.
func (h *TaskFlowHub) Register(spec TaskFlowSpec) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	candidate := make(map[string]TaskFlowSpec, len(h.flows)+1)
	for id, existing := range h.flows {
		candidate[id] = existing
	}
	candidate[spec.ID] = spec

	for _, dep := range spec.Dependencies {
		if _, ok := candidate[dep]; !ok {
			return shared.NewUnknownDependencyError(spec.ID, dep)
		}
	}

	if err := detectCycle(candidate); err != nil {
		return err
	}

	h.flows[spec.ID] = spec
	return nil
}

// RegisterMany registers every spec, stopping at the first error. Specs
// registered before the failing one remain registered (same as calling
// Register in a loop).
func (h *TaskFlowHub) RegisterMany(specs []TaskFlowSpec) error {
	for _, spec := range specs {
		if err := h.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

// ListFlows returns every registered flow, sorted by id.
func (h *TaskFlowHub) ListFlows() []TaskFlowSpec {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]TaskFlowSpec, 0, len(h.flows))
	for _, f := range h.flows {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RunResult is the per-task outcome of a Run call.
type RunResult struct {
	TaskID string
	Status string // "completed", "skipped", "failed"
	Reason string
	Output map[string]any
	Err    error
}

// Run executes the requested task ids (or every registered flow if ids is
// empty) in dependency order, for the given trigger type and flags
// snapshot. A task is skipped (not executed) if it is not compatible with
// triggerType, if its EnabledPredicate rejects flags, or if any of its
// dependencies failed or was itself skipped with reason "dependency_failed",
// so a failure cascades down the whole dependency chain. A dependency skipped
// for any other reason does not block its dependents.
func (h *TaskFlowHub) Run(ctx context.Context, ids []string, triggerType string, flags map[string]bool, input map[string]any) ([]RunResult, error) {
	h.mu.RLock()
	flows := make(map[string]TaskFlowSpec, len(h.flows))
	for k, v := range h.flows {
		flows[k] = v
	}
	h.mu.RUnlock()

	selected := ids
	if len(selected) == 0 {
		for id := range flows {
			selected = append(selected, id)
		}
	}

	order, err := resolveOrder(flows, selected)
	if err != nil {
		return nil, err
	}

	// Run expands the requested ids to their full dependency closure (order
	// already reflects that) and emits a result for every task actually run,
	// not just the requested roots: a dependent needs its dependency's
	// recorded status even when the caller only asked for the dependent.
	results := make(map[string]RunResult, len(order))
	ordered := make([]RunResult, 0, len(order))

	for _, id := range order {
		spec, ok := flows[id]
		if !ok {
			continue
		}

		if !spec.IsTriggerCompatible(triggerType) {
			r := RunResult{TaskID: id, Status: "skipped", Reason: "trigger_mismatch"}
			results[id] = r
			ordered = append(ordered, r)
			continue
		}

		if !spec.IsEnabled(flags) {
			r := RunResult{TaskID: id, Status: "skipped", Reason: "disabled"}
			results[id] = r
			ordered = append(ordered, r)
			continue
		}

		if spec.Executor == nil {
			r := RunResult{TaskID: id, Status: "skipped", Reason: "no_executor"}
			results[id] = r
			ordered = append(ordered, r)
			continue
		}

		blocked := false
		for _, dep := range spec.Dependencies {
			dr, ok := results[dep]
			if ok && (dr.Status == "failed" || (dr.Status == "skipped" && dr.Reason == "dependency_failed")) {
				blocked = true
				break
			}
		}
		if blocked {
			r := RunResult{TaskID: id, Status: "skipped", Reason: "dependency_failed"}
			results[id] = r
			ordered = append(ordered, r)
			continue
		}

		out, execErr := runProtected(ctx, spec.Executor, input)
		r := RunResult{TaskID: id, Output: out}
		if execErr != nil {
			r.Status = "failed"
			r.Err = execErr
		} else {
			r.Status = "completed"
		}
		results[id] = r
		ordered = append(ordered, r)
	}

	return ordered, nil
}

// runProtected runs a task executor, recovering a panic into an error the
// same way the tracker would catch a raised exception.
func runProtected(ctx context.Context, exec TaskExecutor, input map[string]any) (out map[string]any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = shared.NewDomainError("task executor panicked")
		}
	}()
	return exec(ctx, input)
}

// resolveOrder performs a depth-first topological sort over the selected
// ids. Because Register already rejects cycles, the visiting marker here is
// a defensive invariant check rather than the primary cycle guard.
func resolveOrder(flows map[string]TaskFlowSpec, ids []string) ([]string, error) {
	visited := map[string]bool{}
	visiting := map[string]bool{}
	var order []string

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	var visit func(id string) error
	visit = func(id string) error {
		if visited[id] {
			return nil
		}
		if visiting[id] {
			return shared.NewCycleError(id)
		}
		spec, ok := flows[id]
		if !ok {
			return nil
		}
		visiting[id] = true
		deps := append([]string(nil), spec.Dependencies...)
		sort.Strings(deps)
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}
		visiting[id] = false
		visited[id] = true
		order = append(order, id)
		return nil
	}

	for _, id := range sorted {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// detectCycle runs resolveOrder over every candidate id purely to surface a
// cycle error; the order it returns is discarded.
func detectCycle(flows map[string]TaskFlowSpec) error {
	ids := make([]string, 0, len(flows))
	for id := range flows {
		ids = append(ids, id)
	}
	_, err := resolveOrder(flows, ids)
	return err
}
