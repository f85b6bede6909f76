// Package collaborators defines the external system boundaries the
// pipeline core depends on but does not itself implement: the LLM
// workforce that actually executes task content, the on-chain swap
// client, and the watchlist/wallet toolkits. Each interface is
// deliberately thin; a mock-grade implementation backs the test suite.
package collaborators

import "context"

// WorkforceTask is the flat, id-addressed task node the orchestration core
// builds and submits to a Workforce. Dependencies and Subtasks are lists of
// ids, never back-pointers, so the tree can be serialized and replayed.
type WorkforceTask struct {
	ID             string
	Content        string
	TaskType       string
	ParentID       string
	Dependencies   []string
	Subtasks       []string
	AdditionalInfo map[string]any
}

// AsyncProcessor is implemented by a workforce that exposes an
// async-style submission entry point.
type AsyncProcessor interface {
	ProcessTaskAsync(ctx context.Context, task WorkforceTask) (map[string]any, error)
}

// SyncProcessor is implemented by a workforce that only exposes a
// synchronous submission entry point.
type SyncProcessor interface {
	ProcessTask(ctx context.Context, task WorkforceTask) (map[string]any, error)
}

// Runner is implemented by a workforce exposing a bare Run entry point,
// the lowest-common-denominator capability.
type Runner interface {
	Run(ctx context.Context, task WorkforceTask) (map[string]any, error)
}

// Workforce is the capability union a manager type-asserts against, in
// AsyncProcessor -> SyncProcessor -> Runner order, mirroring the
// original's hasattr(workforce, "process_task_async" | "process_task" | "run")
// fallback chain.
type Workforce interface{}

// ExecuteTask submits task to workforce via whichever capability it
// implements, returning {"status": "skipped", "reason": "workforce_no_method"}
// if it implements none of them.
func ExecuteTask(ctx context.Context, workforce Workforce, task WorkforceTask) (map[string]any, error) {
	if workforce == nil {
		return map[string]any{"status": "skipped", "reason": "workforce_no_method"}, nil
	}
	if p, ok := workforce.(AsyncProcessor); ok {
		return p.ProcessTaskAsync(ctx, task)
	}
	if p, ok := workforce.(SyncProcessor); ok {
		return p.ProcessTask(ctx, task)
	}
	if p, ok := workforce.(Runner); ok {
		return p.Run(ctx, task)
	}
	return map[string]any{"status": "skipped", "reason": "workforce_no_method"}, nil
}
