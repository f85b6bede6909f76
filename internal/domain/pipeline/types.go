// Package pipeline holds the orchestration core shared by every manager:
// the task flow hub, trigger flow registry, trigger settings registry and
// the execution tracker. Individual trading systems (dex, polymarket) adapt
// these primitives to their own task trees and triggers.
package pipeline

import "context"

// TaskExecutor is the function signature every registered task flow runs.
// Input and output are untyped maps, mirroring the JSON-shaped payloads
// that cross the task flow boundary.
type TaskExecutor func(ctx context.Context, input map[string]any) (map[string]any, error)

// TaskFlowSpec describes one node in the dependency graph a manager can run.
type TaskFlowSpec struct {
	ID           string
	Pipeline     string
	SystemName   string
	TriggerTypes map[string]struct{}
	Dependencies []string
	Description  string
	Executor     TaskExecutor

	// EnabledPredicate decides whether this task runs for a given flags
	// snapshot. A nil predicate defaults to reading flags[ID], defaulting
	// to true when the id is absent.
	EnabledPredicate func(flags map[string]bool) bool
}

// IsEnabled evaluates EnabledPredicate, or the default flags[ID]-with-true
// fallback when none was set.
func (t TaskFlowSpec) IsEnabled(flags map[string]bool) bool {
	if t.EnabledPredicate != nil {
		return t.EnabledPredicate(flags)
	}
	if v, ok := flags[t.ID]; ok {
		return v
	}
	return true
}

// IsTriggerCompatible reports whether this task flow may run for the given
// trigger type. An empty TriggerTypes set means "always compatible".
func (t TaskFlowSpec) IsTriggerCompatible(triggerType string) bool {
	if len(t.TriggerTypes) == 0 {
		return true
	}
	_, ok := t.TriggerTypes[triggerType]
	return ok
}

// Task is the interface every concrete pipeline task implements. AsSpec
// binds Execute into a TaskFlowSpec so the task can be registered on a
// TaskFlowHub without the hub knowing about the concrete task type.
type Task interface {
	ID() string
	Pipeline() string
	SystemName() string
	TriggerTypes() []string
	Dependencies() []string
	Execute(ctx context.Context, input map[string]any) (map[string]any, error)
}

// SpecFromTask converts a Task into the TaskFlowSpec its hub registration
// requires.
func SpecFromTask(t Task, description string) TaskFlowSpec {
	triggerTypes := map[string]struct{}{}
	for _, tt := range t.TriggerTypes() {
		triggerTypes[tt] = struct{}{}
	}
	return TaskFlowSpec{
		ID:           t.ID(),
		Pipeline:     t.Pipeline(),
		SystemName:   t.SystemName(),
		TriggerTypes: triggerTypes,
		Dependencies: t.Dependencies(),
		Description:  description,
		Executor:     t.Execute,
	}
}

// Trigger resolves a dispatch request into a result payload.
type Trigger interface {
	ID() string
	Resolve(ctx context.Context, args map[string]any) (map[string]any, error)
}

// TriggerSpec identifies one registered trigger by pipeline and name.
type TriggerSpec struct {
	Pipeline string
	Name     string
	Trigger  Trigger
}

// Key returns the "pipeline.trigger" identifier used by the registry.
func (s TriggerSpec) Key() string {
	return s.Pipeline + "." + s.Name
}

// SettingsSpec adapts a manager's runtime config into and out of a typed
// settings model, used by the trigger settings registry.
type SettingsSpec struct {
	Pipeline string
	Trigger  string
	Extract  func(cfg *ManagerConfig) (any, error)
	Apply    func(cfg *ManagerConfig, payload map[string]any) (map[string]any, error)
}

// Key returns the "pipeline.trigger" identifier used by the registry.
func (s SettingsSpec) Key() string {
	return s.Pipeline + "." + s.Trigger
}

// ManagerConfig is the durable, JSON-serializable configuration mirror for
// one manager. Process holds free-form per-manager runtime knobs;
// TriggerConfig and RSSFlux hold the nested sections the original
// Polymarket triggers read from separately.
type ManagerConfig struct {
	Process       map[string]any `json:"process"`
	Runtime       map[string]any `json:"runtime"`
	TriggerConfig map[string]any `json:"trigger_config"`
	RSSFlux       map[string]any `json:"rss_flux"`
	LastUpdated   string         `json:"last_updated"`
}

// NewManagerConfig returns a config with all maps initialized, never nil.
func NewManagerConfig() *ManagerConfig {
	return &ManagerConfig{
		Process:       map[string]any{},
		Runtime:       map[string]any{},
		TriggerConfig: map[string]any{},
		RSSFlux:       map[string]any{},
	}
}

// ExecutionRecord is the durable view of one tracked execution, as returned
// by ExecutionTracker.GetStatus / List.
type ExecutionRecord struct {
	ExecutionID string         `json:"execution_id"`
	Mode        string         `json:"mode"`
	Reason      string         `json:"reason"`
	Stage       *string        `json:"stage,omitempty"`
	Status      string         `json:"status"`
	CreatedAt   string         `json:"created_at"`
	UpdatedAt   string         `json:"updated_at"`
	Result      map[string]any `json:"result,omitempty"`
	Error       *string        `json:"error,omitempty"`
}

// FeedCacheEntry tracks one item seen by a feed-threshold worker, so the
// worker can tell new arrivals from repeats and from exhausted entries.
type FeedCacheEntry struct {
	ID        string         `json:"id"`
	FirstSeen string         `json:"first_seen"`
	LastSeen  string         `json:"last_seen"`
	Exhausted bool           `json:"exhausted"`
	Data      map[string]any `json:"data"`
}

// Event is one emitted log line, carried through the EventLogger.
type Event struct {
	Timestamp string
	Level     string
	Message   string
	Context   map[string]any
}

// EventLogger is the logging seam every manager is constructed with. A
// nil EventLogger is never passed; NoOpLogger is used instead.
type EventLogger func(level, message string, fields map[string]any)

// NoOpLogger discards every event.
func NoOpLogger(level, message string, fields map[string]any) {}

// HistorySink receives one history entry of the given kind ("cycles",
// "tasks", "trades") for durable, capped retention. A nil sink drops the
// entry; sink failures are the sink's own to log and swallow.
type HistorySink func(ctx context.Context, kind string, entry map[string]any)
