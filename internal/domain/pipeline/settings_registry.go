package pipeline

import (
	"sort"
	"sync"

	"github.com/andrescamacho/pipeline-go/internal/domain/shared"
)

// SettingsRegistry holds the typed extract/apply adapters for every
// trigger's tunable settings, keyed by "pipeline.trigger". Each spec's own
// Apply validates its normalized payload before mutating config (spec.md
// §4.6); the registry itself only routes by key.
type SettingsRegistry struct {
	mu    sync.RWMutex
	specs map[string]SettingsSpec
}

// NewSettingsRegistry creates an empty registry.
func NewSettingsRegistry() *SettingsRegistry {
	return &SettingsRegistry{specs: map[string]SettingsSpec{}}
}

// Register adds one settings spec.
func (r *SettingsRegistry) Register(spec SettingsSpec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.Key()] = spec
}

// List returns every registered key, sorted.
func (r *SettingsRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.specs))
	for k := range r.specs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Get extracts the current settings model for "pipeline.trigger" from cfg.
func (r *SettingsRegistry) Get(pipelineName, trigger string, cfg *ManagerConfig) (any, error) {
	spec, ok := r.lookup(pipelineName, trigger)
	if !ok {
		return nil, shared.NewNotFoundError("trigger settings", pipelineName+"."+trigger)
	}
	return spec.Extract(cfg)
}

// Update applies payload to cfg via the registered spec's Apply closure,
// which validates the normalized payload before mutating anything, and
// returns the settings model view the caller should see after the update.
func (r *SettingsRegistry) Update(pipelineName, trigger string, cfg *ManagerConfig, payload map[string]any) (map[string]any, error) {
	spec, ok := r.lookup(pipelineName, trigger)
	if !ok {
		return nil, shared.NewNotFoundError("trigger settings", pipelineName+"."+trigger)
	}
	return spec.Apply(cfg, payload)
}

func (r *SettingsRegistry) lookup(pipelineName, trigger string) (SettingsSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[pipelineName+"."+trigger]
	return s, ok
}
