// Package polymarket wires the generic pipeline primitives into the
// Polymarket manager shell: its feed cache, its market_batch trigger's
// single-flight/throttle/daily-limit machinery, and its worker loops.
package polymarket

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andrescamacho/pipeline-go/internal/adapters/collaborators"
	"github.com/andrescamacho/pipeline-go/internal/adapters/filestore"
	"github.com/andrescamacho/pipeline-go/internal/domain/pipeline"
	"github.com/andrescamacho/pipeline-go/internal/domain/pipeline/workers"
	dompoly "github.com/andrescamacho/pipeline-go/internal/domain/polymarket"
	"github.com/andrescamacho/pipeline-go/internal/domain/shared"
)

// DefaultFeedCachePath is where the feed cache is mirrored as JSON for
// recovery across restarts.
const DefaultFeedCachePath = "logs/polymarket_feed_cache.json"

// ConfigPersister mirrors config after a mutation; errors are logged and
// swallowed, never propagated.
type ConfigPersister func(ctx context.Context, cfg *pipeline.ManagerConfig) error

// Manager is the Polymarket manager shell.
type Manager struct {
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	flags   map[string]bool

	cfg *pipeline.ManagerConfig

	Hub       *pipeline.TaskFlowHub
	Triggers  *pipeline.TriggerFlowRegistry
	Tracker   *pipeline.ExecutionTracker
	FeedCache *workers.FeedCacheThresholdWorker

	hybridWorker *workers.HybridWorker

	PolymarketClient collaborators.PolymarketClient
	Workforce        collaborators.Workforce

	clock         shared.Clock
	logger        pipeline.EventLogger
	persist       ConfigPersister
	history       pipeline.HistorySink
	feedCachePath string

	scanMu          sync.Mutex
	lastScanAt      time.Time
	tradesToday     int
	lastRolloverDay string
}

// Config bundles the constructor dependencies for a Polymarket Manager.
type Config struct {
	PolymarketClient collaborators.PolymarketClient
	Workforce        collaborators.Workforce
	Clock            shared.Clock
	Logger           pipeline.EventLogger
	Persist          ConfigPersister
	History          pipeline.HistorySink
	InitialConfig    *pipeline.ManagerConfig

	// FeedCachePath overrides where the feed cache JSON mirror lives;
	// empty uses DefaultFeedCachePath.
	FeedCachePath string
}

// NewManager constructs a Polymarket manager with its task flows, triggers
// and feed cache wired, but not started.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Clock == nil {
		cfg.Clock = shared.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = pipeline.NoOpLogger
	}
	if cfg.InitialConfig == nil {
		cfg.InitialConfig = defaultManagerConfig()
	}

	if cfg.FeedCachePath == "" {
		cfg.FeedCachePath = DefaultFeedCachePath
	}

	mc := marketConfigFromCfg(cfg.InitialConfig)

	m := &Manager{
		flags:            map[string]bool{},
		cfg:              cfg.InitialConfig,
		Hub:              pipeline.NewTaskFlowHub(),
		Triggers:         pipeline.NewTriggerFlowRegistry(cfg.Clock),
		Tracker:          pipeline.NewExecutionTracker(cfg.Clock),
		FeedCache:        dompoly.NewFeedCache(mc.MaxCache, mc.ReviewThreshold, cfg.Clock),
		hybridWorker:     workers.NewHybridWorker(),
		PolymarketClient: cfg.PolymarketClient,
		Workforce:        cfg.Workforce,
		clock:            cfg.Clock,
		logger:           cfg.Logger,
		persist:          cfg.Persist,
		history:          cfg.History,
		feedCachePath:    cfg.FeedCachePath,
		lastRolloverDay:  cfg.Clock.Now().Format("2006-01-02"),
	}

	m.restoreFeedCache()

	batchTask := &dompoly.BatchOrchestrationTask{Workforce: m.Workforce}
	if err := m.Hub.Register(pipeline.SpecFromTask(batchTask, "fetch -> analyze -> decide over candidate markets")); err != nil {
		return nil, fmt.Errorf("register polymarket task flows: %w", err)
	}

	m.Triggers.Register(pipeline.TriggerSpec{Pipeline: "polymarket", Name: "market_batch", Trigger: &marketBatchTrigger{m: m}})

	m.hybridWorker.AddRunner("scan", func(ctx context.Context) {
		iw := workers.NewIntervalWorker(m.scanTick, mc.ScanIntervalSeconds, "polymarket_scan", m.clock)
		iw.MinIntervalSeconds = 5
		iw.RunLoop(ctx, m.isRunning)
	})

	return m, nil
}

func defaultManagerConfig() *pipeline.ManagerConfig {
	cfg := pipeline.NewManagerConfig()
	mc := dompoly.DefaultMarketConfig()
	cfg.Process["scan_interval_seconds"] = mc.ScanIntervalSeconds
	cfg.Process["review_threshold"] = mc.ReviewThreshold
	cfg.Process["max_cache"] = mc.MaxCache
	cfg.Process["max_trades_per_day"] = mc.MaxTradesPerDay
	cfg.Process["fetch_limit"] = mc.FetchLimit
	cfg.TriggerConfig["signal_min_confidence"] = mc.SignalMinConfidence
	cfg.Runtime["hybrid_enabled"] = false
	cfg.Runtime["auto_start_on_boot"] = false
	return cfg
}

func marketConfigFromCfg(cfg *pipeline.ManagerConfig) dompoly.MarketConfig {
	mc := dompoly.DefaultMarketConfig()
	if v, ok := asIntOK(cfg.Process["scan_interval_seconds"]); ok {
		mc.ScanIntervalSeconds = v
	}
	if v, ok := asIntOK(cfg.Process["review_threshold"]); ok {
		mc.ReviewThreshold = v
	}
	if v, ok := asIntOK(cfg.Process["max_cache"]); ok {
		mc.MaxCache = v
	}
	if v, ok := asIntOK(cfg.Process["max_trades_per_day"]); ok {
		mc.MaxTradesPerDay = v
	}
	if v, ok := asIntOK(cfg.Process["fetch_limit"]); ok {
		mc.FetchLimit = v
	}
	return mc
}

func asIntOK(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// Start launches the Polymarket scan loop under the hybrid worker.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancel = cancel
	m.hybridWorker.Start(loopCtx)
	m.logger("INFO", "polymarket manager started", nil)
}

func (m *Manager) isRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Stop cancels the scan loop, awaits it, then cancels every in-flight
// execution.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()

	m.hybridWorker.Stop()
	m.Tracker.CancelAll()
	m.logger("INFO", "polymarket manager stopped", nil)
}

func (m *Manager) scanTick(ctx context.Context) error {
	if m.PolymarketClient == nil {
		return nil
	}
	mc := marketConfigFromCfg(m.GetConfigPtr())
	markets, err := m.PolymarketClient.FetchLatestMarkets(ctx, mc.FetchLimit)
	if err != nil {
		return err
	}
	_ = m.Triggers.Run(ctx, "polymarket", "market_batch", map[string]any{
		"trigger_type": "interval",
		"markets":      markets,
	})
	return nil
}

// GetConfigPtr returns the manager's live config pointer for internal,
// same-goroutine reads; external callers must use GetConfig instead.
func (m *Manager) GetConfigPtr() *pipeline.ManagerConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// GetConfig returns an immutable snapshot of the manager's live config.
func (m *Manager) GetConfig() pipeline.ManagerConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneConfig(m.cfg)
}

func cloneConfig(cfg *pipeline.ManagerConfig) pipeline.ManagerConfig {
	clone := pipeline.ManagerConfig{
		Process:       map[string]any{},
		Runtime:       map[string]any{},
		TriggerConfig: map[string]any{},
		RSSFlux:       map[string]any{},
		LastUpdated:   cfg.LastUpdated,
	}
	for k, v := range cfg.Process {
		clone.Process[k] = v
	}
	for k, v := range cfg.Runtime {
		clone.Runtime[k] = v
	}
	for k, v := range cfg.TriggerConfig {
		clone.TriggerConfig[k] = v
	}
	for k, v := range cfg.RSSFlux {
		clone.RSSFlux[k] = v
	}
	return clone
}

// UpdateConfig merges updates into process/runtime/trigger_config and
// persists (logging and swallowing any error) the resulting snapshot.
func (m *Manager) UpdateConfig(ctx context.Context, process, runtime, triggerConfig map[string]any) pipeline.ManagerConfig {
	m.mu.Lock()
	for k, v := range process {
		m.cfg.Process[k] = v
	}
	for k, v := range runtime {
		m.cfg.Runtime[k] = v
	}
	for k, v := range triggerConfig {
		m.cfg.TriggerConfig[k] = v
	}
	m.cfg.LastUpdated = m.clock.Now().Format(time.RFC3339)
	mc := marketConfigFromCfg(m.cfg)
	m.FeedCache.MaxCache = mc.MaxCache
	m.FeedCache.Threshold = mc.ReviewThreshold
	snapshot := cloneConfig(m.cfg)
	m.mu.Unlock()

	if m.persist != nil {
		if err := m.persist(ctx, &snapshot); err != nil {
			m.logger("WARN", "polymarket config persistence failed", map[string]any{"error": err.Error()})
		}
	}
	m.logger("INFO", "polymarket config updated", map[string]any{"process_keys": len(process), "runtime_keys": len(runtime)})
	return snapshot
}

// restoreFeedCache loads the on-disk feed cache mirror, if one exists. A
// missing or unreadable mirror just starts the cache empty.
func (m *Manager) restoreFeedCache() {
	var cache map[string]map[string]any
	loaded, err := filestore.LoadJSON(m.feedCachePath, &cache)
	if err != nil {
		m.logger("WARN", "feed cache restore failed", map[string]any{"path": m.feedCachePath, "error": err.Error()})
		return
	}
	if loaded {
		m.FeedCache.Load(cache)
	}
}

// persistFeedCache mirrors the current feed cache to disk; errors are
// logged and swallowed.
func (m *Manager) persistFeedCache() {
	if err := filestore.SaveJSON(m.feedCachePath, m.FeedCache.Snapshot()); err != nil {
		m.logger("WARN", "feed cache persist failed", map[string]any{"path": m.feedCachePath, "error": err.Error()})
	}
}

func (m *Manager) appendHistory(ctx context.Context, kind string, entry map[string]any) {
	if m.history == nil {
		return
	}
	m.history(ctx, kind, entry)
}

// Flags returns a snapshot of the per-task enabled overrides.
func (m *Manager) Flags() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// UpdateTaskFlows merges boolean overrides into the per-task flag map.
func (m *Manager) UpdateTaskFlows(overrides map[string]bool) []pipeline.TaskFlowSpec {
	m.mu.Lock()
	for k, v := range overrides {
		m.flags[k] = v
	}
	m.mu.Unlock()
	m.logger("INFO", "polymarket task flow flags updated", map[string]any{"overrides": len(overrides)})
	return m.Hub.ListFlows()
}
