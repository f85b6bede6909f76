// Package dex wires the generic pipeline primitives into the DEX trader
// manager shell: its task flows, its triggers, its worker loops and its
// config lifecycle.
package dex

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/andrescamacho/pipeline-go/internal/adapters/collaborators"
	domdex "github.com/andrescamacho/pipeline-go/internal/domain/dex"
	"github.com/andrescamacho/pipeline-go/internal/domain/pipeline"
	"github.com/andrescamacho/pipeline-go/internal/domain/pipeline/workers"
	"github.com/andrescamacho/pipeline-go/internal/domain/shared"
)

// ConfigPersister is the seam the service layer uses to mirror config to
// the key-value store and filesystem after every mutation. Errors are
// logged and swallowed by the manager, never propagated.
type ConfigPersister func(ctx context.Context, cfg *pipeline.ManagerConfig) error

// Manager is the DEX trader manager shell: it owns a TaskFlowHub, a
// TriggerFlowRegistry, an ExecutionTracker, the cycle and watchlist worker
// loops, and the trader's live config.
type Manager struct {
	mu sync.Mutex

	running          bool
	cycleEnabled     bool
	watchlistEnabled bool
	cycleCancel      context.CancelFunc
	watchlistCancel  context.CancelFunc
	wg               sync.WaitGroup
	lastCycleAt      time.Time
	flags            map[string]bool

	// walletReviews caches per-wallet review documents until
	// wallet_review_cache_seconds elapses, so back-to-back cycles don't
	// re-run the same wallet analysis. lastStrategyHintAt gates the
	// strategy_hint stage on strategy_hint_interval_hours the same way.
	walletReviews      map[string]walletReviewEntry
	lastStrategyHintAt time.Time

	cfg *pipeline.ManagerConfig

	Hub      *pipeline.TaskFlowHub
	Triggers *pipeline.TriggerFlowRegistry
	Tracker  *pipeline.ExecutionTracker

	cycleWorker     *workers.IntervalWorker
	watchlistWorker *workers.IntervalWorker
	positionScanner *workers.ConditionalCallbackWorker[collaborators.Position]

	Workforce        collaborators.Workforce
	SwapClient       collaborators.SwapClient
	WatchlistToolkit collaborators.WatchlistToolkit
	WalletToolkit    collaborators.WalletToolkit

	clock   shared.Clock
	logger  pipeline.EventLogger
	persist ConfigPersister
	history pipeline.HistorySink
}

type walletReviewEntry struct {
	review   map[string]any
	cachedAt time.Time
}

// Config bundles the constructor dependencies for a DEX Manager.
type Config struct {
	Workforce        collaborators.Workforce
	SwapClient       collaborators.SwapClient
	WatchlistToolkit collaborators.WatchlistToolkit
	WalletToolkit    collaborators.WalletToolkit
	Clock            shared.Clock
	Logger           pipeline.EventLogger
	Persist          ConfigPersister
	History          pipeline.HistorySink
	InitialConfig    *pipeline.ManagerConfig
}

// NewManager constructs a DEX manager with its task flows, triggers and
// worker loops wired, but not started.
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

	m := &Manager{
		flags:            map[string]bool{},
		walletReviews:    map[string]walletReviewEntry{},
		cfg:              cfg.InitialConfig,
		Hub:              pipeline.NewTaskFlowHub(),
		Triggers:         pipeline.NewTriggerFlowRegistry(cfg.Clock),
		Tracker:          pipeline.NewExecutionTracker(cfg.Clock),
		Workforce:        cfg.Workforce,
		SwapClient:       cfg.SwapClient,
		WatchlistToolkit: cfg.WatchlistToolkit,
		WalletToolkit:    cfg.WalletToolkit,
		clock:            cfg.Clock,
		logger:           cfg.Logger,
		persist:          cfg.Persist,
		history:          cfg.History,
	}

	cycleTask := &domdex.CyclePipelineTask{
		Workforce:        m.Workforce,
		WalletToolkit:    m.WalletToolkit,
		WatchlistToolkit: m.WatchlistToolkit,
		Tracker:          m.Tracker,
	}
	watchlistTask := &domdex.WatchlistReviewPipelineTask{
		Workforce:        m.Workforce,
		WalletToolkit:    m.WalletToolkit,
		WatchlistToolkit: m.WatchlistToolkit,
		SwapClient:       m.SwapClient,
	}

	if err := m.Hub.RegisterMany([]pipeline.TaskFlowSpec{
		pipeline.SpecFromTask(cycleTask, "full eight-stage dex trading cycle"),
		pipeline.SpecFromTask(watchlistTask, "watchlist wallet+position review, no trade execution"),
	}); err != nil {
		return nil, fmt.Errorf("register dex task flows: %w", err)
	}

	m.Triggers.Register(pipeline.TriggerSpec{Pipeline: "dex", Name: "cycle", Trigger: &cycleTrigger{m: m}})
	m.Triggers.Register(pipeline.TriggerSpec{Pipeline: "dex", Name: "watchlist_review", Trigger: &watchlistReviewTrigger{m: m}})
	m.Triggers.Register(pipeline.TriggerSpec{Pipeline: "dex", Name: "watchlist_notification", Trigger: &watchlistNotificationTrigger{m: m}})

	m.cycleWorker = workers.NewIntervalWorker(m.cycleTick, cycleHoursToSeconds(traderConfigFromCfg(m.cfg).CycleHours), "dex_cycle", m.clock)
	m.cycleWorker.MinIntervalSeconds = 60

	m.watchlistWorker = workers.NewIntervalWorker(m.watchlistTick, traderConfigFromCfg(m.cfg).WatchlistScanSeconds, "dex_watchlist", m.clock)
	m.watchlistWorker.MinIntervalSeconds = 5

	m.positionScanner = workers.NewConditionalCallbackWorker(
		m.fetchOpenPositions,
		m.evaluatePositionTriggers,
		func(p collaborators.Position) bool { return p.Status == "open" },
	)

	return m, nil
}

func cycleHoursToSeconds(hours int) int {
	if hours <= 0 {
		hours = 4
	}
	return hours * 3600
}

func defaultManagerConfig() *pipeline.ManagerConfig {
	cfg := pipeline.NewManagerConfig()
	tc := domdex.DefaultTraderConfig()
	cfg.Process["cycle_hours"] = tc.CycleHours
	cfg.Process["watchlist_scan_seconds"] = tc.WatchlistScanSeconds
	cfg.Process["watchlist_trigger_pct"] = tc.WatchlistTriggerPct
	cfg.Process["watchlist_fast_trigger_pct"] = tc.WatchlistFastTriggerPct
	cfg.Process["watchlist_global_roi_trigger_enabled"] = tc.WatchlistGlobalROITriggerEnabled
	cfg.Process["watchlist_global_roi_trigger_pct"] = tc.WatchlistGlobalROITriggerPct
	cfg.Process["watchlist_global_roi_fast_trigger_pct"] = tc.WatchlistGlobalROIFastTriggerPct
	cfg.Process["token_exploration_limit"] = tc.TokenExplorationLimit
	cfg.Process["wallet_review_cache_seconds"] = tc.WalletReviewCacheSeconds
	cfg.Process["strategy_hint_interval_hours"] = tc.StrategyHintIntervalHours
	cfg.Process["auto_enhancement_enabled"] = tc.AutoEnhancementEnabled
	cfg.Runtime["cycle_enabled"] = false
	cfg.Runtime["watchlist_enabled"] = tc.WatchlistEnabled
	cfg.Runtime["auto_start_on_boot"] = false
	return cfg
}

func asConfigInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func traderConfigFromCfg(cfg *pipeline.ManagerConfig) domdex.TraderConfig {
	tc := domdex.DefaultTraderConfig()
	if v, ok := asConfigInt(cfg.Process["cycle_hours"]); ok {
		tc.CycleHours = v
	}
	if v, ok := asConfigInt(cfg.Process["watchlist_scan_seconds"]); ok {
		tc.WatchlistScanSeconds = v
	}
	if v, ok := cfg.Process["watchlist_trigger_pct"].(float64); ok {
		tc.WatchlistTriggerPct = v
	}
	if v, ok := cfg.Process["watchlist_fast_trigger_pct"].(float64); ok {
		tc.WatchlistFastTriggerPct = v
	}
	if v, ok := cfg.Process["watchlist_global_roi_trigger_enabled"].(bool); ok {
		tc.WatchlistGlobalROITriggerEnabled = v
	}
	if v, ok := asConfigInt(cfg.Process["wallet_review_cache_seconds"]); ok {
		tc.WalletReviewCacheSeconds = v
	}
	if v, ok := asConfigInt(cfg.Process["strategy_hint_interval_hours"]); ok {
		tc.StrategyHintIntervalHours = v
	}
	if v, ok := cfg.Runtime["watchlist_enabled"].(bool); ok {
		tc.WatchlistEnabled = v
	}
	return tc
}

// TraderConfig returns the typed tunables projected from the live config,
// read under the manager's own lock.
func (m *Manager) TraderConfig() domdex.TraderConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return traderConfigFromCfg(m.cfg)
}

// Start spawns the cycle and/or watchlist loops. Calling Start while
// already running is a no-op; calling Start with both flags false emits a
// warning and starts nothing.
func (m *Manager) Start(ctx context.Context, cycleEnabled, watchlistEnabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}
	if !cycleEnabled && !watchlistEnabled {
		m.logger("WARN", "dex manager start called with both cycle and watchlist disabled", nil)
		return
	}

	m.running = true
	m.cycleEnabled = cycleEnabled
	m.watchlistEnabled = watchlistEnabled

	if cycleEnabled {
		loopCtx, cancel := context.WithCancel(ctx)
		m.cycleCancel = cancel
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.cycleWorker.RunLoop(loopCtx, m.isRunning)
		}()
	}
	if watchlistEnabled {
		loopCtx, cancel := context.WithCancel(ctx)
		m.watchlistCancel = cancel
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.watchlistWorker.RunLoop(loopCtx, m.isRunning)
		}()
	}

	m.logger("INFO", "dex manager started", map[string]any{"cycle_enabled": cycleEnabled, "watchlist_enabled": watchlistEnabled})
}

func (m *Manager) isRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Stop clears the running flag, cancels and awaits both loops, then
// cancels every in-flight execution.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	if m.cycleCancel != nil {
		m.cycleCancel()
	}
	if m.watchlistCancel != nil {
		m.watchlistCancel()
	}
	m.mu.Unlock()

	m.wg.Wait()
	m.Tracker.CancelAll()
	m.logger("INFO", "dex manager stopped", nil)
}

func (m *Manager) cycleTick(ctx context.Context) error {
	_, err := m.TriggerCycle(ctx, string(domdex.ReviewModeLongStudy), "interval_worker")
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.lastCycleAt = m.clock.Now()
	m.mu.Unlock()
	return nil
}

// watchlistTick scans open positions through the conditional worker,
// forwarding any fired per-position trigger into watchlist_notification,
// then evaluates the global ROI trigger when it is enabled.
func (m *Manager) watchlistTick(ctx context.Context) error {
	if m.WatchlistToolkit != nil {
		if _, err := m.positionScanner.RunOnce(ctx); err != nil {
			return err
		}
	}

	tc := m.TraderConfig()
	if tc.WatchlistGlobalROITriggerEnabled && m.WalletToolkit != nil {
		roi, err := m.WalletToolkit.EvaluateGlobalROI(ctx)
		if err != nil {
			return err
		}
		if triggered, _ := roi["triggered"].(bool); triggered {
			args := map[string]any{
				"trigger_type": "global_roi",
				"mode":         string(domdex.ReviewModeFastDecision),
				"roi_delta":    roi["roi"],
			}
			_ = m.Triggers.Run(ctx, "dex", "watchlist_notification", args)
		}
	}
	return nil
}

func (m *Manager) fetchOpenPositions(ctx context.Context) ([]collaborators.Position, error) {
	return m.WatchlistToolkit.ListPositions(ctx, "open")
}

func (m *Manager) evaluatePositionTriggers(ctx context.Context, p collaborators.Position) error {
	tc := m.TraderConfig()
	if tc.WatchlistTriggerPct <= 0 {
		return nil
	}
	notification, err := m.WatchlistToolkit.EvaluateTriggers(ctx, p, tc.WatchlistTriggerPct)
	if err != nil {
		return err
	}
	if notification == nil {
		return nil
	}
	_ = m.Triggers.Run(ctx, "dex", "watchlist_notification", notification)
	return nil
}

// cachedWalletReview serves the wallet review for one address from the
// TTL cache, re-running the toolkit only once the cached entry expires.
func (m *Manager) cachedWalletReview(ctx context.Context, walletAddress string) map[string]any {
	if m.WalletToolkit == nil {
		return nil
	}

	tc := m.TraderConfig()
	ttl := time.Duration(tc.WalletReviewCacheSeconds) * time.Second
	now := m.clock.Now()

	m.mu.Lock()
	entry, ok := m.walletReviews[walletAddress]
	m.mu.Unlock()
	if ok && ttl > 0 && now.Sub(entry.cachedAt) < ttl {
		return entry.review
	}

	review, err := m.WalletToolkit.ReviewWallet(ctx, walletAddress)
	if err != nil {
		m.logger("WARN", "wallet review failed", map[string]any{"wallet": walletAddress, "error": err.Error()})
		return nil
	}

	m.mu.Lock()
	m.walletReviews[walletAddress] = walletReviewEntry{review: review, cachedAt: now}
	m.mu.Unlock()
	return review
}

// strategyHintDue reports whether the strategy_hint stage should run this
// cycle, and records the hint timestamp when it is.
func (m *Manager) strategyHintDue() bool {
	tc := m.TraderConfig()
	interval := time.Duration(tc.StrategyHintIntervalHours) * time.Hour
	now := m.clock.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.lastStrategyHintAt.IsZero() && now.Sub(m.lastStrategyHintAt) < interval {
		return false
	}
	m.lastStrategyHintAt = now
	return true
}

func (m *Manager) appendHistory(ctx context.Context, kind string, entry map[string]any) {
	if m.history == nil {
		return
	}
	m.history(ctx, kind, entry)
}

// recordTaskResults mirrors one hub run's per-task outcomes into the
// "tasks" history.
func (m *Manager) recordTaskResults(ctx context.Context, results []pipeline.RunResult) {
	if m.history == nil {
		return
	}
	for _, r := range results {
		entry := map[string]any{
			"task_id":     r.TaskID,
			"status":      r.Status,
			"recorded_at": m.clock.Now().Format(time.RFC3339),
		}
		if r.Reason != "" {
			entry["reason"] = r.Reason
		}
		if r.Err != nil {
			entry["error"] = r.Err.Error()
		}
		m.history(ctx, "tasks", entry)
	}
}

// TriggerCycle launches an asynchronous trader cycle execution and returns
// immediately with its execution id, matching spec.md §8 scenario 1.
func (m *Manager) TriggerCycle(ctx context.Context, mode, reason string) (map[string]any, error) {
	id := m.Tracker.Launch(ctx, mode, reason, func(runCtx context.Context, executionID string) (map[string]any, error) {
		return m.runTraderCycle(runCtx, mode, reason, executionID)
	})
	return map[string]any{"status": "accepted", "execution_id": id}, nil
}

func (m *Manager) runTraderCycle(ctx context.Context, mode, reason, executionID string) (map[string]any, error) {
	out := m.Triggers.Run(ctx, "dex", "cycle", map[string]any{
		"mode":                  mode,
		"reason":                reason,
		"execution_id":          executionID,
		"wallet_review":         m.cachedWalletReview(ctx, ""),
		"include_strategy_hint": m.strategyHintDue(),
	})

	status, _ := out["status"].(string)
	m.appendHistory(ctx, "cycles", map[string]any{
		"execution_id": executionID,
		"mode":         mode,
		"reason":       reason,
		"status":       status,
		"completed_at": m.clock.Now().Format(time.RFC3339),
	})

	if status == "failed" {
		errMsg, _ := out["error"].(string)
		if errMsg == "" {
			errMsg = "cycle trigger failed"
		}
		return out, fmt.Errorf("%s", errMsg)
	}
	return out, nil
}

// GetExecution returns the tracked record for one execution id.
func (m *Manager) GetExecution(id string) (pipeline.ExecutionRecord, bool) {
	return m.Tracker.GetStatus(id)
}

// ListExecutions returns the newest limit tracked executions.
func (m *Manager) ListExecutions(limit int) []pipeline.ExecutionRecord {
	return m.Tracker.List(limit)
}

// UpdateTaskFlows merges boolean overrides into the per-task enabled flag
// map and returns the resulting flow listing (spec/dex/enabled status).
func (m *Manager) UpdateTaskFlows(overrides map[string]bool) []pipeline.TaskFlowSpec {
	m.mu.Lock()
	for k, v := range overrides {
		m.flags[k] = v
	}
	m.mu.Unlock()
	m.logger("INFO", "dex task flow flags updated", map[string]any{"overrides": len(overrides)})
	return m.Hub.ListFlows()
}

// Flags returns a snapshot of the per-task enabled overrides, the
// `flags` map the task hub's enabled_predicate reads from.
func (m *Manager) Flags() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// GetConfig returns an immutable snapshot of the manager's live config;
// callers never receive a pointer into the manager's own state.
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

// UpdateConfig merges updates into process/runtime, re-applies the
// resulting tunables to the live worker loops, persists the new config
// (logging and swallowing any persistence error) and returns the
// resulting snapshot.
func (m *Manager) UpdateConfig(ctx context.Context, process, runtime map[string]any) pipeline.ManagerConfig {
	m.mu.Lock()
	for k, v := range process {
		m.cfg.Process[k] = v
	}
	for k, v := range runtime {
		m.cfg.Runtime[k] = v
	}
	m.cfg.LastUpdated = m.clock.Now().Format(time.RFC3339)
	tc := traderConfigFromCfg(m.cfg)
	m.cycleWorker.SetInterval(cycleHoursToSeconds(tc.CycleHours))
	m.watchlistWorker.SetInterval(tc.WatchlistScanSeconds)
	snapshot := cloneConfig(m.cfg)
	m.mu.Unlock()

	if m.persist != nil {
		if err := m.persist(ctx, &snapshot); err != nil {
			m.logger("WARN", "dex config persistence failed", map[string]any{"error": err.Error()})
		}
	}
	m.logger("INFO", "dex config updated", map[string]any{"process_keys": len(process), "runtime_keys": len(runtime)})
	return snapshot
}
