// Package service is the runtime wrapper that boots both managers:
// loading config (key-value store, then filesystem, then defaults),
// wiring the trigger settings registry, constructing the DEX and
// Polymarket managers, and exposing the trigger-settings and execution
// surfaces an HTTP/API layer (out of scope here) would sit in front of.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/andrescamacho/pipeline-go/internal/adapters/collaborators"
	"github.com/andrescamacho/pipeline-go/internal/adapters/filestore"
	"github.com/andrescamacho/pipeline-go/internal/adapters/kvstore"
	"github.com/andrescamacho/pipeline-go/internal/adapters/ledger"
	"github.com/andrescamacho/pipeline-go/internal/application/dex"
	"github.com/andrescamacho/pipeline-go/internal/application/polymarket"
	domdex "github.com/andrescamacho/pipeline-go/internal/domain/dex"
	"github.com/andrescamacho/pipeline-go/internal/domain/pipeline"
	dompoly "github.com/andrescamacho/pipeline-go/internal/domain/polymarket"
	"github.com/andrescamacho/pipeline-go/internal/domain/shared"
)

const (
	dexConfigKey         = "dex:config"
	polymarketConfigKey  = "polymarket:config"
	dexConfigPath        = "config/dex_manager_config.json"
	polymarketConfigPath = "config/polymarket_manager_config.json"

	logListCap = 1000

	cyclesHistoryCap = 500
	tasksHistoryCap  = 1000
	tradesHistoryCap = 1000
)

func historyCap(kind string) int {
	switch kind {
	case "cycles":
		return cyclesHistoryCap
	case "trades":
		return tradesHistoryCap
	default:
		return tasksHistoryCap
	}
}

// Runtime is the process-wide object the system instructions' boot order
// describes: (1) KV client, (2) trigger settings registry, (3) manager
// constructors, (4) this wrapper, (5) optional auto-start.
type Runtime struct {
	KV     kvstore.Store
	DB     *gorm.DB
	Clock  shared.Clock
	Logger pipeline.EventLogger

	Settings   *pipeline.SettingsRegistry
	Dex        *dex.Manager
	Polymarket *polymarket.Manager

	// DexEvents and PolymarketEvents are the per-manager in-memory audit
	// rings; every event is additionally mirrored into the KV log list
	// and counted in the metrics hash when a store is wired.
	DexEvents        *pipeline.EventLog
	PolymarketEvents *pipeline.EventLog

	ExecutionLedger *ledger.ExecutionLedgerRepository
	PoolIndex       *ledger.PoolIndexRepository

	workforceOnce sync.Once
	workforce     collaborators.Workforce
}

// Options bundles the collaborator dependencies a caller wires Boot with.
// Nil toolkits fall back to mock-grade in-memory implementations so the
// runtime is always exercisable without live external services.
type Options struct {
	KV               kvstore.Store
	DB               *gorm.DB
	Clock            shared.Clock
	Logger           pipeline.EventLogger
	SwapClient       collaborators.SwapClient
	WatchlistToolkit collaborators.WatchlistToolkit
	WalletToolkit    collaborators.WalletToolkit
	PolymarketClient collaborators.PolymarketClient
}

// Boot constructs the trigger settings registry and both managers per the
// documented initialization order, loading each manager's config from the
// key-value store, falling back to the filesystem mirror, falling back to
// defaults.
func Boot(ctx context.Context, opts Options) (*Runtime, error) {
	if opts.Clock == nil {
		opts.Clock = shared.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = pipeline.NoOpLogger
	}

	r := &Runtime{
		KV:               opts.KV,
		DB:               opts.DB,
		Clock:            opts.Clock,
		Logger:           opts.Logger,
		Settings:         pipeline.NewSettingsRegistry(),
		DexEvents:        pipeline.NewEventLog(opts.Clock),
		PolymarketEvents: pipeline.NewEventLog(opts.Clock),
	}

	domdex.RegisterSettings(r.Settings)
	dompoly.RegisterSettings(r.Settings)

	if opts.DB != nil {
		r.ExecutionLedger = ledger.NewExecutionLedgerRepository(opts.DB)
		r.PoolIndex = ledger.NewPoolIndexRepository(opts.DB)
	}

	r.DexEvents.SetSink(r.durableEventSink(ctx, "dex"))
	r.PolymarketEvents.SetSink(r.durableEventSink(ctx, "polymarket"))

	dexCfg, err := r.loadConfig(ctx, dexConfigKey, dexConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load dex config: %w", err)
	}

	dexMgr, err := dex.NewManager(dex.Config{
		Workforce:        r.ensureWorkforce(),
		SwapClient:       opts.SwapClient,
		WatchlistToolkit: opts.WatchlistToolkit,
		WalletToolkit:    opts.WalletToolkit,
		Clock:            opts.Clock,
		Logger:           r.DexEvents.Logger(opts.Logger),
		Persist: func(ctx context.Context, cfg *pipeline.ManagerConfig) error {
			return r.saveConfig(ctx, dexConfigKey, dexConfigPath, cfg)
		},
		History:       r.historySink("dex"),
		InitialConfig: dexCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("construct dex manager: %w", err)
	}
	r.Dex = dexMgr

	polyCfg, err := r.loadConfig(ctx, polymarketConfigKey, polymarketConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load polymarket config: %w", err)
	}

	polyMgr, err := polymarket.NewManager(polymarket.Config{
		PolymarketClient: opts.PolymarketClient,
		Workforce:        r.ensureWorkforce(),
		Clock:            opts.Clock,
		Logger:           r.PolymarketEvents.Logger(opts.Logger),
		Persist: func(ctx context.Context, cfg *pipeline.ManagerConfig) error {
			return r.saveConfig(ctx, polymarketConfigKey, polymarketConfigPath, cfg)
		},
		History:       r.historySink("polymarket"),
		InitialConfig: polyCfg,
	})
	if err != nil {
		return nil, fmt.Errorf("construct polymarket manager: %w", err)
	}
	r.Polymarket = polyMgr

	// The managers fall back to their own defaults when no persisted
	// config existed; read the effective config back for the boot-time
	// auto-start decision rather than assuming a load succeeded.
	effectiveDex := r.Dex.GetConfig()
	if effectiveDex.Runtime["auto_start_on_boot"] == true {
		r.Dex.Start(ctx, effectiveDex.Runtime["cycle_enabled"] == true, effectiveDex.Runtime["watchlist_enabled"] == true)
	}
	effectivePoly := r.Polymarket.GetConfig()
	if effectivePoly.Runtime["auto_start_on_boot"] == true {
		r.Polymarket.Start(ctx)
	}

	return r, nil
}

// durableEventSink mirrors one manager's events into the KV store: a
// newest-first capped log list and a per-level counter in the metrics
// hash. KV failures are silently dropped; the in-memory ring remains
// authoritative.
func (r *Runtime) durableEventSink(ctx context.Context, manager string) pipeline.EventSink {
	if r.KV == nil {
		return nil
	}
	logsKey := manager + ":logs"
	metricsKey := manager + ":metrics"
	return func(event pipeline.Event) {
		encoded, err := json.Marshal(event)
		if err != nil {
			return
		}
		_ = kvstore.PrependCapped(ctx, r.KV, logsKey, string(encoded), logListCap)
		_, _ = r.KV.HIncrBy(ctx, metricsKey, "events_"+event.Level, 1)
	}
}

// historySink appends manager history entries ("cycles", "tasks",
// "trades") to their capped KV lists, newest last.
func (r *Runtime) historySink(manager string) pipeline.HistorySink {
	if r.KV == nil {
		return nil
	}
	return func(ctx context.Context, kind string, entry map[string]any) {
		encoded, err := json.Marshal(entry)
		if err != nil {
			return
		}
		key := manager + ":history:" + kind
		if err := kvstore.AppendCapped(ctx, r.KV, key, string(encoded), historyCap(kind)); err != nil {
			r.Logger("WARN", "history persist failed", map[string]any{"key": key, "error": err.Error()})
		}
	}
}

// ensureWorkforce lazily constructs the shared workforce client exactly
// once, serialising concurrent first-callers via sync.Once, per spec.md
// §9's open question on the original's lazy ensure_trader construction.
func (r *Runtime) ensureWorkforce() collaborators.Workforce {
	r.workforceOnce.Do(func() {
		r.workforce = collaborators.NewMockWorkforce()
	})
	return r.workforce
}

func (r *Runtime) loadConfig(ctx context.Context, kvKey, fsPath string) (*pipeline.ManagerConfig, error) {
	if r.KV != nil {
		raw, ok, err := r.KV.Get(ctx, kvKey)
		if err != nil {
			r.Logger("WARN", "config load from kv store failed", map[string]any{"key": kvKey, "error": err.Error()})
		} else if ok {
			var cfg pipeline.ManagerConfig
			if err := json.Unmarshal([]byte(raw), &cfg); err == nil {
				return &cfg, nil
			}
			r.Logger("WARN", "config in kv store is not valid json", map[string]any{"key": kvKey})
		}
	}

	var cfg pipeline.ManagerConfig
	if loaded, err := filestore.LoadJSON(fsPath, &cfg); err != nil {
		r.Logger("WARN", "config load from filesystem failed", map[string]any{"path": fsPath, "error": err.Error()})
	} else if loaded {
		return &cfg, nil
	}

	return nil, nil
}

func (r *Runtime) saveConfig(ctx context.Context, kvKey, fsPath string, cfg *pipeline.ManagerConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	var firstErr error
	if r.KV != nil {
		if err := r.KV.Set(ctx, kvKey, string(data)); err != nil {
			r.Logger("WARN", "config persist to kv store failed", map[string]any{"key": kvKey, "error": err.Error()})
			firstErr = err
		}
	}
	if err := filestore.SaveJSON(fsPath, cfg); err != nil {
		r.Logger("WARN", "config persist to filesystem failed", map[string]any{"path": fsPath, "error": err.Error()})
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ListTriggerSpecs returns every registered trigger settings key.
func (r *Runtime) ListTriggerSpecs() []string {
	return r.Settings.List()
}

// GetTriggerSettings extracts the current settings model for one trigger
// from the owning manager's live config.
func (r *Runtime) GetTriggerSettings(pipelineName, trigger string) (any, error) {
	cfg := r.configFor(pipelineName)
	return r.Settings.Get(pipelineName, trigger, cfg)
}

// UpdateTriggerSettings validates payload and applies it to the owning
// manager's config, persisting the result.
func (r *Runtime) UpdateTriggerSettings(ctx context.Context, pipelineName, trigger string, payload map[string]any) (map[string]any, error) {
	cfg := r.configFor(pipelineName)
	updated, err := r.Settings.Update(pipelineName, trigger, cfg, payload)
	if err != nil {
		return nil, err
	}

	switch pipelineName {
	case "dex":
		r.Dex.UpdateConfig(ctx, cfg.Process, cfg.Runtime)
	case "polymarket":
		r.Polymarket.UpdateConfig(ctx, cfg.Process, cfg.Runtime, cfg.TriggerConfig)
	}
	return updated, nil
}

func (r *Runtime) configFor(pipelineName string) *pipeline.ManagerConfig {
	switch pipelineName {
	case "dex":
		cfg := r.Dex.GetConfig()
		return &cfg
	case "polymarket":
		cfg := r.Polymarket.GetConfig()
		return &cfg
	default:
		return pipeline.NewManagerConfig()
	}
}

// LaunchExecution launches a DEX trader cycle execution, the Execution
// API's entry point. The new execution is immediately mirrored into the
// durable ledger when one is wired.
func (r *Runtime) LaunchExecution(ctx context.Context, mode, reason string) (map[string]any, error) {
	out, err := r.Dex.TriggerCycle(ctx, mode, reason)
	if err != nil {
		return out, err
	}
	if r.ExecutionLedger != nil {
		if id, _ := out["execution_id"].(string); id != "" {
			if rec, ok := r.Dex.GetExecution(id); ok {
				if lerr := r.ExecutionLedger.Record(ctx, "dex", rec); lerr != nil {
					r.Logger("WARN", "execution ledger write failed", map[string]any{"execution_id": id, "error": lerr.Error()})
				}
			}
		}
	}
	return out, nil
}

// GetExecution returns one tracked DEX execution's record, refreshing the
// durable ledger mirror with the latest observed state.
func (r *Runtime) GetExecution(id string) (pipeline.ExecutionRecord, bool) {
	rec, ok := r.Dex.GetExecution(id)
	if ok && r.ExecutionLedger != nil {
		if err := r.ExecutionLedger.Record(context.Background(), "dex", rec); err != nil {
			r.Logger("WARN", "execution ledger refresh failed", map[string]any{"execution_id": id, "error": err.Error()})
		}
	}
	return rec, ok
}

// IndexPool records one DEX pool under its per-pair and per-symbol keys,
// in both the KV store and the durable pool index.
func (r *Runtime) IndexPool(ctx context.Context, poolAddress, pair, symbol string) error {
	if r.KV != nil {
		if err := kvstore.IndexPool(ctx, r.KV, poolAddress, pair, symbol); err != nil {
			r.Logger("WARN", "kv pool index write failed", map[string]any{"pool": poolAddress, "error": err.Error()})
		}
	}
	if r.PoolIndex != nil {
		return r.PoolIndex.Upsert(ctx, poolAddress, pair, symbol)
	}
	return nil
}

// ListExecutions returns the newest limit tracked DEX executions.
func (r *Runtime) ListExecutions(limit int) []pipeline.ExecutionRecord {
	return r.Dex.ListExecutions(limit)
}

// Shutdown stops both managers, awaiting their worker loops and
// in-flight executions.
func (r *Runtime) Shutdown() {
	r.Dex.Stop()
	r.Polymarket.Stop()
}
