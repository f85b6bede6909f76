package polymarket

import (
	"context"
	"time"

	"github.com/andrescamacho/pipeline-go/internal/domain/pipeline"
)

// marketBatchTrigger is the single-flight, throttled, daily-capped entry
// point into batch_orchestration (spec.md §4.3, §4.8).
type marketBatchTrigger struct{ m *Manager }

func (t *marketBatchTrigger) ID() string { return "polymarket.market_batch" }

func (t *marketBatchTrigger) Resolve(ctx context.Context, args map[string]any) (map[string]any, error) {
	triggerType, _ := args["trigger_type"].(string)
	if triggerType == "" {
		triggerType = "interval"
	}
	manual := triggerType == "manual"

	if !t.m.scanMu.TryLock() {
		return map[string]any{"status": "in_progress", "reason": "scan_in_progress"}, nil
	}
	defer t.m.scanMu.Unlock()

	now := t.m.clock.Now()
	mc := marketConfigFromCfg(t.m.GetConfigPtr())

	if !manual {
		day := now.Format("2006-01-02")
		t.m.mu.Lock()
		if day != t.m.lastRolloverDay {
			t.m.tradesToday = 0
			t.m.lastRolloverDay = day
		}
		lastScan := t.m.lastScanAt
		t.m.mu.Unlock()

		if !lastScan.IsZero() && now.Sub(lastScan) < time.Duration(mc.ScanIntervalSeconds)*time.Second {
			return map[string]any{"status": "skipped", "reason": "interval_throttle"}, nil
		}

		t.m.mu.Lock()
		t.m.lastScanAt = now
		t.m.mu.Unlock()
	}

	markets, _ := args["markets"].([]map[string]any)

	var candidates []map[string]any
	if manual {
		candidates = markets
	} else {
		t.m.FeedCache.Update(markets)
		t.m.persistFeedCache()
		if !t.m.FeedCache.Ready() {
			return map[string]any{"status": "skipped", "reason": "threshold_not_ready"}, nil
		}
		for _, entry := range t.m.FeedCache.PendingItems() {
			if data, ok := entry["data"].(map[string]any); ok {
				candidates = append(candidates, data)
			}
		}
	}

	if len(candidates) == 0 {
		return map[string]any{"status": "skipped", "reason": "no_markets"}, nil
	}

	t.m.mu.Lock()
	tradesToday := t.m.tradesToday
	t.m.mu.Unlock()

	executionEnabled := manual || tradesToday < mc.MaxTradesPerDay

	results, err := t.m.Hub.Run(ctx, []string{"batch_orchestration"}, "market_batch", t.m.Flags(), map[string]any{
		"markets":           candidates,
		"execution_enabled": executionEnabled,
	})
	if err != nil {
		return nil, err
	}
	out := flattenSingle(results, "batch_orchestration")

	if status, _ := out["status"].(string); status == "completed" {
		if !manual {
			t.m.FeedCache.MarkProcessed(candidates, "exhausted")
			t.m.persistFeedCache()
		}
		if executionEnabled {
			t.m.mu.Lock()
			t.m.tradesToday++
			tradesToday = t.m.tradesToday
			t.m.mu.Unlock()
			t.m.appendHistory(ctx, "trades", map[string]any{
				"trigger_type": triggerType,
				"market_count": len(candidates),
				"trades_today": tradesToday,
				"recorded_at":  now.Format(time.RFC3339),
			})
		}
	}

	t.m.appendHistory(ctx, "cycles", map[string]any{
		"trigger_type":      triggerType,
		"status":            out["status"],
		"market_count":      len(candidates),
		"execution_enabled": executionEnabled,
		"recorded_at":       now.Format(time.RFC3339),
	})

	return out, nil
}

// flattenSingle unwraps a one-task RunResult list into a flat result
// document.
func flattenSingle(results []pipeline.RunResult, taskID string) map[string]any {
	for _, r := range results {
		if r.TaskID != taskID {
			continue
		}
		out := map[string]any{"status": r.Status}
		for k, v := range r.Output {
			out[k] = v
		}
		if r.Reason != "" {
			out["reason"] = r.Reason
		}
		if r.Err != nil {
			out["error"] = r.Err.Error()
		}
		return out
	}
	return map[string]any{"status": "skipped", "reason": "task_not_found"}
}
