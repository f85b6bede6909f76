// Package steps holds the godog step definitions exercising the
// orchestration core's literal end-to-end scenarios directly against the
// domain and application packages, with mock collaborators standing in
// for the workforce, swap client, and watchlist/wallet toolkits.
package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/andrescamacho/pipeline-go/internal/adapters/collaborators"
	"github.com/andrescamacho/pipeline-go/internal/application/dex"
	"github.com/andrescamacho/pipeline-go/internal/domain/pipeline"
	"github.com/andrescamacho/pipeline-go/internal/domain/shared"
	"github.com/cucumber/godog"
)

type dexContext struct {
	manager    *dex.Manager
	workforce  *collaborators.MockWorkforce
	swapClient *collaborators.MockSwapClient
	watchlist  *collaborators.MockWatchlistToolkit
	wallet     *collaborators.MockWalletToolkit
	clock      *shared.MockClock

	lastResponse map[string]any
	lastErr      error
}

func (d *dexContext) buildManager(process map[string]any) error {
	d.workforce = collaborators.NewMockWorkforce()
	d.swapClient = collaborators.NewMockSwapClient()
	d.watchlist = collaborators.NewMockWatchlistToolkit()
	d.wallet = collaborators.NewMockWalletToolkit()
	d.clock = shared.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	m, err := dex.NewManager(dex.Config{
		Workforce:        d.workforce,
		SwapClient:       d.swapClient,
		WatchlistToolkit: d.watchlist,
		WalletToolkit:    d.wallet,
		Clock:            d.clock,
		Logger:           pipeline.NoOpLogger,
	})
	if err != nil {
		return err
	}
	if len(process) > 0 {
		m.UpdateConfig(context.Background(), process, nil)
	}
	d.manager = m
	return nil
}

// NewDexContext constructs the shared fixture the cycle and watchlist
// scenarios both build steps against.
func NewDexContext() *dexContext {
	return &dexContext{}
}

func (d *dexContext) aDefaultManager() error {
	return d.buildManager(nil)
}

func (d *dexContext) aManagerWithFastTriggerPct(pct float64) error {
	return d.buildManager(map[string]any{"watchlist_fast_trigger_pct": pct})
}

func (d *dexContext) iTriggerACycle(mode, reason string) error {
	out, err := d.manager.TriggerCycle(context.Background(), mode, reason)
	d.lastResponse = out
	d.lastErr = err
	return nil
}

func (d *dexContext) theResponseStatusIs(status string) error {
	if d.lastErr != nil {
		return fmt.Errorf("trigger returned error: %w", d.lastErr)
	}
	got, _ := d.lastResponse["status"].(string)
	if got != status {
		return fmt.Errorf("expected status %q, got %q", status, got)
	}
	return nil
}

func (d *dexContext) theResponseHasAnExecutionID() error {
	id, _ := d.lastResponse["execution_id"].(string)
	if id == "" {
		return fmt.Errorf("expected a non-empty execution_id, got %v", d.lastResponse["execution_id"])
	}
	return nil
}

func (d *dexContext) theExecutionEventuallyReaches(statusA, statusB string) error {
	id, _ := d.lastResponse["execution_id"].(string)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		rec, ok := d.manager.GetExecution(id)
		if ok && (rec.Status == statusA || rec.Status == statusB) {
			return nil
		}
		time.Sleep(time.Millisecond)
	}
	return fmt.Errorf("execution %s did not reach %q or %q", id, statusA, statusB)
}

// InitializeDexCycleScenario wires the manual-cycle steps onto a shared
// dexContext. The "default config" Given is registered here once; other
// step files that need the same manager (e.g. watchlist scenarios) take d
// as a constructor argument instead of re-registering the identical step
// text, which godog would otherwise resolve by first-match precedence.
func InitializeDexCycleScenario(sc *godog.ScenarioContext, d *dexContext) {
	sc.Given(`^a DEX manager with default config and a mock workforce$`, d.aDefaultManager)
	sc.When(`^I trigger a cycle with mode "([^"]*)" and reason "([^"]*)"$`, d.iTriggerACycle)
	sc.Then(`^the response status is "([^"]*)"$`, d.theResponseStatusIs)
	sc.Then(`^the response has an execution id$`, d.theResponseHasAnExecutionID)
	sc.Then(`^the execution eventually reaches status "([^"]*)" or "([^"]*)"$`, d.theExecutionEventuallyReaches)
}
