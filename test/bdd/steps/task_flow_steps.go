package steps

import (
	"context"
	"fmt"
	"sync"

	"github.com/andrescamacho/pipeline-go/internal/domain/pipeline"
	"github.com/andrescamacho/pipeline-go/internal/domain/shared"
	"github.com/cucumber/godog"
)

type taskFlowContext struct {
	hub *pipeline.TaskFlowHub

	mu         sync.Mutex
	observed   []string
	failTaskA  bool
	lastResult []pipeline.RunResult
}

func (t *taskFlowContext) record(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observed = append(t.observed, id)
}

func (t *taskFlowContext) buildExecutor(id string) pipeline.TaskExecutor {
	return func(ctx context.Context, input map[string]any) (map[string]any, error) {
		t.record(id)
		if id == "A" && t.failTaskA {
			return nil, shared.NewDomainError("task A failed")
		}
		return map[string]any{"value": id}, nil
	}
}

func (t *taskFlowContext) tasksABCChain() error {
	t.hub = pipeline.NewTaskFlowHub()
	t.observed = nil

	specs := []pipeline.TaskFlowSpec{
		{ID: "A", Executor: t.buildExecutor("A")},
		{ID: "B", Dependencies: []string{"A"}, Executor: t.buildExecutor("B")},
		{ID: "C", Dependencies: []string{"B"}, Executor: t.buildExecutor("C")},
	}
	return t.hub.RegisterMany(specs)
}

func (t *taskFlowContext) taskAsExecutorFails() error {
	t.failTaskA = true
	return nil
}

func (t *taskFlowContext) iRunTheHubSelecting(triggerType, selected string) error {
	flags := map[string]bool{"A": true, "B": true, "C": true}
	results, err := t.hub.Run(context.Background(), []string{selected}, triggerType, flags, nil)
	t.lastResult = results
	return err
}

func (t *taskFlowContext) resultByID(id string) (pipeline.RunResult, bool) {
	for _, r := range t.lastResult {
		if r.TaskID == id {
			return r, true
		}
	}
	return pipeline.RunResult{}, false
}

func (t *taskFlowContext) theResultHasStatusFor(status, a, b, c string) error {
	for _, id := range []string{a, b, c} {
		r, ok := t.resultByID(id)
		if !ok {
			return fmt.Errorf("no result recorded for %q", id)
		}
		if r.Status != status {
			return fmt.Errorf("expected %q to have status %q, got %q", id, status, r.Status)
		}
	}
	return nil
}

func (t *taskFlowContext) aWasObservedBeforeBAndBBeforeC() error {
	pos := map[string]int{}
	for i, id := range t.observed {
		pos[id] = i
	}
	if pos["A"] >= pos["B"] || pos["B"] >= pos["C"] {
		return fmt.Errorf("expected execution order A, B, C; observed %v", t.observed)
	}
	return nil
}

func (t *taskFlowContext) theResultHasStatusFailedFor(id string) error {
	r, ok := t.resultByID(id)
	if !ok {
		return fmt.Errorf("no result recorded for %q", id)
	}
	if r.Status != "failed" {
		return fmt.Errorf("expected %q to have status failed, got %q", id, r.Status)
	}
	return nil
}

func (t *taskFlowContext) theResultHasStatusSkippedWithReasonFor(reason, id string) error {
	r, ok := t.resultByID(id)
	if !ok {
		return fmt.Errorf("no result recorded for %q", id)
	}
	if r.Status != "skipped" || r.Reason != reason {
		return fmt.Errorf("expected %q to be skipped with reason %q, got status=%q reason=%q", id, reason, r.Status, r.Reason)
	}
	return nil
}

func InitializeTaskFlowScenario(sc *godog.ScenarioContext) {
	t := &taskFlowContext{}

	sc.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		t.failTaskA = false
		t.lastResult = nil
		t.observed = nil
		return ctx, nil
	})

	sc.Given(`^tasks A with no dependencies, B depending on A, and C depending on B$`, t.tasksABCChain)
	sc.Given(`^task A's executor fails$`, t.taskAsExecutorFails)
	sc.When(`^I run the hub with trigger type "([^"]*)" selecting "([^"]*)"$`, t.iRunTheHubSelecting)
	sc.Then(`^the result has status "([^"]*)" for "([^"]*)", "([^"]*)" and "([^"]*)"$`, t.theResultHasStatusFor)
	sc.Then(`^"([^"]*)" was observed before "([^"]*)" and "([^"]*)" was observed before "([^"]*)"$`, func(a, b, c, d string) error {
		return t.aWasObservedBeforeBAndBBeforeC()
	})
	sc.Then(`^the result has status "failed" for "([^"]*)"$`, t.theResultHasStatusFailedFor)
	sc.Then(`^the result has status "skipped" with reason "([^"]*)" for "([^"]*)"$`, t.theResultHasStatusSkippedWithReasonFor)
}
