package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/andrescamacho/pipeline-go/internal/domain/pipeline"
	"github.com/andrescamacho/pipeline-go/internal/domain/shared"
	"github.com/cucumber/godog"
)

type executionTrackerContext struct {
	tracker     *pipeline.ExecutionTracker
	executionID string

	statusAfterCancel string
}

func (e *executionTrackerContext) anExecutionTracker() error {
	e.tracker = pipeline.NewExecutionTracker(shared.NewRealClock())
	return nil
}

func (e *executionTrackerContext) iLaunchAnExecutionThatSleeps(seconds int) error {
	e.executionID = e.tracker.Launch(context.Background(), "manual", "sleep_test", func(ctx context.Context, executionID string) (map[string]any, error) {
		select {
		case <-time.After(time.Duration(seconds) * time.Second):
			return map[string]any{"status": "completed"}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	// Give the runner goroutine a chance to flip queued -> running before
	// cancellation races it.
	time.Sleep(10 * time.Millisecond)
	return nil
}

func (e *executionTrackerContext) iCancelAllExecutions() error {
	e.tracker.CancelAll()
	rec, ok := e.tracker.GetStatus(e.executionID)
	if !ok {
		return fmt.Errorf("execution %s disappeared after CancelAll", e.executionID)
	}
	e.statusAfterCancel = rec.Status
	return nil
}

func (e *executionTrackerContext) theExecutionsStatusIs(status string) error {
	rec, ok := e.tracker.GetStatus(e.executionID)
	if !ok {
		return fmt.Errorf("execution %s not found", e.executionID)
	}
	if rec.Status != status {
		return fmt.Errorf("expected status %q, got %q", status, rec.Status)
	}
	return nil
}

func (e *executionTrackerContext) theExecutionsStatusDoesNotChangeAfterward() error {
	time.Sleep(50 * time.Millisecond)
	rec, ok := e.tracker.GetStatus(e.executionID)
	if !ok {
		return fmt.Errorf("execution %s not found", e.executionID)
	}
	if rec.Status != e.statusAfterCancel {
		return fmt.Errorf("status mutated after cancellation: was %q, now %q", e.statusAfterCancel, rec.Status)
	}
	return nil
}

func InitializeExecutionTrackerScenario(sc *godog.ScenarioContext) {
	e := &executionTrackerContext{}

	sc.Given(`^an execution tracker$`, e.anExecutionTracker)
	sc.When(`^I launch an execution whose run function sleeps for (\d+) seconds$`, e.iLaunchAnExecutionThatSleeps)
	sc.When(`^I cancel all executions$`, e.iCancelAllExecutions)
	sc.Then(`^the execution's status is "([^"]*)"$`, e.theExecutionsStatusIs)
	sc.Then(`^the execution's status does not change afterward$`, e.theExecutionsStatusDoesNotChangeAfterward)
}
