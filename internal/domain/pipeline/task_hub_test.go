package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/pipeline-go/internal/domain/pipeline"
)

func echoExecutor(id string) pipeline.TaskExecutor {
	return func(ctx context.Context, input map[string]any) (map[string]any, error) {
		return map[string]any{"value": id}, nil
	}
}

func failingExecutor(message string) pipeline.TaskExecutor {
	return func(ctx context.Context, input map[string]any) (map[string]any, error) {
		return nil, assert.AnError
	}
}

func TestTaskFlowHub_RunsDependencyClosureInOrder(t *testing.T) {
	hub := pipeline.NewTaskFlowHub()
	require.NoError(t, hub.RegisterMany([]pipeline.TaskFlowSpec{
		{ID: "A", Executor: echoExecutor("A")},
		{ID: "B", Dependencies: []string{"A"}, Executor: echoExecutor("B")},
		{ID: "C", Dependencies: []string{"B"}, Executor: echoExecutor("C")},
	}))

	results, err := hub.Run(context.Background(), []string{"C"}, "t", map[string]bool{"A": true, "B": true, "C": true}, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	pos := map[string]int{}
	for i, r := range results {
		pos[r.TaskID] = i
		assert.Equal(t, "completed", r.Status, "task %s", r.TaskID)
	}
	assert.Less(t, pos["A"], pos["B"])
	assert.Less(t, pos["B"], pos["C"])
}

func TestTaskFlowHub_FailedDependencySkipsDependents(t *testing.T) {
	hub := pipeline.NewTaskFlowHub()
	require.NoError(t, hub.RegisterMany([]pipeline.TaskFlowSpec{
		{ID: "A", Executor: failingExecutor("boom")},
		{ID: "B", Dependencies: []string{"A"}, Executor: echoExecutor("B")},
		{ID: "C", Dependencies: []string{"B"}, Executor: echoExecutor("C")},
	}))

	results, err := hub.Run(context.Background(), []string{"C"}, "t", map[string]bool{"A": true, "B": true, "C": true}, nil)
	require.NoError(t, err)

	byID := map[string]pipeline.RunResult{}
	for _, r := range results {
		byID[r.TaskID] = r
	}

	assert.Equal(t, "failed", byID["A"].Status)
	assert.Equal(t, "skipped", byID["B"].Status)
	assert.Equal(t, "dependency_failed", byID["B"].Reason)
	assert.Equal(t, "skipped", byID["C"].Status)
	assert.Equal(t, "dependency_failed", byID["C"].Reason)
}

func TestTaskFlowHub_TriggerMismatchSkips(t *testing.T) {
	hub := pipeline.NewTaskFlowHub()
	require.NoError(t, hub.Register(pipeline.TaskFlowSpec{
		ID:           "A",
		TriggerTypes: map[string]struct{}{"cycle": {}},
		Executor:     echoExecutor("A"),
	}))

	results, err := hub.Run(context.Background(), []string{"A"}, "other", map[string]bool{"A": true}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "skipped", results[0].Status)
	assert.Equal(t, "trigger_mismatch", results[0].Reason)
}

func TestTaskFlowHub_DisabledTaskSkips(t *testing.T) {
	hub := pipeline.NewTaskFlowHub()
	require.NoError(t, hub.Register(pipeline.TaskFlowSpec{ID: "A", Executor: echoExecutor("A")}))

	results, err := hub.Run(context.Background(), []string{"A"}, "t", map[string]bool{"A": false}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "skipped", results[0].Status)
	assert.Equal(t, "disabled", results[0].Reason)
}

func TestTaskFlowHub_EnabledDefaultsTrueWhenFlagAbsent(t *testing.T) {
	hub := pipeline.NewTaskFlowHub()
	require.NoError(t, hub.Register(pipeline.TaskFlowSpec{ID: "A", Executor: echoExecutor("A")}))

	results, err := hub.Run(context.Background(), []string{"A"}, "t", map[string]bool{}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "completed", results[0].Status)
}

func TestTaskFlowHub_RegisterRejectsUnknownDependency(t *testing.T) {
	hub := pipeline.NewTaskFlowHub()
	err := hub.Register(pipeline.TaskFlowSpec{ID: "B", Dependencies: []string{"missing"}})
	require.Error(t, err)
}

func TestTaskFlowHub_RegisterRejectsCycle(t *testing.T) {
	hub := pipeline.NewTaskFlowHub()
	require.NoError(t, hub.Register(pipeline.TaskFlowSpec{ID: "X"}))
	require.NoError(t, hub.Register(pipeline.TaskFlowSpec{ID: "Y", Dependencies: []string{"X"}}))
	// Re-registering X to depend on Y closes the loop X -> Y -> X.
	err := hub.Register(pipeline.TaskFlowSpec{ID: "X", Dependencies: []string{"Y"}})
	require.Error(t, err)
}

func TestTaskFlowHub_RegisterIsIdempotentOverwrite(t *testing.T) {
	hub := pipeline.NewTaskFlowHub()
	require.NoError(t, hub.Register(pipeline.TaskFlowSpec{ID: "A", Description: "v1"}))
	require.NoError(t, hub.Register(pipeline.TaskFlowSpec{ID: "A", Description: "v2"}))

	flows := hub.ListFlows()
	require.Len(t, flows, 1)
	assert.Equal(t, "v2", flows[0].Description)
}

func TestTaskFlowHub_NoExecutorSkips(t *testing.T) {
	hub := pipeline.NewTaskFlowHub()
	require.NoError(t, hub.Register(pipeline.TaskFlowSpec{ID: "A"}))

	results, err := hub.Run(context.Background(), []string{"A"}, "t", map[string]bool{"A": true}, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "skipped", results[0].Status)
	assert.Equal(t, "no_executor", results[0].Reason)
}
