package workers_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/pipeline-go/internal/domain/pipeline/workers"
)

func TestConditionalCallbackWorker_DispatchesOnlyMatching(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	var dispatched []int

	w := workers.NewConditionalCallbackWorker(
		func(ctx context.Context) ([]int, error) { return items, nil },
		func(ctx context.Context, item int) error {
			dispatched = append(dispatched, item)
			return nil
		},
		func(item int) bool { return item%2 == 0 },
	)

	count, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []int{2, 4}, dispatched)
}

func TestConditionalCallbackWorker_NilConditionDefaultsToAlwaysTrue(t *testing.T) {
	items := []string{"a", "b"}
	var dispatched []string

	w := workers.NewConditionalCallbackWorker(
		func(ctx context.Context) ([]string, error) { return items, nil },
		func(ctx context.Context, item string) error {
			dispatched = append(dispatched, item)
			return nil
		},
		nil,
	)

	count, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, items, dispatched)
}

func TestConditionalCallbackWorker_StopsOnItemError(t *testing.T) {
	items := []int{1, 2, 3}
	processed := 0

	w := workers.NewConditionalCallbackWorker(
		func(ctx context.Context) ([]int, error) { return items, nil },
		func(ctx context.Context, item int) error {
			processed++
			if item == 2 {
				return errors.New("dispatch failed")
			}
			return nil
		},
		nil,
	)

	count, err := w.RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 2, processed)
}

func TestConditionalCallbackWorker_FetchErrorShortCircuits(t *testing.T) {
	w := workers.NewConditionalCallbackWorker(
		func(ctx context.Context) ([]int, error) { return nil, errors.New("fetch failed") },
		func(ctx context.Context, item int) error { return nil },
		nil,
	)

	count, err := w.RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, count)
}
