package workers

import "context"

// ConditionalCallbackWorker fetches a batch of items and dispatches each
// one passing condition to onItem, in order, synchronously.
type ConditionalCallbackWorker[T any] struct {
	FetchItems func(ctx context.Context) ([]T, error)
	OnItem     func(ctx context.Context, item T) error
	Condition  func(item T) bool
}

// NewConditionalCallbackWorker returns a worker whose Condition defaults to
// always-true when nil is passed.
func NewConditionalCallbackWorker[T any](
	fetchItems func(ctx context.Context) ([]T, error),
	onItem func(ctx context.Context, item T) error,
	condition func(item T) bool,
) *ConditionalCallbackWorker[T] {
	if condition == nil {
		condition = func(T) bool { return true }
	}
	return &ConditionalCallbackWorker[T]{
		FetchItems: fetchItems,
		OnItem:     onItem,
		Condition:  condition,
	}
}

// RunOnce fetches items once and dispatches every item passing Condition,
// returning how many were dispatched.
func (w *ConditionalCallbackWorker[T]) RunOnce(ctx context.Context) (int, error) {
	items, err := w.FetchItems(ctx)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, item := range items {
		if !w.Condition(item) {
			continue
		}
		if err := w.OnItem(ctx, item); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}
