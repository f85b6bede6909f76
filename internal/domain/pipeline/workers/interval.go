// Package workers holds the generic worker run-loop primitives shared by
// every manager: a fixed-interval loop, a fetch-then-dispatch loop, a
// feed cache with threshold gating, and a composer that runs several
// loops as one lifecycle unit.
package workers

import (
	"context"
	"sync/atomic"

	"github.com/andrescamacho/pipeline-go/internal/domain/shared"
)

// IntervalWorker runs callback on a fixed interval for as long as isRunning
// reports true, sleeping via the injected clock so tests never wait on a
// real timer. The interval is an atomic so the owning manager can update
// it live while the loop goroutine is running; the next sleep observes
// the new value.
type IntervalWorker struct {
	Callback           func(ctx context.Context) error
	Name               string
	MinIntervalSeconds int
	Clock              shared.Clock

	interval atomic.Int64
}

// NewIntervalWorker returns a worker with the minimum interval floor the
// original enforces (1 second) applied when MinIntervalSeconds is zero.
func NewIntervalWorker(callback func(ctx context.Context) error, intervalSeconds int, name string, clock shared.Clock) *IntervalWorker {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	w := &IntervalWorker{
		Callback:           callback,
		Name:               name,
		MinIntervalSeconds: 1,
		Clock:              clock,
	}
	w.interval.Store(int64(intervalSeconds))
	return w
}

// Interval returns the current configured interval in seconds.
func (w *IntervalWorker) Interval() int {
	return int(w.interval.Load())
}

// SetInterval updates the interval live; the loop's next sleep uses it.
func (w *IntervalWorker) SetInterval(seconds int) {
	w.interval.Store(int64(seconds))
}

// RunLoop calls Callback repeatedly while isRunning() is true, recovering
// and logging any error the callback returns so one bad tick never kills
// the loop, then sleeping for max(MinIntervalSeconds, Interval()).
func (w *IntervalWorker) RunLoop(ctx context.Context, isRunning func() bool) {
	for isRunning() {
		if ctx.Err() != nil {
			return
		}
		if err := w.runOnce(ctx); err != nil {
			shared.LoggerFromContext(ctx).Log("error", w.Name+": run loop error", map[string]any{"error": err.Error()})
		}

		select {
		case <-ctx.Done():
			return
		default:
		}

		// Interval is re-read on every tick (rather than captured once before
		// the loop) so a live SetInterval takes effect on the very next sleep.
		interval := w.Interval()
		if w.MinIntervalSeconds > interval {
			interval = w.MinIntervalSeconds
		}
		w.Clock.Sleep(secondsToDuration(interval))
	}
}

func (w *IntervalWorker) runOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = shared.NewDomainError(w.Name + ": callback panicked")
		}
	}()
	return w.Callback(ctx)
}
