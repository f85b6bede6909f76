package pipeline

import (
	"sync"
	"time"

	"github.com/andrescamacho/pipeline-go/internal/domain/shared"
)

const eventRingCap = 500

// EventSink receives every event appended to an EventLog, used to mirror
// events into a durable store. Sink errors are the sink's own problem;
// the log never fails an append over one.
type EventSink func(event Event)

// EventLog is the in-memory audit ring every manager emits into: the most
// recent eventRingCap events, newest last, plus an optional durable sink.
type EventLog struct {
	mu     sync.Mutex
	events []Event
	clock  shared.Clock
	sink   EventSink
}

// NewEventLog creates an empty ring. A nil clock falls back to real time.
func NewEventLog(clock shared.Clock) *EventLog {
	if clock == nil {
		clock = shared.NewRealClock()
	}
	return &EventLog{clock: clock}
}

// SetSink installs the durable mirror for subsequent appends.
func (l *EventLog) SetSink(sink EventSink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = sink
}

// Append records one event, evicting the oldest once the ring is full,
// and forwards it to the sink when one is installed.
func (l *EventLog) Append(level, message string, fields map[string]any) {
	event := Event{
		Timestamp: l.clock.Now().Format(time.RFC3339Nano),
		Level:     level,
		Message:   message,
		Context:   fields,
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	if len(l.events) > eventRingCap {
		l.events = l.events[len(l.events)-eventRingCap:]
	}
	sink := l.sink
	l.mu.Unlock()

	if sink != nil {
		sink(event)
	}
}

// Logger adapts the ring into the EventLogger seam managers are
// constructed with, chaining to next (usually a process logger) after
// recording.
func (l *EventLog) Logger(next EventLogger) EventLogger {
	return func(level, message string, fields map[string]any) {
		l.Append(level, message, fields)
		if next != nil {
			next(level, message, fields)
		}
	}
}

// List returns the most recent n events (all of them if n <= 0), newest
// last.
func (l *EventLog) List(n int) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 || n >= len(l.events) {
		out := make([]Event, len(l.events))
		copy(out, l.events)
		return out
	}
	out := make([]Event, n)
	copy(out, l.events[len(l.events)-n:])
	return out
}
