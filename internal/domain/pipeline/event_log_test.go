package pipeline_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrescamacho/pipeline-go/internal/domain/pipeline"
	"github.com/andrescamacho/pipeline-go/internal/domain/shared"
)

func TestEventLog_AppendAndList(t *testing.T) {
	log := pipeline.NewEventLog(shared.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))

	log.Append("INFO", "started", map[string]any{"component": "dex"})
	log.Append("WARN", "persist failed", nil)

	events := log.List(0)
	require.Len(t, events, 2)
	assert.Equal(t, "started", events[0].Message)
	assert.Equal(t, "WARN", events[1].Level)
}

func TestEventLog_RingEvictsOldestPast500(t *testing.T) {
	log := pipeline.NewEventLog(shared.NewMockClock(time.Now()))

	for i := 0; i < 510; i++ {
		log.Append("INFO", fmt.Sprintf("event-%d", i), nil)
	}

	events := log.List(0)
	require.Len(t, events, 500)
	assert.Equal(t, "event-10", events[0].Message)
	assert.Equal(t, "event-509", events[len(events)-1].Message)
}

func TestEventLog_SinkReceivesEveryAppend(t *testing.T) {
	log := pipeline.NewEventLog(shared.NewMockClock(time.Now()))

	var seen []pipeline.Event
	log.SetSink(func(event pipeline.Event) { seen = append(seen, event) })

	log.Append("INFO", "a", nil)
	log.Append("ERROR", "b", nil)

	require.Len(t, seen, 2)
	assert.Equal(t, "ERROR", seen[1].Level)
}

func TestEventLog_LoggerAdapterRecordsAndChains(t *testing.T) {
	log := pipeline.NewEventLog(shared.NewMockClock(time.Now()))

	var chained int
	logger := log.Logger(func(level, message string, fields map[string]any) { chained++ })

	logger("INFO", "hello", nil)

	assert.Equal(t, 1, chained)
	require.Len(t, log.List(0), 1)
}
