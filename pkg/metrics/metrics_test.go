package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestRingBufferWrapsAtCapacity(t *testing.T) {
	r := NewRingBuffer(2)
	r.Record(Event{Type: EventEntryAdd, Timestamp: time.Now()})
	r.Record(Event{Type: EventChainVerify, Timestamp: time.Now()})
	r.Record(Event{Type: EventIndexRebuild, Timestamp: time.Now()})

	events := r.Events()
	require.Len(t, events, 2)
	assert.Equal(t, EventChainVerify, events[0].Type)
	assert.Equal(t, EventIndexRebuild, events[1].Type)
}

func TestRingBufferSummaryAveragesDuration(t *testing.T) {
	r := NewRingBuffer(10)
	d1, d2 := 10.0, 30.0
	r.Record(Event{Type: EventEntryAdd, DurationMS: &d1})
	r.Record(Event{Type: EventEntryAdd, DurationMS: &d2})
	r.Record(Event{Type: EventChainVerify})

	summary := r.Summary()
	assert.Equal(t, 2, summary[EventEntryAdd].Count)
	assert.Equal(t, 20.0, summary[EventEntryAdd].AvgDurationMS)
	assert.Equal(t, 1, summary[EventChainVerify].Count)
	assert.Equal(t, 0.0, summary[EventChainVerify].AvgDurationMS)
}

func TestSetCollectorNilDisables(t *testing.T) {
	r := NewRingBuffer(10)
	SetCollector(r)
	defer SetCollector(nil)

	Record(Event{Type: EventEntryAdd})
	assert.Len(t, r.Events(), 1)

	SetCollector(nil)
	Record(Event{Type: EventEntryAdd})
	assert.Len(t, r.Events(), 1)
}

type panickyCollector struct{}

func (panickyCollector) Record(Event) { panic("boom") }

func TestRecordRecoversFromPanickingCollector(t *testing.T) {
	SetCollector(panickyCollector{})
	defer SetCollector(nil)

	assert.NotPanics(t, func() {
		Record(Event{Type: EventEntryAdd})
	})
}

func TestTimerStopRecordsDuration(t *testing.T) {
	r := NewRingBuffer(10)
	SetCollector(r)
	defer SetCollector(nil)

	tm := StartTimer(EventRetrievalQuery, map[string]any{"query": "x"})
	time.Sleep(time.Millisecond)
	tm.Stop()

	events := r.Events()
	require.Len(t, events, 1)
	assert.Equal(t, EventRetrievalQuery, events[0].Type)
	require.NotNil(t, events[0].DurationMS)
	assert.Greater(t, *events[0].DurationMS, 0.0)
}

func TestOTelCollectorRecordsCounterAndHistogram(t *testing.T) {
	provider, reader := NewManualReaderMeterProvider()
	defer provider.Shutdown(context.Background())

	coll, err := NewOTelCollector(provider.Meter("memchain-test"))
	require.NoError(t, err)

	d := 42.0
	coll.Record(Event{Type: EventEntryAdd, DurationMS: &d})

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.NotEmpty(t, rm.ScopeMetrics)
	require.NotEmpty(t, rm.ScopeMetrics[0].Metrics)
}
