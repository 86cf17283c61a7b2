// Package metrics provides a pluggable, process-wide observability sink:
// a fixed event-type enumeration, a default in-process ring buffer with
// aggregation, and an optional OpenTelemetry exporter (spec §4.8).
package metrics

import (
	"sync/atomic"
	"time"
)

// EventType enumerates the fixed set of recordable events (spec §4.8).
type EventType string

const (
	EventChainInit      EventType = "chain_init"
	EventEntryAdd       EventType = "entry_add"
	EventChainVerify    EventType = "chain_verify"
	EventContentRead    EventType = "content_read"
	EventContentWrite   EventType = "content_write"
	EventRetrievalQuery EventType = "retrieval_query"
	EventIndexRebuild   EventType = "index_rebuild"
	EventAnchorSubmit   EventType = "anchor_submit"
	EventAnchorVerify   EventType = "anchor_verify"
)

// Event is one observability record.
type Event struct {
	Type       EventType
	Timestamp  time.Time
	DurationMS *float64
	Data       map[string]any
}

// Collector is the pluggable sink interface. Implementations MUST NOT
// panic; the package-level Record recovers from (and discards) a panic
// raised by a collector so a broken collector cannot corrupt core state
// (spec §7 propagation policy).
type Collector interface {
	Record(e Event)
}

// collectorSlot is the process-wide replaceable slot, swapped atomically
// (spec §5 "single atomic pointer swap on set_collector").
var collectorSlot atomic.Pointer[Collector]

// SetCollector replaces the process-wide sink. Passing nil disables
// collection with zero overhead.
func SetCollector(c Collector) {
	if c == nil {
		collectorSlot.Store(nil)
		return
	}
	collectorSlot.Store(&c)
}

// Record dispatches e to the current collector, if any, recovering from any
// panic raised by a misbehaving collector implementation.
func Record(e Event) {
	p := collectorSlot.Load()
	if p == nil {
		return
	}
	c := *p
	defer func() { _ = recover() }()
	c.Record(e)
}

// Timer measures elapsed time for an operation and records it on Stop.
type Timer struct {
	eventType EventType
	start     time.Time
	data      map[string]any
}

// StartTimer begins timing an operation of the given event type.
func StartTimer(t EventType, data map[string]any) Timer {
	return Timer{eventType: t, start: time.Now(), data: data}
}

// Stop records the elapsed duration against the process-wide collector.
func (tm Timer) Stop() {
	ms := float64(time.Since(tm.start).Microseconds()) / 1000.0
	Record(Event{Type: tm.eventType, Timestamp: time.Now().UTC(), DurationMS: &ms, Data: tm.data})
}
