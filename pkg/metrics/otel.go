package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// OTelCollector adapts Record calls onto OpenTelemetry metric instruments:
// an event counter keyed by type, and a duration histogram for timed events.
// It is optional; the default sink is RingBuffer.
type OTelCollector struct {
	counter   metric.Int64Counter
	durations metric.Float64Histogram
}

// NewOTelCollector builds an OTelCollector against a caller-supplied meter,
// so exporter choice (OTLP, stdout, Prometheus) stays the caller's concern.
func NewOTelCollector(meter metric.Meter) (*OTelCollector, error) {
	counter, err := meter.Int64Counter("memchain.events.total",
		metric.WithDescription("Count of memory chain events by type"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: create event counter: %w", err)
	}

	durations, err := meter.Float64Histogram("memchain.event.duration",
		metric.WithDescription("Duration of timed memory chain events"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: create duration histogram: %w", err)
	}

	return &OTelCollector{counter: counter, durations: durations}, nil
}

// Record implements Collector.
func (o *OTelCollector) Record(e Event) {
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("event.type", string(e.Type)))
	o.counter.Add(ctx, 1, attrs)
	if e.DurationMS != nil {
		o.durations.Record(ctx, *e.DurationMS, attrs)
	}
}

// NewManualReaderMeterProvider builds an in-process meter provider backed by
// an sdkmetric.ManualReader, for tests and for callers that want to pull
// aggregated values without standing up an OTLP exporter.
func NewManualReaderMeterProvider() (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return provider, reader
}
