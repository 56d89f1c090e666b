package internal

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CallDurationMetric is the histogram fed by instrumented calls.
const CallDurationMetric = "instrumented_call_duration_ms"

// CallRecorder records one histogram point per emitted call record.
type CallRecorder struct {
	hist metric.Float64Histogram
}

// NewCallRecorder creates the call duration histogram on meter.
func NewCallRecorder(meter metric.Meter) (*CallRecorder, error) {
	hist, err := meter.Float64Histogram(
		CallDurationMetric,
		metric.WithDescription("Duration of instrumented calls in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	if err != nil {
		return nil, err
	}
	return &CallRecorder{hist: hist}, nil
}

// Record adds elapsed, in fractional milliseconds, under the owner and method labels.
func (r *CallRecorder) Record(ctx context.Context, owner, method string, elapsed time.Duration) {
	ms := float64(elapsed) / float64(time.Millisecond)
	r.hist.Record(ctx, ms, metric.WithAttributes(
		attribute.String("context", owner),
		attribute.String("method", method),
	))
}
