package internal

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

var processStart = time.Now()

// RegisterRuntimeMetrics adds observable gauges for goroutines, heap, GC cycles
// and process uptime. Values are read on collection.
func RegisterRuntimeMetrics(meter metric.Meter) error {
	goroutines, err := meter.Int64ObservableGauge(
		"process_runtime_go_goroutines",
		metric.WithDescription("Number of goroutines that currently exist"),
	)
	if err != nil {
		return err
	}
	heap, err := meter.Int64ObservableGauge(
		"process_runtime_go_memory_heap_bytes",
		metric.WithDescription("Heap memory in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}
	gcCount, err := meter.Int64ObservableCounter(
		"process_runtime_go_gc_count_total",
		metric.WithDescription("Total number of GC cycles completed"),
	)
	if err != nil {
		return err
	}
	uptime, err := meter.Float64ObservableGauge(
		"process_uptime_seconds",
		metric.WithDescription("Seconds since the process started"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(
		func(_ context.Context, o metric.Observer) error {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			o.ObserveInt64(goroutines, int64(runtime.NumGoroutine()))
			o.ObserveInt64(heap, int64(m.HeapAlloc))
			o.ObserveInt64(gcCount, int64(m.NumGC))
			o.ObserveFloat64(uptime, time.Since(processStart).Seconds())
			return nil
		},
		goroutines, heap, gcCount, uptime,
	)
	return err
}
