// Package obsx exposes instrumented call timings as Prometheus metrics.
//
// Overview:
//   - Responsibility: Build an OpenTelemetry meter provider with Prometheus export
//     and record one histogram point per instrumented call
//   - Key Types: Options, Provider, CallRecorder
//   - Concurrency Model: Provider and CallRecorder are safe for concurrent use
//   - Error Semantics: NewProvider returns INVALID_ARGUMENT without a service name
//   - Performance Notes: Recording is a single histogram update; scraping reads runtime stats
//
// Usage:
//
//	provider, err := obsx.NewProvider(ctx, obsx.Options{ServiceName: "fruitdemo"})
//	rec, err := provider.CallRecorder()
//	add := instrumentx.Wrap(m, "addItems", m.doAddItems, instrumentx.WithObserver(rec))
//	http.Handle("/metrics", provider.Handler())
//	defer provider.Shutdown(ctx)
package obsx

import (
	"context"
	"net/http"
	"sync"
	"time"

	api "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"

	"go.eggybyte.com/logdecor/obsx/internal"
)

// MeterName is the instrumentation scope used for logdecor instruments.
const MeterName = "go.eggybyte.com/logdecor"

// CallDurationMetric is the name of the call duration histogram.
const CallDurationMetric = internal.CallDurationMetric

// Options configures NewProvider.
type Options struct {
	ServiceName    string
	ServiceVersion string
	ResourceAttrs  map[string]string
	SetGlobal      bool // install as the otel global meter provider
}

// Provider owns the meter provider and its Prometheus registry.
// Call Shutdown when done.
type Provider struct {
	impl *internal.Provider

	once     sync.Once
	recorder *CallRecorder
	recErr   error
}

// NewProvider creates a Provider.
func NewProvider(ctx context.Context, opts Options) (*Provider, error) {
	impl, err := internal.NewProvider(ctx, internal.ProviderOptions{
		ServiceName:    opts.ServiceName,
		ServiceVersion: opts.ServiceVersion,
		ResourceAttrs:  opts.ResourceAttrs,
		SetGlobal:      opts.SetGlobal,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{impl: impl}, nil
}

// MeterProvider returns the underlying sdk meter provider.
func (p *Provider) MeterProvider() *metric.MeterProvider {
	return p.impl.MeterProvider
}

// Meter returns a named meter from the provider.
func (p *Provider) Meter(name string) api.Meter {
	return p.impl.MeterProvider.Meter(name)
}

// Handler serves the /metrics endpoint.
func (p *Provider) Handler() http.Handler {
	return p.impl.Handler()
}

// EnableRuntimeMetrics registers goroutine, heap, GC and uptime gauges.
func (p *Provider) EnableRuntimeMetrics() error {
	return internal.RegisterRuntimeMetrics(p.Meter(MeterName + "/runtime"))
}

// CallRecorder returns the provider's shared call recorder, creating it on first use.
func (p *Provider) CallRecorder() (*CallRecorder, error) {
	p.once.Do(func() {
		p.recorder, p.recErr = NewCallRecorder(p.Meter(MeterName))
	})
	return p.recorder, p.recErr
}

// Shutdown stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.impl.Shutdown(ctx)
}

// CallRecorder feeds the call duration histogram. It satisfies instrumentx.Observer.
type CallRecorder struct {
	impl *internal.CallRecorder
}

// NewCallRecorder creates a recorder on an arbitrary meter.
func NewCallRecorder(meter api.Meter) (*CallRecorder, error) {
	impl, err := internal.NewCallRecorder(meter)
	if err != nil {
		return nil, err
	}
	return &CallRecorder{impl: impl}, nil
}

// ObserveCall records elapsed under the owner ("context") and method labels.
func (r *CallRecorder) ObserveCall(ctx context.Context, owner, method string, elapsed time.Duration) {
	r.impl.Record(ctx, owner, method, elapsed)
}
