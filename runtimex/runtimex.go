// Package runtimex runs background services and the diagnostic HTTP endpoints
// until the context ends.
//
// Overview:
//   - Responsibility: Start services, serve metrics and health, shut down gracefully
//   - Key Types: Service, Endpoint, Options
//   - Concurrency Model: Services start and stop concurrently; each server has its own goroutine
//   - Error Semantics: Run returns start, listen and stop failures; a missing logger is INVALID_ARGUMENT
//   - Performance Notes: Endpoints sharing an address share one server
//
// Usage:
//
//	err := runtimex.Run(ctx, nil, runtimex.Options{
//		Logger:  logger,
//		Metrics: &runtimex.Endpoint{Addr: ":9090", Handler: provider.Handler()},
//		Health:  &runtimex.Endpoint{Addr: ":9090"},
//	})
package runtimex

import (
	"context"
	"net/http"
	"time"

	"go.eggybyte.com/logdecor/core/errors"
	"go.eggybyte.com/logdecor/core/log"
	"go.eggybyte.com/logdecor/httpx"
	"go.eggybyte.com/logdecor/runtimex/internal"
)

const (
	// MetricsPath serves the Metrics endpoint.
	MetricsPath = "/metrics"
	// HealthPath serves the Health endpoint.
	HealthPath = "/healthz"

	defaultShutdownTimeout = 15 * time.Second
)

// Service is a background component with a lifecycle.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Endpoint is an address and the handler served on it. A nil Health handler
// replies {"status":"ok"}.
type Endpoint struct {
	Addr    string
	Handler http.Handler
}

// Options configures Run.
type Options struct {
	Logger          log.Logger
	Metrics         *Endpoint
	Health          *Endpoint
	ShutdownTimeout time.Duration // default 15s
	// OnStarted receives the bound address per server ("metrics", "health",
	// or "metrics+health" when shared) once everything listens.
	OnStarted func(addrs map[string]string)
}

// Run starts services and endpoints, blocks until ctx is done, then stops them.
func Run(ctx context.Context, services []Service, opts Options) error {
	if opts.Logger == nil {
		return errors.Build(errors.CodeInvalidArgument).WithOp("runtimex.Run").WithMsg("logger is required").Err()
	}
	if opts.Metrics != nil && opts.Metrics.Handler == nil {
		return errors.Build(errors.CodeInvalidArgument).WithOp("runtimex.Run").WithMsg("metrics handler is required").Err()
	}
	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	svcs := make([]internal.Service, len(services))
	for i, s := range services {
		svcs[i] = s
	}
	rt := internal.NewRuntime(opts.Logger, svcs, servers(opts), timeout)

	if err := rt.Start(ctx); err != nil {
		return errors.Wrap(errors.CodeInternal, "runtimex.Run", err)
	}
	if opts.OnStarted != nil {
		opts.OnStarted(rt.Addrs())
	}

	<-ctx.Done()
	if err := rt.Stop(context.Background()); err != nil {
		return errors.Wrap(errors.CodeInternal, "runtimex.Run", err)
	}
	return nil
}

func healthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

// servers groups endpoints by address, one mux per address.
func servers(opts Options) []internal.Server {
	type group struct {
		name string
		mux  *http.ServeMux
	}
	var (
		order  []string
		groups = map[string]*group{}
	)
	add := func(name, addr, path string, h http.Handler) {
		g, ok := groups[addr]
		if !ok {
			g = &group{name: name, mux: http.NewServeMux()}
			g.mux.Handle("/", httpx.NotFoundHandler())
			groups[addr] = g
			order = append(order, addr)
		} else {
			g.name += "+" + name
		}
		g.mux.Handle(path, h)
	}

	if opts.Metrics != nil {
		add("metrics", opts.Metrics.Addr, MetricsPath, opts.Metrics.Handler)
	}
	if opts.Health != nil {
		h := opts.Health.Handler
		if h == nil {
			h = healthHandler()
		}
		add("health", opts.Health.Addr, HealthPath, h)
	}

	secure := httpx.SecureMiddleware(httpx.DefaultSecurityHeaders())
	out := make([]internal.Server, 0, len(order))
	for _, addr := range order {
		g := groups[addr]
		out = append(out, internal.Server{Name: g.name, Addr: addr, Handler: secure(g.mux)})
	}
	return out
}
