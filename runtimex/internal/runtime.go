// Package internal contains the runtime implementation.
package internal

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"go.eggybyte.com/logdecor/core/log"
)

// Service is started before and stopped after the servers.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Server is one listening address with its handler.
type Server struct {
	Name    string
	Addr    string
	Handler http.Handler
}

type running struct {
	name string
	srv  *http.Server
	ln   net.Listener
}

// Runtime manages the lifecycle of services and servers.
type Runtime struct {
	logger          log.Logger
	services        []Service
	servers         []Server
	shutdownTimeout time.Duration

	mu      sync.Mutex
	running []running
}

// NewRuntime creates a runtime. Nothing starts until Start.
func NewRuntime(logger log.Logger, services []Service, servers []Server, shutdownTimeout time.Duration) *Runtime {
	return &Runtime{
		logger:          logger,
		services:        services,
		servers:         servers,
		shutdownTimeout: shutdownTimeout,
	}
}

// Start starts services concurrently, then binds every server. A listen
// failure closes the listeners already bound and is returned.
func (r *Runtime) Start(ctx context.Context) error {
	r.logger.Verbose("starting runtime", log.Int("services", len(r.services)))

	var wg sync.WaitGroup
	errCh := make(chan error, len(r.services))
	for i, svc := range r.services {
		wg.Add(1)
		go func(idx int, svc Service) {
			defer wg.Done()
			if err := svc.Start(ctx); err != nil {
				r.logger.Error(err, "service start failed", log.Int("index", idx))
				errCh <- fmt.Errorf("service %d start failed: %w", idx, err)
			}
		}(i, svc)
	}
	wg.Wait()
	close(errCh)
	if err, ok := <-errCh; ok {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.servers {
		ln, err := net.Listen("tcp", s.Addr)
		if err != nil {
			for _, rs := range r.running {
				rs.ln.Close()
			}
			r.running = nil
			return fmt.Errorf("%s server listen %s: %w", s.Name, s.Addr, err)
		}
		srv := &http.Server{Handler: s.Handler, ReadHeaderTimeout: 5 * time.Second}
		r.running = append(r.running, running{name: s.Name, srv: srv, ln: ln})

		go func(name string) {
			if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
				r.logger.Error(err, "server failed", log.Str("server", name))
			}
		}(s.Name)
		r.logger.Info("server listening", log.Str("server", s.Name), log.Str("addr", ln.Addr().String()))
	}
	return nil
}

// Addrs returns the bound address of each running server by name.
func (r *Runtime) Addrs() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.running))
	for _, rs := range r.running {
		out[rs.name] = rs.ln.Addr().String()
	}
	return out
}

// Stop shuts servers down, then stops services, all within the shutdown timeout.
// Service stop errors are logged; the first one is returned.
func (r *Runtime) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.shutdownTimeout)
	defer cancel()

	r.mu.Lock()
	servers := r.running
	r.running = nil
	r.mu.Unlock()

	for _, rs := range servers {
		if err := rs.srv.Shutdown(ctx); err != nil {
			r.logger.Error(err, "server shutdown failed", log.Str("server", rs.name))
		}
	}

	var (
		wg    sync.WaitGroup
		errMu sync.Mutex
		first error
	)
	for i, svc := range r.services {
		wg.Add(1)
		go func(idx int, svc Service) {
			defer wg.Done()
			if err := svc.Stop(ctx); err != nil {
				r.logger.Error(err, "service stop failed", log.Int("index", idx))
				errMu.Lock()
				if first == nil {
					first = fmt.Errorf("service %d stop failed: %w", idx, err)
				}
				errMu.Unlock()
			}
		}(i, svc)
	}
	wg.Wait()

	r.logger.Verbose("runtime stopped")
	return first
}
