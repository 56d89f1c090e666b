// Package asyncx provides Future, the deferred-completion result returned by
// asynchronous methods.
//
// Overview:
//   - Responsibility: Carry a value or error that becomes available later
//   - Key Types: Future[T], Deferred (the capability instrumentx detects)
//   - Concurrency Model: A Future settles once; Await is safe from any goroutine
//   - Error Semantics: Rejections carry the producer's error unchanged; panics in Go become INTERNAL errors
//   - Performance Notes: Continuations run inline on the settling goroutine
//
// Usage:
//
//	f := asyncx.Go(func() ([]string, error) { return loadFruits() })
//	fruits, err := f.Await(ctx)
package asyncx

import (
	"context"
	"sync"

	"go.eggybyte.com/logdecor/core/errors"
)

// Deferred is implemented by results that complete after the call returns.
// A method whose first result implements Deferred is instrumented as asynchronous.
type Deferred interface {
	// Tap returns a result of the same concrete type that settles after fn ran.
	// fn runs only on success; an error from fn rejects the returned result.
	// Rejections skip fn and propagate unchanged.
	Tap(fn func() error) Deferred
}

// Future is a value of type T that becomes available later.
type Future[T any] struct {
	mu      sync.Mutex
	done    chan struct{}
	settled bool
	val     T
	err     error
	waiters []func(T, error)
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Pending returns an unsettled future with its resolve and reject functions.
// Only the first settlement counts.
func Pending[T any]() (f *Future[T], resolve func(T), reject func(error)) {
	f = newFuture[T]()
	return f, func(v T) { f.settle(v, nil) }, func(err error) {
		var zero T
		f.settle(zero, err)
	}
}

// Resolved returns a future already settled with v.
func Resolved[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.settle(v, nil)
	return f
}

// Rejected returns a future already settled with err.
func Rejected[T any](err error) *Future[T] {
	f := newFuture[T]()
	var zero T
	f.settle(zero, err)
	return f
}

// Go runs fn on a new goroutine and settles the returned future with its result.
// A panic in fn rejects the future with an INTERNAL error.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	go func() {
		v, err := guard("asyncx.Go", fn)
		f.settle(v, err)
	}()
	return f
}

// guard calls fn and turns a panic into an INTERNAL error attributed to op.
func guard[T any](op string, fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v = zero
			err = errors.Build(errors.CodeInternal).
				WithOp(op).
				WithMsgf("panic: %v", r).
				Err()
		}
	}()
	return fn()
}

// Then returns a future settled with fn's result once f resolves.
// A rejection of f propagates without calling fn. A panic in fn rejects
// the returned future.
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	next, resolve, reject := Pending[U]()
	f.onSettle(func(v T, err error) {
		if err != nil {
			reject(err)
			return
		}
		u, err := guard("asyncx.Then", func() (U, error) { return fn(v) })
		if err != nil {
			reject(err)
			return
		}
		resolve(u)
	})
	return next
}

// Tap implements Deferred.
func (f *Future[T]) Tap(fn func() error) Deferred {
	next, resolve, reject := Pending[T]()
	f.onSettle(func(v T, err error) {
		if err != nil {
			reject(err)
			return
		}
		_, err = guard("asyncx.Tap", func() (struct{}, error) { return struct{}{}, fn() })
		if err != nil {
			reject(err)
			return
		}
		resolve(v)
	})
	return next
}

// Await blocks until the future settles or ctx is done.
// Giving up on ctx does not stop the underlying computation.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed when the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// settle records the outcome and runs continuations in registration order.
func (f *Future[T]) settle(v T, err error) {
	f.mu.Lock()
	if f.settled {
		f.mu.Unlock()
		return
	}
	f.settled = true
	f.val, f.err = v, err
	waiters := f.waiters
	f.waiters = nil
	close(f.done)
	f.mu.Unlock()

	for _, w := range waiters {
		w(v, err)
	}
}

// onSettle registers fn, or runs it now when f has already settled.
func (f *Future[T]) onSettle(fn func(T, error)) {
	f.mu.Lock()
	if !f.settled {
		f.waiters = append(f.waiters, fn)
		f.mu.Unlock()
		return
	}
	v, err := f.val, f.err
	f.mu.Unlock()
	fn(v, err)
}
