// Package instrumentx wraps methods so that every successful call is timed and
// reported through the logger installed on the owning value.
//
// Overview:
//   - Responsibility: Build same-signature wrappers that time a call and emit one info record
//   - Key Types: Owner, Mode, FormatData, Observer, Option
//   - Concurrency Model: Wrappers hold no mutable state and are safe for concurrent use
//   - Error Semantics: Missing loggers surface as NOT_FOUND at call time; original failures pass through untouched
//   - Performance Notes: One reflect call per invocation; lookups happen at call time
//
// Usage:
//
//	m.addItems = instrumentx.Wrap(m, "addItems", m.doAddItems,
//		instrumentx.WithFormat(func(d instrumentx.FormatData) string {
//			return "Executing " + d.Method + "(" + d.Join(",") + ")"
//		}))
package instrumentx

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"go.eggybyte.com/logdecor/asyncx"
	"go.eggybyte.com/logdecor/core/errors"
	"go.eggybyte.com/logdecor/core/log"
	"go.eggybyte.com/logdecor/metax"
)

// Owner is the value a wrapped method belongs to. provisionx.Host implements it.
type Owner interface {
	Property(name string) (any, bool)
	HostType() reflect.Type
}

// Mode selects the timing strategy of a wrapper.
type Mode int

const (
	// ModeAuto treats a func whose first result implements asyncx.Deferred as asynchronous.
	ModeAuto Mode = iota
	// ModeSync stops the clock when the func returns.
	ModeSync
	// ModeAsync stops the clock when the returned Deferred resolves.
	ModeAsync
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeSync:
		return "sync"
	case ModeAsync:
		return "async"
	default:
		return "auto"
	}
}

// FormatData is passed to a format function.
type FormatData struct {
	Method string
	Args   []any // positional arguments, variadic ones flattened
}

// Join renders the arguments with fmt.Sprint and joins them with sep.
func (d FormatData) Join(sep string) string {
	parts := make([]string, len(d.Args))
	for i, a := range d.Args {
		parts[i] = fmt.Sprint(a)
	}
	return strings.Join(parts, sep)
}

// FormatFunc builds the record message for a call.
type FormatFunc func(FormatData) string

// Observer is notified after each record is emitted.
type Observer interface {
	ObserveCall(ctx context.Context, owner, method string, elapsed time.Duration)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, owner, method string, elapsed time.Duration)

// ObserveCall implements Observer.
func (f ObserverFunc) ObserveCall(ctx context.Context, owner, method string, elapsed time.Duration) {
	f(ctx, owner, method, elapsed)
}

type options struct {
	format    FormatFunc
	mode      Mode
	observers []Observer
	registry  *metax.Registry
}

// Option configures a wrapper.
type Option func(*options)

// WithFormat sets the message builder. Without it the message is "<method>()".
func WithFormat(f FormatFunc) Option {
	return func(o *options) {
		o.format = f
	}
}

// WithMode overrides execution mode detection.
func WithMode(m Mode) Option {
	return func(o *options) {
		o.mode = m
	}
}

// WithObserver adds an observer. Nil observers are ignored.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithRegistry resolves property names through r instead of metax.Default().
func WithRegistry(r *metax.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

var (
	deferredType = reflect.TypeFor[asyncx.Deferred]()
	errorType    = reflect.TypeFor[error]()
	contextType  = reflect.TypeFor[context.Context]()
)

// Wrap returns a function of the same type as fn that times each call and
// logs it through the logger installed on owner.
//
// Wrap panics when fn is not a non-nil func, when owner is nil, or when
// ModeAsync is forced on a func whose first result is not an asyncx.Deferred.
func Wrap[F any](owner Owner, method string, fn F, opts ...Option) F {
	o := options{registry: metax.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	ft := reflect.TypeFor[F]()
	fv := reflect.ValueOf(fn)
	switch {
	case ft.Kind() != reflect.Func:
		panic(wrapError(method, "%s is not a func", ft))
	case fv.IsNil():
		panic(wrapError(method, "nil func"))
	case owner == nil:
		panic(wrapError(method, "nil owner"))
	}

	w := &wrapper{
		owner:  owner,
		method: method,
		fn:     fv,
		typ:    ft,
		async:  isAsync(ft, o.mode, method),
		opts:   o,
	}
	return reflect.MakeFunc(ft, w.call).Interface().(F)
}

func wrapError(method, format string, args ...any) error {
	return errors.Build(errors.CodeInvalidArgument).
		WithOp("instrumentx.Wrap").
		WithMsgf(format, args...).
		WithDetails("method", method).
		Err()
}

func isAsync(ft reflect.Type, mode Mode, method string) bool {
	deferred := ft.NumOut() > 0 && ft.Out(0).Implements(deferredType)
	switch mode {
	case ModeSync:
		return false
	case ModeAsync:
		if !deferred {
			panic(wrapError(method, "async mode needs an asyncx.Deferred first result, got %s", ft))
		}
		return true
	default:
		return deferred
	}
}

type wrapper struct {
	owner  Owner
	method string
	fn     reflect.Value
	typ    reflect.Type
	async  bool
	opts   options
}

func (w *wrapper) call(args []reflect.Value) []reflect.Value {
	start := time.Now()
	var out []reflect.Value
	if w.typ.IsVariadic() {
		out = w.fn.CallSlice(args)
	} else {
		out = w.fn.Call(args)
	}
	if w.failed(out) {
		return out
	}
	if w.async {
		return w.deferEmit(args, start, out)
	}

	if err := w.emit(contextOf(args), args, time.Since(start)); err != nil {
		if !w.returnsError() {
			panic(err)
		}
		out[len(out)-1] = reflect.ValueOf(&err).Elem()
	}
	return out
}

// deferEmit replaces the returned Deferred with one that settles after the record is emitted.
func (w *wrapper) deferEmit(args []reflect.Value, start time.Time, out []reflect.Value) []reflect.Value {
	if isNil(out[0]) {
		return out
	}
	ctx := contextOf(args)
	next := out[0].Interface().(asyncx.Deferred).Tap(func() error {
		return w.emit(ctx, args, time.Since(start))
	})

	res := reflect.New(w.typ.Out(0)).Elem()
	res.Set(reflect.ValueOf(next))
	out[0] = res
	return out
}

// emit logs one record for a completed call.
func (w *wrapper) emit(ctx context.Context, args []reflect.Value, elapsed time.Duration) error {
	ownerType := w.owner.HostType()
	name := w.opts.registry.Resolve(ownerType)

	v, found := w.owner.Property(name)
	logger, ok := v.(log.Logger)
	if !found || !ok {
		return errors.Build(errors.CodeNotFound).
			WithOp("instrumentx.emit").
			WithMsgf("no logger at property %q for %s", name, w.method).
			WithDetails("property", name, "method", w.method).
			Err()
	}

	msg := w.method + "()"
	if w.opts.format != nil {
		msg = w.opts.format(FormatData{Method: w.method, Args: w.flatten(args)})
	}
	logger.Info(msg, log.Str("responseTime", fmt.Sprintf("%dms", elapsed.Milliseconds())))

	if len(w.opts.observers) > 0 {
		owner := ""
		if ownerType != nil {
			owner = ownerType.Name()
		}
		for _, obs := range w.opts.observers {
			obs.ObserveCall(ctx, owner, w.method, elapsed)
		}
	}
	return nil
}

// failed reports whether the original call ended with a non-nil error result.
func (w *wrapper) failed(out []reflect.Value) bool {
	return w.returnsError() && !out[len(out)-1].IsNil()
}

func (w *wrapper) returnsError() bool {
	n := w.typ.NumOut()
	return n > 0 && w.typ.Out(n-1) == errorType
}

// flatten returns the call arguments with the variadic slice expanded.
func (w *wrapper) flatten(args []reflect.Value) []any {
	flat := make([]any, 0, len(args))
	for i, a := range args {
		if w.typ.IsVariadic() && i == len(args)-1 {
			for j := 0; j < a.Len(); j++ {
				flat = append(flat, a.Index(j).Interface())
			}
			continue
		}
		flat = append(flat, a.Interface())
	}
	return flat
}

// contextOf returns the first non-nil context argument, or context.Background.
func contextOf(args []reflect.Value) context.Context {
	for _, a := range args {
		if a.Type().Implements(contextType) && !isNil(a) {
			if ctx, ok := a.Interface().(context.Context); ok {
				return ctx
			}
		}
	}
	return context.Background()
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}
