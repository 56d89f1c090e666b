// Package metax holds the property name that links provisioned loggers to
// instrumented methods.
//
// Overview:
//   - Responsibility: Publish the logger property name and resolve it at call time
//   - Key Types: Registry with a process-wide slot and a per-type map, Binding mode
//   - Concurrency Model: Registry methods are safe for concurrent use
//   - Error Semantics: No errors; unknown types resolve to the process slot
//   - Performance Notes: Resolve takes a read lock and one map lookup
//
// Usage:
//
//	metax.Default().Bind(reflect.TypeFor[FruitManager](), "myLogger")
//	name := metax.Default().Resolve(reflect.TypeFor[FruitManager]()) // "myLogger"
package metax

import (
	"reflect"
	"sync"
)

// DefaultPropertyName is the property under which loggers are installed
// unless a declaration says otherwise.
const DefaultPropertyName = "logger"

// Binding selects where a logger declaration publishes its property name.
type Binding int

const (
	// BindClass records the name for the declaring type only.
	BindClass Binding = iota
	// BindProcess overwrites the process-wide slot. The last declaration wins
	// for every type without its own binding.
	BindProcess
)

// String returns the configuration name of the binding.
func (b Binding) String() string {
	switch b {
	case BindClass:
		return "class"
	case BindProcess:
		return "process"
	default:
		return "unknown"
	}
}

// ParseBinding maps "class" and "process" to a Binding. Empty means class.
func ParseBinding(s string) (Binding, bool) {
	switch s {
	case "", "class":
		return BindClass, true
	case "process":
		return BindProcess, true
	default:
		return BindClass, false
	}
}

// Registry stores the process slot and the per-type property names.
type Registry struct {
	mu     sync.RWMutex
	slot   string
	byType map[reflect.Type]string
}

// New creates an isolated registry holding the defaults.
func New() *Registry {
	return &Registry{
		slot:   DefaultPropertyName,
		byType: make(map[reflect.Type]string),
	}
}

var defaultRegistry = New()

// Default returns the process-wide registry.
func Default() *Registry {
	return defaultRegistry
}

// Set overwrites the process slot. An empty name restores the default.
func (r *Registry) Set(name string) {
	if name == "" {
		name = DefaultPropertyName
	}
	r.mu.Lock()
	r.slot = name
	r.mu.Unlock()
}

// Get returns the process slot.
func (r *Registry) Get() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.slot
}

// Bind records name for t. A nil type is ignored.
func (r *Registry) Bind(t reflect.Type, name string) {
	if t == nil {
		return
	}
	if name == "" {
		name = DefaultPropertyName
	}
	r.mu.Lock()
	r.byType[t] = name
	r.mu.Unlock()
}

// Publish records name according to the binding mode.
func (r *Registry) Publish(b Binding, t reflect.Type, name string) {
	if b == BindProcess {
		r.Set(name)
		return
	}
	r.Bind(t, name)
}

// Resolve returns the name bound to t, or the process slot when t has none.
func (r *Registry) Resolve(t reflect.Type) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name, ok := r.byType[t]; ok {
		return name
	}
	return r.slot
}

// Reset drops every binding and restores the default slot.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.slot = DefaultPropertyName
	r.byType = make(map[reflect.Type]string)
	r.mu.Unlock()
}
