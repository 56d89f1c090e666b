package provisionx

import (
	"reflect"
	"sync"

	"go.eggybyte.com/logdecor/core/log"
)

// Host is the property bag a provisioned type embeds. Loggers are installed
// on it under their configured property name.
//
//	type FruitManager struct {
//		provisionx.Host
//		items []string
//	}
type Host struct {
	mu    sync.RWMutex
	props map[string]any
	typ   reflect.Type
}

// Property returns the value installed under name.
func (h *Host) Property(name string) (any, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	v, ok := h.props[name]
	return v, ok
}

// Set installs v under name, replacing any previous value.
func (h *Host) Set(name string, v any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.props == nil {
		h.props = make(map[string]any)
	}
	h.props[name] = v
}

// Logger returns the logger installed under name, if any.
func (h *Host) Logger(name string) (log.Logger, bool) {
	v, ok := h.Property(name)
	if !ok {
		return nil, false
	}
	logger, ok := v.(log.Logger)
	return logger, ok
}

// HostType reports the type the host was installed for, or nil before Install.
func (h *Host) HostType() reflect.Type {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.typ
}

func (h *Host) host() *Host { return h }

func (h *Host) install(t reflect.Type, name string, logger log.Logger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.props == nil {
		h.props = make(map[string]any)
	}
	h.typ = t
	h.props[name] = logger
}
