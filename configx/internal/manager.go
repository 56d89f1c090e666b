// Package internal provides internal implementation for the configx package.
package internal

import (
	"context"
	"fmt"
	"sync"

	"go.eggybyte.com/logdecor/core/log"
)

// ManagerImpl merges configuration sources once per Load.
type ManagerImpl struct {
	logger     log.Logger
	sources    []Source
	snapshot   map[string]string
	mu         sync.RWMutex
	updateSubs map[int]func(map[string]string)
	subsMu     sync.RWMutex
	nextSubID  int
}

// NewManager creates a new configuration manager.
func NewManager(logger log.Logger, sources []Source) (*ManagerImpl, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("at least one source is required")
	}

	return &ManagerImpl{
		logger:     logger,
		sources:    sources,
		snapshot:   make(map[string]string),
		updateSubs: make(map[int]func(map[string]string)),
	}, nil
}

// Load reads every source and replaces the snapshot. Later sources take
// precedence; empty values never override.
func (m *ManagerImpl) Load(ctx context.Context) error {
	merged := make(map[string]string)

	for _, source := range m.sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		snapshot, err := source.Load(ctx)
		if err != nil {
			return fmt.Errorf("source %s: %w", source.Name(), err)
		}

		for k, v := range snapshot {
			if v != "" {
				merged[k] = v
			}
		}
	}

	m.mu.Lock()
	m.snapshot = merged
	m.mu.Unlock()

	m.logger.Verbose("configuration loaded", log.Int("keys", len(merged)), log.Int("sources", len(m.sources)))
	m.notifySubscribers(merged)
	return nil
}

// notifySubscribers calls every subscriber synchronously with a private copy.
func (m *ManagerImpl) notifySubscribers(snapshot map[string]string) {
	m.subsMu.RLock()
	subs := make([]func(map[string]string), 0, len(m.updateSubs))
	for id := 0; id < m.nextSubID; id++ {
		if sub, ok := m.updateSubs[id]; ok {
			subs = append(subs, sub)
		}
	}
	m.subsMu.RUnlock()

	for _, sub := range subs {
		sub(copyMap(snapshot))
	}
}

// Snapshot returns a copy of the current configuration.
func (m *ManagerImpl) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyMap(m.snapshot)
}

// Value returns the value for a key and whether it exists.
func (m *ManagerImpl) Value(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, exists := m.snapshot[key]
	return value, exists
}

// Bind decodes the current snapshot into target.
func (m *ManagerImpl) Bind(target any) error {
	if target == nil {
		return fmt.Errorf("target cannot be nil")
	}
	return BindToStruct(m.Snapshot(), target)
}

// OnLoad subscribes to snapshots produced by later Load calls.
// Subscribers run in subscription order. Returns an unsubscribe function.
func (m *ManagerImpl) OnLoad(fn func(snapshot map[string]string)) func() {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()

	subID := m.nextSubID
	m.nextSubID++
	m.updateSubs[subID] = fn

	return func() {
		m.subsMu.Lock()
		defer m.subsMu.Unlock()
		delete(m.updateSubs, subID)
	}
}

func copyMap(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
