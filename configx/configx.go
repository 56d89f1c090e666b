// Package configx loads logger configuration from the environment and files.
//
// Overview:
//   - Responsibility: Merge configuration sources and bind them into tagged structs
//   - Key Types: Source interface, Manager interface, LoggerConfig
//   - Concurrency Model: Manager is safe for concurrent use, sources must be thread-safe
//   - Error Semantics: Functions return wrapped errors for read, parse, bind, and validation failures
//   - Performance Notes: Sources are read once per Load; reads hit an in-memory snapshot
//
// Usage:
//
//	manager, err := configx.NewManager(ctx, configx.Options{
//	  Logger: logger,
//	  Sources: []configx.Source{
//	    configx.NewFileSource("logdecor.yaml", configx.FileOptions{Optional: true}),
//	    configx.NewEnvSource(configx.EnvOptions{}),
//	  },
//	})
//	var cfg configx.LoggerConfig
//	err = manager.Bind(&cfg)
package configx

import (
	"context"
	"fmt"

	"go.eggybyte.com/logdecor/configx/internal"
	"go.eggybyte.com/logdecor/core/log"
)

// Source describes a configuration source.
// Implementations must be thread-safe and honor context cancellation.
type Source interface {
	// Name identifies the source in errors.
	Name() string

	// Load reads the current configuration snapshot as flat key-value pairs.
	Load(ctx context.Context) (map[string]string, error)
}

// Manager merges configuration sources and provides unified access.
// Later sources take precedence.
type Manager interface {
	// Snapshot returns a copy of the current merged configuration.
	Snapshot() map[string]string

	// Value returns the value for a key and whether it exists.
	Value(key string) (string, bool)

	// Bind decodes the configuration into a struct with env and default tags.
	Bind(target any) error

	// Reload reads every source again and replaces the snapshot.
	Reload(ctx context.Context) error

	// OnReload subscribes to snapshots produced by Reload.
	// Returns an unsubscribe function.
	OnReload(fn func(snapshot map[string]string)) (unsubscribe func())
}

// Options holds configuration for the manager.
type Options struct {
	Logger  log.Logger // Logger for configuration operations
	Sources []Source   // Configuration sources (later sources override earlier ones)
}

type manager struct {
	impl *internal.ManagerImpl
}

// NewManager creates a configuration manager and performs the initial load.
func NewManager(ctx context.Context, opts Options) (Manager, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if len(opts.Sources) == 0 {
		return nil, fmt.Errorf("at least one source is required")
	}

	internalSources := make([]internal.Source, len(opts.Sources))
	for i, src := range opts.Sources {
		internalSources[i] = src
	}

	impl, err := internal.NewManager(opts.Logger, internalSources)
	if err != nil {
		return nil, err
	}

	if err := impl.Load(ctx); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	return &manager{impl: impl}, nil
}

func (m *manager) Snapshot() map[string]string {
	return m.impl.Snapshot()
}

func (m *manager) Value(key string) (string, bool) {
	return m.impl.Value(key)
}

func (m *manager) Bind(target any) error {
	if target == nil {
		return fmt.Errorf("target cannot be nil")
	}
	return m.impl.Bind(target)
}

func (m *manager) Reload(ctx context.Context) error {
	if err := m.impl.Load(ctx); err != nil {
		return fmt.Errorf("reload configuration: %w", err)
	}
	return nil
}

func (m *manager) OnReload(fn func(snapshot map[string]string)) func() {
	return m.impl.OnLoad(fn)
}

// EnvOptions configures environment variable source behavior.
type EnvOptions struct {
	Prefix    string
	Lowercase bool
	Uppercase bool
}

// FileOptions configures file source behavior.
type FileOptions struct {
	Format   string // "json" or "yaml"; detected from the extension when empty
	Optional bool   // Treat a missing file as empty
}

// NewEnvSource creates an environment variable configuration source.
func NewEnvSource(opts EnvOptions) Source {
	return internal.NewEnvSource(internal.EnvOptions{
		Prefix:    opts.Prefix,
		Lowercase: opts.Lowercase,
		Uppercase: opts.Uppercase,
	})
}

// NewFileSource creates a YAML or JSON file configuration source.
func NewFileSource(path string, opts FileOptions) Source {
	return internal.NewFileSource(path, internal.FileOptions{
		Format:   opts.Format,
		Optional: opts.Optional,
	})
}

// DefaultSources returns one source per file followed by the environment,
// so environment variables override file values.
func DefaultSources(files ...string) []Source {
	sources := make([]Source, 0, len(files)+1)
	for _, path := range files {
		if path != "" {
			sources = append(sources, NewFileSource(path, FileOptions{}))
		}
	}
	return append(sources, NewEnvSource(EnvOptions{}))
}

// DefaultManager creates a manager over DefaultSources(files...).
func DefaultManager(ctx context.Context, logger log.Logger, files ...string) (Manager, error) {
	return NewManager(ctx, Options{
		Logger:  logger,
		Sources: DefaultSources(files...),
	})
}
