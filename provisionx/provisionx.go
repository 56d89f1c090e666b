// Package provisionx declares a logger for a type and installs it on every
// instance of that type.
//
// Overview:
//   - Responsibility: Build one logger per declaration, publish its property name, install it on instances
//   - Key Types: Class[T] declaration, Config, Host property bag
//   - Concurrency Model: A Class is immutable after Define; Install is safe for concurrent use
//   - Error Semantics: Define never fails; bad levels fall back to info with a warning
//   - Performance Notes: ScopeClass shares one logger; ScopeInstance builds one per Install
//
// Usage:
//
//	type FruitManager struct {
//		provisionx.Host
//	}
//
//	var fruitClass = provisionx.Define[FruitManager](provisionx.Config{Level: "verbose"})
//
//	func NewFruitManager() *FruitManager {
//		return fruitClass.New()
//	}
package provisionx

import (
	"io"
	"os"
	"reflect"

	"go.eggybyte.com/logdecor/core/log"
	"go.eggybyte.com/logdecor/logx"
	"go.eggybyte.com/logdecor/metax"
)

// Scope selects how many loggers a declaration creates.
type Scope int

const (
	// ScopeClass shares one logger across every instance.
	ScopeClass Scope = iota
	// ScopeInstance builds a fresh logger for each installed instance.
	ScopeInstance
)

// ParseScope maps "class" and "instance" to a Scope. Empty means class.
func ParseScope(s string) (Scope, bool) {
	switch s {
	case "", "class":
		return ScopeClass, true
	case "instance":
		return ScopeInstance, true
	default:
		return ScopeClass, false
	}
}

// Config describes the logger a declaration builds. Zero fields use defaults.
type Config struct {
	Level       string         // debug, verbose, info, warn or error; default info
	Format      logx.Renderer  // Custom renderer replacing the default record shape
	Encoding    logx.Format    // json (default) or logfmt when Format is nil
	Transports  []io.Writer    // Output destinations; default os.Stdout
	DefaultMeta map[string]any // Merged over {"context": <type name>}
	Prop        string         // Property name on instances; default "logger"
	Scope       Scope
	Binding     metax.Binding
	NoColor     bool            // Disable colors even when NO_COLOR is unset
	Registry    *metax.Registry // Registry to publish to; default metax.Default()
}

// merge overlays the non-zero fields of o onto c. Zero values in o are
// indistinguishable from unset and leave c unchanged.
func (c Config) merge(o Config) Config {
	if o.Level != "" {
		c.Level = o.Level
	}
	if o.Format != nil {
		c.Format = o.Format
	}
	if o.Encoding != "" {
		c.Encoding = o.Encoding
	}
	if len(o.Transports) > 0 {
		c.Transports = o.Transports
	}
	if len(o.DefaultMeta) > 0 {
		meta := make(map[string]any, len(c.DefaultMeta)+len(o.DefaultMeta))
		for k, v := range c.DefaultMeta {
			meta[k] = v
		}
		for k, v := range o.DefaultMeta {
			meta[k] = v
		}
		c.DefaultMeta = meta
	}
	if o.Prop != "" {
		c.Prop = o.Prop
	}
	if o.Scope != ScopeClass {
		c.Scope = o.Scope
	}
	if o.Binding != metax.BindClass {
		c.Binding = o.Binding
	}
	if o.NoColor {
		c.NoColor = true
	}
	if o.Registry != nil {
		c.Registry = o.Registry
	}
	return c
}

// hostPtr is satisfied by pointers to types that embed Host.
type hostPtr[T any] interface {
	*T
	host() *Host
}

// Class is the logger declaration of type T.
type Class[T any, PT hostPtr[T]] struct {
	typ      reflect.Type
	prop     string
	scope    Scope
	registry *metax.Registry
	opts     []logx.Option
	logger   log.Logger
}

// Define declares the logger of T. T must embed Host. Call it once per type,
// usually from a package-level var. Configs are merged in order: a later
// config only overrides fields it sets to a non-zero value, so ScopeClass,
// metax.BindClass and NoColor=false never reset an earlier choice. Pass a
// single config when those fields must be reverted.
func Define[T any, PT hostPtr[T]](cfgs ...Config) *Class[T, PT] {
	var cfg Config
	for _, c := range cfgs {
		cfg = cfg.merge(c)
	}

	c := &Class[T, PT]{
		typ:      reflect.TypeFor[T](),
		prop:     cfg.Prop,
		scope:    cfg.Scope,
		registry: cfg.Registry,
	}
	if c.prop == "" {
		c.prop = metax.DefaultPropertyName
	}
	if c.registry == nil {
		c.registry = metax.Default()
	}

	level, levelErr := logx.ParseLevel(cfg.Level)
	c.opts = c.loggerOptions(cfg, level)
	c.logger = logx.New(c.opts...)
	if levelErr != nil {
		c.logger.Warn("invalid log level configured, using default level",
			log.Str("level", cfg.Level))
	}

	c.registry.Publish(cfg.Binding, c.typ, c.prop)
	return c
}

func (c *Class[T, PT]) loggerOptions(cfg Config, level logx.Level) []logx.Option {
	meta := map[string]any{"context": c.typ.Name()}
	for k, v := range cfg.DefaultMeta {
		meta[k] = v
	}

	transports := cfg.Transports
	if len(transports) == 0 {
		transports = []io.Writer{os.Stdout}
	}

	opts := []logx.Option{
		logx.WithLevel(level),
		logx.WithDefaultMeta(meta),
		logx.WithTransports(transports...),
		logx.WithColor(!cfg.NoColor && logx.ColorEnabled()),
	}
	if cfg.Encoding != "" {
		opts = append(opts, logx.WithFormat(cfg.Encoding))
	}
	if cfg.Format != nil {
		opts = append(opts, logx.WithRenderer(cfg.Format))
	}
	return opts
}

// Install puts the declared logger on inst under the configured property
// and returns inst.
func (c *Class[T, PT]) Install(inst PT) PT {
	logger := c.logger
	if c.scope == ScopeInstance {
		logger = logx.New(c.opts...)
	}
	inst.host().install(c.typ, c.prop, logger)
	return inst
}

// New allocates a zero T and installs the logger on it.
func (c *Class[T, PT]) New() PT {
	return c.Install(PT(new(T)))
}

// Logger returns the shared logger. With ScopeInstance it is the template
// that per-instance loggers are cloned from.
func (c *Class[T, PT]) Logger() log.Logger {
	return c.logger
}

// LoggerFor returns the logger installed on inst, falling back to Logger.
func (c *Class[T, PT]) LoggerFor(inst PT) log.Logger {
	if logger, ok := inst.host().Logger(c.prop); ok {
		return logger
	}
	return c.logger
}

// Prop returns the property name loggers are installed under.
func (c *Class[T, PT]) Prop() string {
	return c.prop
}

// Name returns the type name used as the default context.
func (c *Class[T, PT]) Name() string {
	return c.typ.Name()
}

// Type returns the declared type.
func (c *Class[T, PT]) Type() reflect.Type {
	return c.typ
}

// Registry returns the registry the declaration published to.
func (c *Class[T, PT]) Registry() *metax.Registry {
	return c.registry
}
