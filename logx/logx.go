// Package logx is the structured logging backend behind provisioned loggers.
//
// Overview:
//   - Responsibility: Render leveled records as JSON or logfmt and fan them out to transports
//   - Key Types: Logger implementation, Options for configuration, Record/Renderer for custom output
//   - Concurrency Model: All loggers are safe for concurrent use
//   - Error Semantics: No errors returned; transport write failures are ignored
//   - Performance Notes: One render per record regardless of the number of transports
//
// Usage:
//
//	logger := logx.New(
//		logx.WithLevel(logx.LevelDebug),
//		logx.WithDefaultMeta(map[string]any{"context": "FruitManager"}),
//	)
//	logger.Info("addItems()", log.Str("responseTime", "3ms"))
package logx

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"go.eggybyte.com/logdecor/core/errors"
	"go.eggybyte.com/logdecor/core/log"
	"go.eggybyte.com/logdecor/logx/internal"
)

// Format specifies the output format for logs.
type Format string

const (
	// FormatJSON renders one JSON object per line with a fixed key order.
	FormatJSON Format = "json"
	// FormatLogfmt outputs logs in logfmt format (key=value pairs).
	FormatLogfmt Format = "logfmt"
)

// Level is a minimum severity.
type Level = slog.Level

// Levels understood by the backend.
const (
	LevelDebug   = slog.LevelDebug
	LevelVerbose = internal.LevelVerbose
	LevelInfo    = slog.LevelInfo
	LevelWarn    = slog.LevelWarn
	LevelError   = slog.LevelError
)

// Record is a single log event handed to a Renderer.
type Record = internal.Record

// Renderer turns a record into one output line. A custom renderer replaces
// both the format and the colorization.
type Renderer = internal.Renderer

// Options configures the logger behavior.
type Options struct {
	Format           Format         // Output format: json or logfmt
	Level            slog.Level     // Minimum log level
	Color            bool           // Enable ANSI colors
	Transports       []io.Writer    // Output destinations (default: os.Stdout)
	Renderer         Renderer       // Custom renderer
	DefaultMeta      map[string]any // Static fields merged under every record's metadata
	PayloadMaxBytes  int            // Maximum bytes to log for large payloads (0 = unlimited)
	SensitiveFields  []string       // Field names to mask (e.g., "password", "token")
	DisableTimestamp bool           // Disable timestamp in output
}

// Logger implements the core/log.Logger interface using slog.
type Logger struct {
	handler *internal.Handler
	attrs   []slog.Attr
}

// New creates a new Logger with the given options.
func New(opts ...Option) log.Logger {
	options := Options{
		Format: FormatJSON,
		Level:  LevelInfo,
		Color:  ColorEnabled(),
	}

	for _, opt := range opts {
		opt(&options)
	}

	if len(options.Transports) == 0 {
		options.Transports = []io.Writer{os.Stdout}
	}

	handler := internal.NewHandler(internal.Options{
		Format:           string(options.Format),
		Level:            options.Level,
		Color:            options.Color,
		Renderer:         options.Renderer,
		PayloadMaxBytes:  options.PayloadMaxBytes,
		SensitiveFields:  options.SensitiveFields,
		DisableTimestamp: options.DisableTimestamp,
	}, options.Transports...)

	return &Logger{
		handler: handler,
		attrs:   internal.MapToAttrs(options.DefaultMeta),
	}
}

// Option configures logger behavior.
type Option func(*Options)

// WithFormat sets the output format.
func WithFormat(format Format) Option {
	return func(o *Options) {
		o.Format = format
	}
}

// WithLevel sets the minimum log level.
func WithLevel(level slog.Level) Option {
	return func(o *Options) {
		o.Level = level
	}
}

// WithColor enables or disables ANSI colors.
func WithColor(enabled bool) Option {
	return func(o *Options) {
		o.Color = enabled
	}
}

// WithWriter replaces all transports with w.
func WithWriter(w io.Writer) Option {
	return func(o *Options) {
		o.Transports = []io.Writer{w}
	}
}

// WithTransports appends output destinations. Every record is written to each of them.
func WithTransports(ws ...io.Writer) Option {
	return func(o *Options) {
		for _, w := range ws {
			if w != nil {
				o.Transports = append(o.Transports, w)
			}
		}
	}
}

// WithRenderer installs a custom renderer.
func WithRenderer(r Renderer) Option {
	return func(o *Options) {
		o.Renderer = r
	}
}

// WithDefaultMeta merges static fields into every record. Call metadata with
// the same key wins.
func WithDefaultMeta(meta map[string]any) Option {
	return func(o *Options) {
		if o.DefaultMeta == nil {
			o.DefaultMeta = make(map[string]any, len(meta))
		}
		for k, v := range meta {
			o.DefaultMeta[k] = v
		}
	}
}

// WithPayloadLimit sets the maximum bytes to log for large payloads.
func WithPayloadLimit(maxBytes int) Option {
	return func(o *Options) {
		o.PayloadMaxBytes = maxBytes
	}
}

// WithSensitiveFields sets field names to mask in logs.
func WithSensitiveFields(fields ...string) Option {
	return func(o *Options) {
		o.SensitiveFields = fields
	}
}

// WithoutTimestamp drops the timestamp from every record.
func WithoutTimestamp() Option {
	return func(o *Options) {
		o.DisableTimestamp = true
	}
}

// With returns a new Logger with the given key-value pairs attached.
func (l *Logger) With(kv ...any) log.Logger {
	attrs := internal.KVToAttrs(kv)
	newAttrs := append([]slog.Attr{}, l.attrs...)
	newAttrs = append(newAttrs, attrs...)

	return &Logger{
		handler: l.handler,
		attrs:   newAttrs,
	}
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, kv ...any) {
	l.log(LevelDebug, msg, nil, kv)
}

// Verbose logs a verbose message.
func (l *Logger) Verbose(msg string, kv ...any) {
	l.log(LevelVerbose, msg, nil, kv)
}

// Info logs an informational message.
func (l *Logger) Info(msg string, kv ...any) {
	l.log(LevelInfo, msg, nil, kv)
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, kv ...any) {
	l.log(LevelWarn, msg, nil, kv)
}

// Error logs an error message.
func (l *Logger) Error(err error, msg string, kv ...any) {
	l.log(LevelError, msg, err, kv)
}

// Handler exposes the logger as a slog.Handler carrying the logger's attributes.
func (l *Logger) Handler() slog.Handler {
	return l.handler.WithAttrs(l.attrs)
}

// log is the internal logging method.
func (l *Logger) log(level slog.Level, msg string, err error, kv []any) {
	allAttrs := append([]slog.Attr{}, l.attrs...)
	allAttrs = append(allAttrs, internal.KVToAttrs(kv)...)

	l.handler.LogRecord(level, msg, allAttrs, err)
}

// ParseLevel parses a level name. An empty string means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "verbose":
		return LevelVerbose, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, errors.Build(errors.CodeInvalidArgument).
			WithOp("logx.ParseLevel").
			WithMsgf("unknown log level %q", s).
			Err()
	}
}

// LevelName returns the lower-case name of a level as rendered in JSON records.
func LevelName(level slog.Level) string {
	return internal.LevelName(level)
}

// ColorEnabled reports whether colored output is allowed by the environment.
// Any non-empty NO_COLOR value disables colors.
func ColorEnabled() bool {
	return os.Getenv("NO_COLOR") == ""
}

// RenderJSON renders r with the default JSON shape.
func RenderJSON(r Record, color bool) []byte {
	return internal.RenderJSON(r, internal.Options{Color: color})
}
