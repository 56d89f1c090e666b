// Package internal provides internal implementation details for logx.
package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// LevelVerbose sits between debug and info.
const LevelVerbose = slog.Level(-2)

// TimestampLayout renders timestamps as UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Record is a single log event as seen by a renderer.
type Record struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   []slog.Attr // default meta, logger attrs and call attrs, in that order
	Err     error
}

// Lookup returns the value of the last attribute named key.
// Later attributes override earlier ones, so call metadata wins over default metadata.
func (r Record) Lookup(key string) (slog.Value, bool) {
	for i := len(r.Attrs) - 1; i >= 0; i-- {
		if r.Attrs[i].Key == key {
			return r.Attrs[i].Value, true
		}
	}
	return slog.Value{}, false
}

// Renderer turns a record into one output line, trailing newline included.
type Renderer func(r Record) []byte

// Options configures the logger behavior.
type Options struct {
	Format           string     // Output format: json or logfmt
	Level            slog.Level // Minimum log level
	Color            bool       // Enable ANSI colors
	Renderer         Renderer   // Custom renderer; overrides Format and Color
	PayloadMaxBytes  int        // Maximum bytes to log for large string values (0 = unlimited)
	SensitiveFields  []string   // Field names to mask (e.g., "password", "token")
	DisableTimestamp bool       // Disable timestamp in output
}

// Handler is a slog.Handler that renders records and fans them out to every transport.
type Handler struct {
	opts    Options
	mu      *sync.Mutex
	writers []io.Writer
	attrs   []slog.Attr
	group   string
}

// NewHandler creates a new Handler writing to the given transports.
func NewHandler(opts Options, writers ...io.Writer) *Handler {
	return &Handler{
		opts:    opts,
		mu:      &sync.Mutex{},
		writers: writers,
	}
}

// handle renders and writes the log record (internal method).
func (h *Handler) handle(level slog.Level, msg string, attrs []slog.Attr, err error) {
	if level < h.opts.Level {
		return
	}

	allAttrs := append([]slog.Attr{}, h.attrs...)
	allAttrs = append(allAttrs, attrs...)

	rec := Record{
		Time:    time.Now(),
		Level:   level,
		Message: msg,
		Attrs:   allAttrs,
		Err:     err,
	}

	var line []byte
	switch {
	case h.opts.Renderer != nil:
		line = h.opts.Renderer(rec)
	case h.opts.Format == "logfmt":
		line = RenderLogfmt(rec, h.opts)
	default:
		line = RenderJSON(rec, h.opts)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, w := range h.writers {
		w.Write(line)
	}
}

// LogRecord writes a log record (public method for logx package).
func (h *Handler) LogRecord(level slog.Level, msg string, attrs []slog.Attr, err error) {
	h.handle(level, msg, attrs, err)
}

// Enabled reports whether the handler handles records at the given level.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.opts.Level
}

// Handle implements slog.Handler. An attribute named "error" holding an error
// becomes the record's error.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	var recErr error
	attrs := make([]slog.Attr, 0, r.NumAttrs())
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "error" {
			if e, ok := a.Value.Any().(error); ok {
				recErr = e
				return true
			}
		}
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		attrs = append(attrs, a)
		return true
	})
	h.handle(r.Level, r.Message, attrs, recErr)
	return nil
}

// WithAttrs returns a new Handler with the given attributes.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := append([]slog.Attr{}, h.attrs...)
	for _, a := range attrs {
		if h.group != "" {
			a.Key = h.group + "." + a.Key
		}
		newAttrs = append(newAttrs, a)
	}

	return &Handler{
		opts:    h.opts,
		mu:      h.mu,
		writers: h.writers,
		attrs:   newAttrs,
		group:   h.group,
	}
}

// WithGroup returns a new Handler that prefixes later attribute keys with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	group := name
	if h.group != "" && name != "" {
		group = h.group + "." + name
	}
	return &Handler{
		opts:    h.opts,
		mu:      h.mu,
		writers: h.writers,
		attrs:   h.attrs,
		group:   group,
	}
}

// jsonLine fixes the key order of the default JSON record.
type jsonLine struct {
	Timestamp    string `json:"timestamp,omitempty"`
	Level        string `json:"level"`
	Context      any    `json:"context,omitempty"`
	Message      string `json:"message"`
	ResponseTime any    `json:"responseTime,omitempty"`
	Error        any    `json:"error,omitempty"`
}

// RenderJSON renders the default record shape:
// timestamp, level, context, message, responseTime and error, in that order.
// Other attributes are not rendered.
func RenderJSON(r Record, opts Options) []byte {
	out := jsonLine{
		Level:   LevelName(r.Level),
		Message: r.Message,
	}
	if !opts.DisableTimestamp {
		out.Timestamp = r.Time.UTC().Format(TimestampLayout)
	}
	if v, ok := r.Lookup("context"); ok {
		out.Context = jsonValue(v)
	}
	if v, ok := r.Lookup("responseTime"); ok {
		out.ResponseTime = jsonValue(v)
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	} else if v, ok := r.Lookup("error"); ok {
		out.Error = jsonValue(v)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		// Unencodable metadata: keep the line, drop the offending values.
		buf.Reset()
		out.Context, out.ResponseTime, out.Error = nil, nil, nil
		enc.Encode(out)
	}

	line := bytes.TrimRight(buf.Bytes(), "\n")
	if opts.Color {
		line = []byte(ColorizeLine(r.Level, string(line)))
	}
	return append(line, '\n')
}

// jsonValue unwraps a slog value for encoding/json.
func jsonValue(v slog.Value) any {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().UTC().Format(TimestampLayout)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	return v.Any()
}

// RenderLogfmt renders key=value pairs with sorted attributes. Only the level
// is colorized.
func RenderLogfmt(r Record, opts Options) []byte {
	var buf strings.Builder

	if !opts.DisableTimestamp {
		buf.WriteString("time=")
		buf.WriteString(r.Time.UTC().Format(TimestampLayout))
		buf.WriteString(" ")
	}

	levelStr := LevelString(r.Level)
	buf.WriteString("level=")
	if opts.Color {
		buf.WriteString(ColorizeLevel(levelStr))
	} else {
		buf.WriteString(levelStr)
	}

	buf.WriteString(" msg=")
	buf.WriteString(fmt.Sprintf("%q", r.Message))

	attrs := dedupe(r.Attrs)
	if r.Err != nil {
		attrs = append(attrs, slog.String("error", r.Err.Error()))
	}
	for _, attr := range SortAttrs(attrs) {
		buf.WriteString(" ")
		buf.WriteString(attr.Key)
		buf.WriteString("=")
		buf.WriteString(FormatValue(attr.Key, attr.Value, opts))
	}

	buf.WriteString("\n")
	return []byte(buf.String())
}

// dedupe keeps the last attribute for every key.
func dedupe(attrs []slog.Attr) []slog.Attr {
	seen := make(map[string]int, len(attrs))
	out := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		if i, ok := seen[a.Key]; ok {
			out[i] = a
			continue
		}
		seen[a.Key] = len(out)
		out = append(out, a)
	}
	return out
}

// KVToAttrs converts key-value pairs to slog.Attr slice.
func KVToAttrs(kv []any) []slog.Attr {
	// First, expand any nested []any pairs to a flat key, value sequence.
	flat := make([]any, 0, len(kv))
	for _, item := range kv {
		switch v := item.(type) {
		case []any:
			if len(v) == 2 {
				flat = append(flat, v[0], v[1])
			} else {
				flat = append(flat, v)
			}
		default:
			flat = append(flat, v)
		}
	}

	attrs := make([]slog.Attr, 0, len(flat)/2)
	for i := 0; i < len(flat)-1; i += 2 {
		key := fmt.Sprintf("%v", flat[i])
		attrs = append(attrs, slog.Any(key, flat[i+1]))
	}
	return attrs
}

// MapToAttrs converts a metadata map to attributes sorted by key.
func MapToAttrs(m map[string]any) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(m))
	for k, v := range m {
		attrs = append(attrs, slog.Any(k, v))
	}
	return SortAttrs(attrs)
}

// SortAttrs sorts attributes by key.
func SortAttrs(attrs []slog.Attr) []slog.Attr {
	sorted := make([]slog.Attr, len(attrs))
	copy(sorted, attrs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Key < sorted[j].Key
	})
	return sorted
}

// FormatValue formats a slog.Value for logfmt output.
func FormatValue(key string, v slog.Value, opts Options) string {
	for _, field := range opts.SensitiveFields {
		if strings.EqualFold(key, field) {
			return `"***REDACTED***"`
		}
	}

	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if opts.PayloadMaxBytes > 0 && len(s) > opts.PayloadMaxBytes {
			truncated := fmt.Sprintf("%s...(truncated, %d bytes)", s[:opts.PayloadMaxBytes], len(s))
			return fmt.Sprintf("%q", truncated)
		}
		return fmt.Sprintf("%q", s)
	case slog.KindInt64:
		return fmt.Sprintf("%d", v.Int64())
	case slog.KindUint64:
		return fmt.Sprintf("%d", v.Uint64())
	case slog.KindFloat64:
		f := v.Float64()
		if f == float64(int64(f)) {
			return fmt.Sprintf("%.0f", f)
		}
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", f), "0"), ".")
	case slog.KindBool:
		return fmt.Sprintf("%t", v.Bool())
	case slog.KindDuration:
		return fmt.Sprintf("%d", v.Duration().Milliseconds())
	case slog.KindTime:
		return fmt.Sprintf("%q", v.Time().Format(time.RFC3339))
	default:
		return fmt.Sprintf("%q", v.String())
	}
}

// LevelString returns the upper-case name of a log level.
func LevelString(level slog.Level) string {
	switch level {
	case slog.LevelDebug:
		return "DEBUG"
	case LevelVerbose:
		return "VERBOSE"
	case slog.LevelInfo:
		return "INFO"
	case slog.LevelWarn:
		return "WARN"
	case slog.LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", level)
	}
}

// LevelName returns the lower-case name used in JSON records.
func LevelName(level slog.Level) string {
	return strings.ToLower(LevelString(level))
}

const (
	reset   = "\033[0m"
	dim     = "\033[2m"
	red     = "\033[31m"
	yellow  = "\033[33m"
	cyan    = "\033[36m"
	magenta = "\033[35m"
)

// ColorizeLevel adds ANSI color codes ONLY to the level value.
func ColorizeLevel(level string) string {
	switch level {
	case "DEBUG":
		return magenta + level + reset
	case "VERBOSE":
		return dim + cyan + level + reset
	case "INFO":
		return cyan + level + reset
	case "WARN":
		return yellow + level + reset
	case "ERROR":
		return red + level + reset
	default:
		return level
	}
}

// ColorizeLine colors a whole rendered line by level. Info lines stay plain.
func ColorizeLine(level slog.Level, line string) string {
	switch level {
	case slog.LevelError:
		return red + line + reset
	case slog.LevelWarn:
		return yellow + line + reset
	case LevelVerbose:
		return dim + cyan + line + reset
	case slog.LevelDebug:
		return dim + magenta + line + reset
	default:
		return line
	}
}
