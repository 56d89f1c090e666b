// Package testingx provides testing utilities for logdecor.
//
// Overview:
//   - Responsibility: Testing helpers, fake loggers, and record capture
//   - Key Types: MockLogger, CaptureLogger, RecordBuffer
//   - Concurrency Model: All helpers are safe for concurrent use
//   - Error Semantics: Test failures via testing.TB
//   - Performance Notes: Optimized for test execution
//
// Usage:
//
//	logger := testingx.NewMockLogger(t)
//	logger.AssertLogged("INFO", "addItems()")
package testingx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.eggybyte.com/logdecor/core/errors"
	"go.eggybyte.com/logdecor/core/log"
)

// MockLogger is a mock logger for testing.
type MockLogger struct {
	t     testing.TB
	store *entryStore
	bound []any
}

type entryStore struct {
	mu      sync.Mutex
	entries []LogEntry
}

// LogEntry represents a single log entry.
type LogEntry struct {
	Level   string
	Message string
	Fields  []any // bound fields first, then call fields
	Error   error
}

// Field returns the value of the last field named key.
// Fields may be flat pairs or log.Str style []any{key, value} items.
func (e LogEntry) Field(key string) (any, bool) {
	var (
		val   any
		found bool
	)
	for i := 0; i < len(e.Fields); i++ {
		if pair, ok := e.Fields[i].([]any); ok && len(pair) == 2 {
			if fmt.Sprint(pair[0]) == key {
				val, found = pair[1], true
			}
			continue
		}
		if i+1 < len(e.Fields) && fmt.Sprint(e.Fields[i]) == key {
			val, found = e.Fields[i+1], true
		}
		i++
	}
	return val, found
}

// NewMockLogger creates a new mock logger.
func NewMockLogger(t testing.TB) *MockLogger {
	return &MockLogger{
		t:     t,
		store: &entryStore{entries: make([]LogEntry, 0)},
	}
}

// With returns a logger sharing the same entries that prepends kv to every entry.
func (m *MockLogger) With(kv ...any) log.Logger {
	bound := append(append([]any{}, m.bound...), kv...)
	return &MockLogger{t: m.t, store: m.store, bound: bound}
}

// Debug logs a debug message.
func (m *MockLogger) Debug(msg string, kv ...any) {
	m.log("DEBUG", msg, nil, kv)
}

// Verbose logs a verbose message.
func (m *MockLogger) Verbose(msg string, kv ...any) {
	m.log("VERBOSE", msg, nil, kv)
}

// Info logs an info message.
func (m *MockLogger) Info(msg string, kv ...any) {
	m.log("INFO", msg, nil, kv)
}

// Warn logs a warning message.
func (m *MockLogger) Warn(msg string, kv ...any) {
	m.log("WARN", msg, nil, kv)
}

// Error logs an error message.
func (m *MockLogger) Error(err error, msg string, kv ...any) {
	m.log("ERROR", msg, err, kv)
}

func (m *MockLogger) log(level, msg string, err error, kv []any) {
	fields := append(append([]any{}, m.bound...), kv...)
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.entries = append(m.store.entries, LogEntry{
		Level:   level,
		Message: msg,
		Fields:  fields,
		Error:   err,
	})
}

// Entries returns all log entries.
func (m *MockLogger) Entries() []LogEntry {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	entries := make([]LogEntry, len(m.store.entries))
	copy(entries, m.store.entries)
	return entries
}

// AssertLogged asserts that a message was logged.
func (m *MockLogger) AssertLogged(level, msg string) {
	m.t.Helper()
	for _, entry := range m.Entries() {
		if entry.Level == level && entry.Message == msg {
			return
		}
	}
	m.t.Errorf("Expected log message not found: level=%s msg=%q", level, msg)
}

// Clear clears all log entries.
func (m *MockLogger) Clear() {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	m.store.entries = nil
}

// AssertError asserts that an error has the expected code.
func AssertError(t testing.TB, err error, expectedCode errors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected error with code %s, got nil", expectedCode)
	}

	code := errors.CodeOf(err)
	if code != expectedCode {
		t.Errorf("Expected error code %s, got %s", expectedCode, code)
	}
}

// AssertNoError asserts that no error occurred.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
}

// CaptureLogger writes one "LEVEL: msg k=v" line per record to a buffer.
type CaptureLogger struct {
	mu     *sync.Mutex
	buffer *bytes.Buffer
	bound  []any
}

// NewCaptureLogger creates a new capture logger.
func NewCaptureLogger() *CaptureLogger {
	return &CaptureLogger{mu: &sync.Mutex{}, buffer: &bytes.Buffer{}}
}

// With returns a logger writing to the same buffer with kv bound.
func (c *CaptureLogger) With(kv ...any) log.Logger {
	bound := append(append([]any{}, c.bound...), kv...)
	return &CaptureLogger{mu: c.mu, buffer: c.buffer, bound: bound}
}

// Debug logs a debug message.
func (c *CaptureLogger) Debug(msg string, kv ...any) {
	c.write("DEBUG", msg, nil, kv)
}

// Verbose logs a verbose message.
func (c *CaptureLogger) Verbose(msg string, kv ...any) {
	c.write("VERBOSE", msg, nil, kv)
}

// Info logs an info message.
func (c *CaptureLogger) Info(msg string, kv ...any) {
	c.write("INFO", msg, nil, kv)
}

// Warn logs a warning message.
func (c *CaptureLogger) Warn(msg string, kv ...any) {
	c.write("WARN", msg, nil, kv)
}

// Error logs an error message.
func (c *CaptureLogger) Error(err error, msg string, kv ...any) {
	c.write("ERROR", msg, err, kv)
}

func (c *CaptureLogger) write(level, msg string, err error, kv []any) {
	entry := LogEntry{Fields: append(append([]any{}, c.bound...), kv...)}

	var line strings.Builder
	line.WriteString(level)
	line.WriteString(": ")
	line.WriteString(msg)
	for _, key := range fieldKeys(entry.Fields) {
		v, _ := entry.Field(key)
		fmt.Fprintf(&line, " %s=%v", key, v)
	}
	if err != nil {
		line.WriteString(" error=")
		line.WriteString(err.Error())
	}
	line.WriteString("\n")

	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffer.WriteString(line.String())
}

// fieldKeys returns the distinct keys of fields in first-seen order.
func fieldKeys(fields []any) []string {
	var keys []string
	seen := make(map[string]bool)
	add := func(k any) {
		key := fmt.Sprint(k)
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	for i := 0; i < len(fields); i++ {
		if pair, ok := fields[i].([]any); ok && len(pair) == 2 {
			add(pair[0])
			continue
		}
		if i+1 < len(fields) {
			add(fields[i])
		}
		i++
	}
	return keys
}

// String returns the captured output.
func (c *CaptureLogger) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffer.String()
}

// Clear clears the buffer.
func (c *CaptureLogger) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffer.Reset()
}

// Record is one decoded JSON log line.
type Record map[string]any

// Message returns the record's message field.
func (r Record) Message() string {
	s, _ := r["message"].(string)
	return s
}

// String returns the string value of key, or "" when absent.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// RecordBuffer is a thread-safe io.Writer that collects JSON log lines.
type RecordBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewRecordBuffer creates an empty record buffer.
func NewRecordBuffer() *RecordBuffer {
	return &RecordBuffer{}
}

// Write implements io.Writer.
func (b *RecordBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// String returns the raw buffer contents.
func (b *RecordBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Reset clears the buffer.
func (b *RecordBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// Decode parses every non-empty line as a JSON record.
func (b *RecordBuffer) Decode() ([]Record, error) {
	lines := strings.Split(b.String(), "\n")
	records := make([]Record, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("decode log line %q: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Records decodes the buffer and fails the test on malformed lines.
func (b *RecordBuffer) Records(t testing.TB) []Record {
	t.Helper()
	records, err := b.Decode()
	if err != nil {
		t.Fatalf("RecordBuffer: %v", err)
	}
	return records
}
