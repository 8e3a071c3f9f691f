// Package testutil provides shared helpers for middleware and handler tests.
package testutil

import (
	"context"
	"sync"

	"github.com/nimburion/validation-app/pkg/correlation"
	"github.com/nimburion/validation-app/pkg/observability/logger"
)

// MockLogger captures log entries for assertions. Child loggers created
// through With/WithContext write to the same entry list and merge their
// bound fields into every entry. It is safe for concurrent use.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry

	root  *MockLogger
	bound []any
}

// LogEntry is one captured log call.
type LogEntry struct {
	Level  string
	Msg    string
	Fields map[string]interface{}
}

func (m *MockLogger) Debug(msg string, args ...any) { m.record("debug", msg, args) }
func (m *MockLogger) Info(msg string, args ...any)  { m.record("info", msg, args) }
func (m *MockLogger) Warn(msg string, args ...any)  { m.record("warn", msg, args) }
func (m *MockLogger) Error(msg string, args ...any) { m.record("error", msg, args) }

// With returns a child logger bound to args.
func (m *MockLogger) With(args ...any) logger.Logger {
	bound := make([]any, 0, len(m.bound)+len(args))
	bound = append(bound, m.bound...)
	bound = append(bound, args...)
	return &MockLogger{root: m.sink(), bound: bound}
}

// WithContext returns a child logger bound to the correlation fields of ctx.
func (m *MockLogger) WithContext(ctx context.Context) logger.Logger {
	return m.With(correlation.FromContext(ctx).Pairs()...)
}

// Entries returns a snapshot of captured entries.
func (m *MockLogger) Entries() []LogEntry {
	sink := m.sink()
	sink.mu.Lock()
	defer sink.mu.Unlock()
	return append([]LogEntry(nil), sink.Logs...)
}

// Reset discards captured entries.
func (m *MockLogger) Reset() {
	sink := m.sink()
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.Logs = nil
}

func (m *MockLogger) sink() *MockLogger {
	if m.root != nil {
		return m.root
	}
	return m
}

func (m *MockLogger) record(level, msg string, args []any) {
	fields := argsToMap(m.bound)
	for key, value := range argsToMap(args) {
		fields[key] = value
	}
	sink := m.sink()
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.Logs = append(sink.Logs, LogEntry{Level: level, Msg: msg, Fields: fields})
}

func argsToMap(args []any) map[string]interface{} {
	fields := make(map[string]interface{})
	for i := 0; i < len(args)-1; i += 2 {
		if key, ok := args[i].(string); ok {
			fields[key] = args[i+1]
		}
	}
	return fields
}
