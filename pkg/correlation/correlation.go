// Package correlation carries per-request log correlation fields through context.Context.
//
// A field set is attached to a request context by Begin and released by the
// returned Scope once the request has been handled. Fields are kept in
// insertion order so log lines render them consistently.
package correlation

import (
	"context"
	"sync"
)

// Field keys published into the correlation context.
const (
	KeyCorrelationID = "correlation_id"
	KeyMethod        = "method"
	KeyPath          = "path"
	KeyEndpoint      = "endpoint"
)

type contextKey struct{}

// Fields is a request-scoped, goroutine-safe set of string fields.
// The zero value is not usable; obtain one through Begin.
type Fields struct {
	mu       sync.RWMutex
	keys     []string
	values   map[string]string
	released bool
}

// Scope releases a field set when the request that owns it completes.
type Scope struct {
	fields *Fields
}

// Begin attaches a new, empty field set to ctx.
// Callers must call Release on the returned Scope, typically with defer.
func Begin(ctx context.Context) (context.Context, *Scope) {
	if ctx == nil {
		ctx = context.Background()
	}
	fields := &Fields{values: make(map[string]string, 4)}
	return context.WithValue(ctx, contextKey{}, fields), &Scope{fields: fields}
}

// Fields returns the field set owned by the scope.
func (s *Scope) Fields() *Fields {
	if s == nil {
		return nil
	}
	return s.fields
}

// Release clears every field. Later writes are ignored and reads return nothing.
func (s *Scope) Release() {
	if s == nil {
		return
	}
	s.fields.clear()
}

// FromContext returns the field set attached to ctx, or nil.
func FromContext(ctx context.Context) *Fields {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(contextKey{}).(*Fields)
	return fields
}

// Set stores key=value in the field set attached to ctx. It is a no-op when
// ctx carries no field set.
func Set(ctx context.Context, key, value string) {
	FromContext(ctx).Set(key, value)
}

// Get returns the value stored under key in the field set attached to ctx.
func Get(ctx context.Context, key string) string {
	value, _ := FromContext(ctx).Get(key)
	return value
}

// ID returns the correlation identifier attached to ctx, or "".
func ID(ctx context.Context) string {
	return Get(ctx, KeyCorrelationID)
}

// Set stores key=value. Re-setting a key keeps its first insertion position.
func (f *Fields) Set(key, value string) {
	if f == nil || key == "" {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.released {
		return
	}
	if _, exists := f.values[key]; !exists {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Get returns the value stored under key.
func (f *Fields) Get(key string) (string, bool) {
	if f == nil {
		return "", false
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	value, ok := f.values[key]
	return value, ok
}

// Len returns the number of stored fields.
func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.keys)
}

// Pairs returns the fields as alternating key/value arguments in insertion
// order, ready to pass to a structured logger.
func (f *Fields) Pairs() []any {
	if f == nil {
		return nil
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.keys) == 0 {
		return nil
	}
	args := make([]any, 0, len(f.keys)*2)
	for _, key := range f.keys {
		args = append(args, key, f.values[key])
	}
	return args
}

// Map returns a copy of the stored fields.
func (f *Fields) Map() map[string]string {
	out := make(map[string]string)
	if f == nil {
		return out
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for key, value := range f.values {
		out[key] = value
	}
	return out
}

// Released reports whether the owning scope has been released.
func (f *Fields) Released() bool {
	if f == nil {
		return true
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.released
}

func (f *Fields) clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = nil
	f.values = make(map[string]string)
	f.released = true
}
