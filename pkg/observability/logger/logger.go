// Package logger provides the structured logging contract used across the service.
package logger

import (
	"context"
)

// Logger is a leveled, structured logger. Log methods take a message followed
// by alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With returns a child logger that adds args to every entry.
	With(args ...any) Logger

	// WithContext returns a child logger annotated with the correlation
	// fields carried by ctx (correlation_id, method, path, endpoint).
	WithContext(ctx context.Context) Logger
}
