package health

import (
	"context"
	"time"
)

// Checkable is implemented by components that can verify their own health,
// such as the Redis rate limiter.
type Checkable interface {
	HealthCheck(ctx context.Context) error
}

// AdapterChecker checks a Checkable under a timeout.
type AdapterChecker struct {
	name    string
	adapter Checkable
	timeout time.Duration
}

// NewAdapterChecker creates a checker for adapter. A zero timeout means 5s.
func NewAdapterChecker(name string, adapter Checkable, timeout time.Duration) *AdapterChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AdapterChecker{name: name, adapter: adapter, timeout: timeout}
}

// Name returns the checker name.
func (c *AdapterChecker) Name() string { return c.name }

// Check calls the adapter's HealthCheck.
func (c *AdapterChecker) Check(ctx context.Context) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return run(checkCtx, c.name, c.adapter.HealthCheck)
}
