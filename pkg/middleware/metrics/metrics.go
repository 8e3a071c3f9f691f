// Package metrics provides Prometheus request metrics middleware.
package metrics

import (
	"net/http"
	"time"

	"github.com/nimburion/validation-app/pkg/observability/metrics"
	"github.com/nimburion/validation-app/pkg/server/router"
)

// Metrics creates middleware that records the in-flight gauge, the request
// counter and the duration histogram for every request.
func Metrics(m *metrics.HTTPMetrics) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			done := m.Track()
			defer done()

			start := time.Now()
			err := next(c)

			status := c.Response().Status()
			if err != nil && !c.Response().Written() {
				// router.Serve answers unhandled errors with a 500 once the chain returns.
				status = http.StatusInternalServerError
			}
			req := c.Request()
			m.Observe(req.Method, req.URL.Path, status, time.Since(start))
			return err
		}
	}
}
