// Package recovery provides panic recovery middleware.
package recovery

import (
	"net/http"
	"runtime/debug"

	"github.com/nimburion/validation-app/pkg/correlation"
	"github.com/nimburion/validation-app/pkg/observability/logger"
	"github.com/nimburion/validation-app/pkg/server/router"
)

// ErrorResponse is the body written after a recovered panic.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// Recovery creates middleware that turns handler panics into a logged
// HTTP 500. Nothing is written if the handler already started a response.
func Recovery(log logger.Logger) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				ctx := c.Request().Context()
				reqLog := log.WithContext(ctx)
				reqLog.Error("panic recovered",
					"panic", r,
					"stack", string(debug.Stack()),
				)

				if c.Response().Written() {
					return
				}
				if writeErr := c.JSON(http.StatusInternalServerError, ErrorResponse{
					Error:         "internal_server_error",
					Message:       "an unexpected error occurred",
					CorrelationID: correlation.ID(ctx),
				}); writeErr != nil {
					reqLog.Error("failed to send error response", "error", writeErr)
				}
			}()

			return next(c)
		}
	}
}
