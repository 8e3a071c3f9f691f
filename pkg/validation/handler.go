// Package validation serves the mock dependency endpoints /s3, /rds and
// /health.
//
// /s3 and /rds simulate a dependency check whose outcome is drawn from a
// RandomSource: roughly four in five requests succeed with 200, the rest
// fail with 424 Failed Dependency. No real dependency is contacted.
package validation

import (
	"context"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"github.com/nimburion/validation-app/pkg/correlation"
	"github.com/nimburion/validation-app/pkg/observability/logger"
	"github.com/nimburion/validation-app/pkg/observability/metrics"
	"github.com/nimburion/validation-app/pkg/observability/tracing"
	"github.com/nimburion/validation-app/pkg/server/router"
)

// Endpoint names published as the correlation "endpoint" field.
const (
	EndpointS3  = "s3"
	EndpointRDS = "rds"
)

// Response messages.
const (
	MessageS3Success  = "S3 operation successful: bucket accessible"
	MessageS3Failure  = "S3 operation failed: bucket dependency unavailable"
	MessageRDSSuccess = "RDS operation successful: database query completed"
	MessageRDSFailure = "RDS operation failed: database dependency unavailable"
)

// DefaultBucketPrefix prefixes the simulated bucket name.
const DefaultBucketPrefix = "my-bucket-"

const (
	drawRange        = 100
	s3SuccessAbove   = 0.2
	rdsSuccessAbove  = 20
	healthStatusText = "healthy"
)

// S3Response is the body of GET /s3.
type S3Response struct {
	Bucket  string `json:"bucket"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// RDSResponse is the body of GET /rds.
type RDSResponse struct {
	QueryResult int    `json:"query_result"`
	Status      int    `json:"status"`
	Message     string `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// OutcomeRecorder counts simulated outcomes per endpoint.
type OutcomeRecorder interface {
	Record(endpoint, outcome string)
}

// Handler serves the mock endpoints.
type Handler struct {
	log          logger.Logger
	random       RandomSource
	bucketPrefix string
	outcomes     OutcomeRecorder
}

// Option configures a Handler.
type Option func(*Handler)

// WithRandomSource replaces the default random source.
func WithRandomSource(src RandomSource) Option {
	return func(h *Handler) { h.random = src }
}

// WithBucketPrefix replaces DefaultBucketPrefix.
func WithBucketPrefix(prefix string) Option {
	return func(h *Handler) {
		if prefix != "" {
			h.bucketPrefix = prefix
		}
	}
}

// WithOutcomeRecorder records every simulated outcome.
func WithOutcomeRecorder(rec OutcomeRecorder) Option {
	return func(h *Handler) { h.outcomes = rec }
}

// NewHandler creates a Handler logging through log.
func NewHandler(log logger.Logger, opts ...Option) *Handler {
	h := &Handler{
		log:          log,
		random:       NewRandomSource(0),
		bucketPrefix: DefaultBucketPrefix,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the endpoints on r.
func (h *Handler) Register(r router.Router) {
	r.GET("/s3", h.S3)
	r.GET("/rds", h.RDS)
	r.GET("/health", h.Health)
}

// S3 simulates a bucket accessibility check.
func (h *Handler) S3(c router.Context) error {
	ctx := c.Request().Context()
	bucket := h.bucketPrefix + strconv.Itoa(h.random.Intn(drawRange))
	ok := h.random.Float32() > s3SuccessAbove

	resp := S3Response{Bucket: bucket, Status: http.StatusOK, Message: MessageS3Success}
	if !ok {
		resp.Status, resp.Message = http.StatusFailedDependency, MessageS3Failure
	}

	_, span := tracing.StartDependencySpan(ctx, EndpointS3, attribute.String("s3.bucket", bucket))
	tracing.EndDependencySpan(span, ok, resp.Message)

	h.report(ctx, EndpointS3, ok, resp.Message)
	return c.JSON(resp.Status, resp)
}

// RDS simulates a database query.
func (h *Handler) RDS(c router.Context) error {
	ctx := c.Request().Context()
	result := h.random.Intn(drawRange)
	ok := result > rdsSuccessAbove

	resp := RDSResponse{QueryResult: result, Status: http.StatusOK, Message: MessageRDSSuccess}
	if !ok {
		resp.Status, resp.Message = http.StatusFailedDependency, MessageRDSFailure
	}

	_, span := tracing.StartDependencySpan(ctx, EndpointRDS, attribute.Int("rds.query_result", result))
	tracing.EndDependencySpan(span, ok, resp.Message)

	h.report(ctx, EndpointRDS, ok, resp.Message)
	return c.JSON(resp.Status, resp)
}

// Health always reports healthy.
func (h *Handler) Health(c router.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: healthStatusText})
}

// report tags the request with its endpoint, then logs the outcome at info
// on success and error on failure.
func (h *Handler) report(ctx context.Context, endpoint string, ok bool, message string) {
	correlation.Set(ctx, correlation.KeyEndpoint, endpoint)

	outcome := metrics.OutcomeSuccess
	if ok {
		h.log.WithContext(ctx).Info(message)
	} else {
		outcome = metrics.OutcomeFailure
		h.log.WithContext(ctx).Error(message)
	}
	if h.outcomes != nil {
		h.outcomes.Record(endpoint, outcome)
	}
}
