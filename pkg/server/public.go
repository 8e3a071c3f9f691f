package server

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/nimburion/validation-app/pkg/config"
	correlationmw "github.com/nimburion/validation-app/pkg/middleware/correlation"
	"github.com/nimburion/validation-app/pkg/middleware/logging"
	metricsmw "github.com/nimburion/validation-app/pkg/middleware/metrics"
	"github.com/nimburion/validation-app/pkg/middleware/ratelimit"
	"github.com/nimburion/validation-app/pkg/middleware/recovery"
	"github.com/nimburion/validation-app/pkg/middleware/tracing"
	"github.com/nimburion/validation-app/pkg/observability/logger"
	"github.com/nimburion/validation-app/pkg/observability/metrics"
	"github.com/nimburion/validation-app/pkg/server/router"
	"github.com/nimburion/validation-app/pkg/validation"
)

// PublicAPIServer serves the mock dependency endpoints.
type PublicAPIServer struct {
	*Server
	router  router.Router
	limiter ratelimit.RateLimiter

	closeOnce sync.Once
}

// PublicOptions carries the collaborators of the public server. Every field
// is optional except Logger.
type PublicOptions struct {
	Logger  logger.Logger
	Metrics *metrics.Registry
	// Limiter enables rate limiting when set.
	Limiter ratelimit.RateLimiter
	// Random overrides the source derived from mock.seed.
	Random validation.RandomSource
}

// NewPublicAPIServer mounts /s3, /rds and /health on r behind the middleware
// stack, in this order from outermost:
//
//  1. correlation tagging
//  2. request logging (observability.request_logging)
//  3. panic recovery
//  4. tracing (observability.tracing_enabled)
//  5. HTTP metrics (when a registry is given)
//  6. rate limiting (when a limiter is given)
func NewPublicAPIServer(cfg *config.Config, r router.Router, opts PublicOptions) (*PublicAPIServer, error) {
	if opts.Logger == nil {
		return nil, fmt.Errorf("public server: logger is required")
	}
	strategy, ok := correlationmw.ParseStrategy(cfg.Correlation.Strategy)
	if !ok {
		return nil, fmt.Errorf("public server: unknown correlation strategy %q", cfg.Correlation.Strategy)
	}
	log := opts.Logger

	type middlewareEntry struct {
		name string
		fn   router.MiddlewareFunc
	}
	namedMiddlewares := []middlewareEntry{
		{name: "correlation", fn: correlationmw.WithConfig(correlationmw.Config{
			Header:     cfg.Correlation.Header,
			Prefix:     cfg.Correlation.Prefix,
			Strategy:   strategy,
			EchoHeader: cfg.Correlation.EchoHeader,
		})},
	}
	if cfg.Observability.RequestLogging {
		namedMiddlewares = append(namedMiddlewares, middlewareEntry{name: "logging", fn: logging.WithConfig(log, logging.DefaultConfig())})
	}
	namedMiddlewares = append(namedMiddlewares, middlewareEntry{name: "recovery", fn: recovery.Recovery(log)})
	if cfg.Observability.TracingEnabled {
		namedMiddlewares = append(namedMiddlewares, middlewareEntry{name: "tracing", fn: tracing.Tracing(tracing.Config{TracerName: cfg.Service.Name})})
	}
	if opts.Metrics != nil {
		namedMiddlewares = append(namedMiddlewares, middlewareEntry{name: "metrics", fn: metricsmw.Metrics(opts.Metrics.HTTP)})
	}
	if opts.Limiter != nil {
		namedMiddlewares = append(namedMiddlewares, middlewareEntry{name: "rate_limit", fn: ratelimit.RateLimit(opts.Limiter, ratelimit.Config{})})
	}

	middlewareFuncs := make([]router.MiddlewareFunc, 0, len(namedMiddlewares))
	middlewareNames := make([]string, 0, len(namedMiddlewares))
	for _, entry := range namedMiddlewares {
		middlewareFuncs = append(middlewareFuncs, entry.fn)
		middlewareNames = append(middlewareNames, entry.name)
	}
	log.Debug("active middleware stack", "middlewares", strings.Join(middlewareNames, ", "))
	r.Use(middlewareFuncs...)

	random := opts.Random
	if random == nil {
		random = validation.NewRandomSource(cfg.Mock.Seed)
	}
	handlerOpts := []validation.Option{
		validation.WithRandomSource(random),
		validation.WithBucketPrefix(cfg.Mock.BucketPrefix),
	}
	if opts.Metrics != nil {
		handlerOpts = append(handlerOpts, validation.WithOutcomeRecorder(opts.Metrics.Outcomes))
	}
	validation.NewHandler(log, handlerOpts...).Register(r)

	serverCfg := Config{
		Port:            cfg.HTTP.Port,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		IdleTimeout:     cfg.HTTP.IdleTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}
	return &PublicAPIServer{
		Server:  NewServer("public", serverCfg, r, log),
		router:  r,
		limiter: opts.Limiter,
	}, nil
}

// Start serves until ctx is cancelled, then releases the rate limiter backend.
func (s *PublicAPIServer) Start(ctx context.Context) error {
	err := s.Server.Start(ctx)
	if closeErr := s.closeLimiter(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// Shutdown stops the server, then releases the rate limiter backend.
func (s *PublicAPIServer) Shutdown(ctx context.Context) error {
	if err := s.Server.Shutdown(ctx); err != nil {
		return err
	}
	return s.closeLimiter()
}

func (s *PublicAPIServer) closeLimiter() error {
	var err error
	s.closeOnce.Do(func() {
		if closer, ok := s.limiter.(io.Closer); ok {
			err = closer.Close()
		}
	})
	return err
}

// Router returns the router the endpoints are mounted on.
func (s *PublicAPIServer) Router() router.Router {
	return s.router
}
