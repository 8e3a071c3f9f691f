package server

import (
	"net/http"
	"time"

	"github.com/nimburion/validation-app/pkg/config"
	"github.com/nimburion/validation-app/pkg/health"
	correlationmw "github.com/nimburion/validation-app/pkg/middleware/correlation"
	"github.com/nimburion/validation-app/pkg/middleware/logging"
	"github.com/nimburion/validation-app/pkg/middleware/recovery"
	"github.com/nimburion/validation-app/pkg/observability/logger"
	"github.com/nimburion/validation-app/pkg/observability/metrics"
	"github.com/nimburion/validation-app/pkg/server/router"
	"github.com/nimburion/validation-app/pkg/version"
)

const managementIdleTimeout = 60 * time.Second

// ManagementServer serves operational endpoints on a port separate from the
// public API:
//   - /health: liveness, always 200
//   - /ready: aggregated health registry result, 200 or 503
//   - /metrics: Prometheus exposition
//   - /version: build metadata
type ManagementServer struct {
	*Server
	router          router.Router
	healthRegistry  *health.Registry
	metricsRegistry *metrics.Registry
	versionInfo     version.Info
}

// NewManagementServer mounts the management endpoints on r. Metric scrapes
// and liveness checks are not request-logged.
func NewManagementServer(
	cfg config.ManagementConfig,
	r router.Router,
	log logger.Logger,
	healthRegistry *health.Registry,
	metricsRegistry *metrics.Registry,
	info version.Info,
) *ManagementServer {
	loggingCfg := logging.DefaultConfig()
	loggingCfg.LogStart = false
	loggingCfg.PathPolicies = []logging.PathPolicy{
		{Prefix: "/metrics", Mode: logging.ModeOff},
		{Prefix: "/health", Mode: logging.ModeOff},
	}
	r.Use(
		correlationmw.Tag(),
		logging.WithConfig(log, loggingCfg),
		recovery.Recovery(log),
	)

	serverCfg := Config{
		Port:         cfg.Port,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  managementIdleTimeout,
	}

	s := &ManagementServer{
		Server:          NewServer("management", serverCfg, r, log),
		router:          r,
		healthRegistry:  healthRegistry,
		metricsRegistry: metricsRegistry,
		versionInfo:     info,
	}
	r.GET("/health", s.handleHealth)
	r.GET("/ready", s.handleReady)
	r.GET("/metrics", s.handleMetrics)
	r.GET("/version", s.handleVersion)
	return s
}

func (s *ManagementServer) handleHealth(c router.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": string(health.StatusHealthy)})
}

// handleReady answers 503 when any registered check is unhealthy.
func (s *ManagementServer) handleReady(c router.Context) error {
	result := s.healthRegistry.Check(c.Request().Context())
	if !result.IsHealthy() {
		return c.JSON(http.StatusServiceUnavailable, result)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *ManagementServer) handleMetrics(c router.Context) error {
	s.metricsRegistry.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}

func (s *ManagementServer) handleVersion(c router.Context) error {
	return c.JSON(http.StatusOK, s.versionInfo)
}

// Router returns the underlying router for registering extra routes.
func (s *ManagementServer) Router() router.Router {
	return s.router
}
