package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nimburion/validation-app/pkg/observability/metrics"
	"github.com/nimburion/validation-app/pkg/server/router"
	"github.com/nimburion/validation-app/pkg/server/router/nethttp"
)

func scrape(t *testing.T, registry *metrics.Registry) string {
	t.Helper()
	rec := httptest.NewRecorder()
	registry.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}

func TestMetrics_RecordsStatus(t *testing.T) {
	registry := metrics.NewRegistry()

	r := nethttp.NewRouter()
	r.Use(Metrics(registry.HTTP))
	r.GET("/rds", func(c router.Context) error {
		return c.String(http.StatusFailedDependency, "failed")
	})

	for i := 0; i < 2; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/rds", nil))
	}

	body := scrape(t, registry)
	if !strings.Contains(body, `http_requests_total{method="GET",path="/rds",status="424"} 2`) {
		t.Errorf("expected two 424 samples:\n%s", body)
	}
	if !strings.Contains(body, "http_requests_in_flight 0") {
		t.Errorf("expected in-flight gauge back at zero:\n%s", body)
	}
}

func TestMetrics_ErrorCountsAsServerError(t *testing.T) {
	registry := metrics.NewRegistry()

	r := nethttp.NewRouter()
	r.Use(Metrics(registry.HTTP))
	r.GET("/error", func(c router.Context) error {
		return errors.New("test error")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/error", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if body := scrape(t, registry); !strings.Contains(body, `http_requests_total{method="GET",path="/error",status="500"} 1`) {
		t.Errorf("expected a 500 sample:\n%s", body)
	}
}
