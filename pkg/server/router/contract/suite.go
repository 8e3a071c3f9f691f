// Package contract holds the conformance suite every router adapter must pass.
package contract

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nimburion/validation-app/pkg/server/router"
)

// TestRouterContract runs the shared router conformance suite.
func TestRouterContract(t *testing.T, createRouter func() router.Router) {
	t.Helper()

	t.Run("methods", func(t *testing.T) {
		r := createRouter()
		r.GET("/s3", func(c router.Context) error { return c.String(http.StatusOK, "get") })
		r.Handle(http.MethodPost, "/s3", func(c router.Context) error { return c.String(http.StatusOK, "post") })

		if res := perform(r, http.MethodGet, "/s3"); res.Code != http.StatusOK || res.Body.String() != "get" {
			t.Fatalf("expected GET handler, got %d %q", res.Code, res.Body.String())
		}
		if res := perform(r, http.MethodPost, "/s3"); res.Code != http.StatusOK || res.Body.String() != "post" {
			t.Fatalf("expected POST handler, got %d %q", res.Code, res.Body.String())
		}
		if res := perform(r, http.MethodGet, "/missing"); res.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for unregistered route, got %d", res.Code)
		}
	})

	t.Run("groups", func(t *testing.T) {
		r := createRouter()
		api := r.Group("/api", func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				c.Set("group", "api")
				return next(c)
			}
		})
		api.GET("/rds", func(c router.Context) error {
			return c.String(http.StatusOK, c.Get("group").(string))
		})
		api.Group("/v1").GET("/rds", func(c router.Context) error {
			return c.String(http.StatusOK, "nested-"+c.Get("group").(string))
		})

		if res := perform(r, http.MethodGet, "/api/rds"); res.Body.String() != "api" {
			t.Fatalf("expected group middleware value, got %q", res.Body.String())
		}
		if res := perform(r, http.MethodGet, "/api/v1/rds"); res.Body.String() != "nested-api" {
			t.Fatalf("expected nested group to inherit middleware, got %q", res.Body.String())
		}
	})

	t.Run("middleware_order", func(t *testing.T) {
		r := createRouter()
		var order []string
		stage := func(name string) router.MiddlewareFunc {
			return func(next router.HandlerFunc) router.HandlerFunc {
				return func(c router.Context) error {
					order = append(order, name+":in")
					err := next(c)
					order = append(order, name+":out")
					return err
				}
			}
		}
		r.Use(stage("outer"), stage("inner"))
		r.GET("/health", func(c router.Context) error {
			order = append(order, "handler")
			return c.String(http.StatusOK, "ok")
		}, stage("route"))

		perform(r, http.MethodGet, "/health")

		want := []string{"outer:in", "inner:in", "route:in", "handler", "route:out", "inner:out", "outer:out"}
		if strings.Join(order, ",") != strings.Join(want, ",") {
			t.Fatalf("unexpected stage order: %v", order)
		}
	})

	t.Run("unmatched_requests_pass_through_middleware", func(t *testing.T) {
		r := createRouter()
		tagged := false
		r.Use(func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				tagged = true
				return next(c)
			}
		})
		r.GET("/health", func(c router.Context) error { return c.String(http.StatusOK, "ok") })

		res := perform(r, http.MethodGet, "/nope")
		if res.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", res.Code)
		}
		if !tagged {
			t.Fatal("expected middleware to run for unmatched request")
		}
	})

	t.Run("trailing_slash_is_not_redirected", func(t *testing.T) {
		r := createRouter()
		runs := 0
		r.Use(func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				runs++
				c.Response().Header().Set("correlation-id", "slash-1")
				return next(c)
			}
		})
		r.GET("/s3", func(c router.Context) error { return c.String(http.StatusOK, "s3") })

		res := perform(r, http.MethodGet, "/s3/")
		if res.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for /s3/, got %d", res.Code)
		}
		if !strings.Contains(res.Header().Get("Content-Type"), "application/json") {
			t.Fatalf("expected JSON 404, got content type %q", res.Header().Get("Content-Type"))
		}
		if runs != 1 || res.Header().Get("correlation-id") != "slash-1" {
			t.Fatalf("expected middleware to run once and tag the 404, runs=%d header=%q", runs, res.Header().Get("correlation-id"))
		}
	})

	t.Run("errors", func(t *testing.T) {
		r := createRouter()
		r.GET("/boom", func(c router.Context) error { return errors.New("boom") })
		r.GET("/written", func(c router.Context) error {
			if err := c.String(http.StatusFailedDependency, "dep"); err != nil {
				return err
			}
			return errors.New("ignored")
		})

		if res := perform(r, http.MethodGet, "/boom"); res.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", res.Code)
		}
		res := perform(r, http.MethodGet, "/written")
		if res.Code != http.StatusFailedDependency || res.Body.String() != "dep" {
			t.Fatalf("expected written response to stand, got %d %q", res.Code, res.Body.String())
		}
	})

	t.Run("json_and_status", func(t *testing.T) {
		r := createRouter()
		r.GET("/json", func(c router.Context) error {
			if c.Response().Written() {
				t.Error("expected unwritten response before JSON")
			}
			err := c.JSON(http.StatusFailedDependency, map[string]int{"status": 424})
			if c.Response().Status() != http.StatusFailedDependency {
				t.Errorf("expected recorded status 424, got %d", c.Response().Status())
			}
			return err
		})

		res := perform(r, http.MethodGet, "/json")
		if res.Code != http.StatusFailedDependency {
			t.Fatalf("expected 424, got %d", res.Code)
		}
		if !strings.Contains(res.Header().Get("Content-Type"), "application/json") {
			t.Fatalf("expected json content type, got %q", res.Header().Get("Content-Type"))
		}
		if strings.TrimSpace(res.Body.String()) != `{"status":424}` {
			t.Fatalf("unexpected body %q", res.Body.String())
		}
	})

	t.Run("request_replacement", func(t *testing.T) {
		r := createRouter()
		r.Use(func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				req := c.Request().Clone(c.Request().Context())
				req.Header.Set("X-Stage", "tagged")
				c.SetRequest(req)
				return next(c)
			}
		})
		r.GET("/hdr", func(c router.Context) error {
			return c.String(http.StatusOK, c.Request().Header.Get("X-Stage"))
		})

		if res := perform(r, http.MethodGet, "/hdr"); res.Body.String() != "tagged" {
			t.Fatalf("expected replaced request to reach handler, got %q", res.Body.String())
		}
	})
}

func perform(r router.Router, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
