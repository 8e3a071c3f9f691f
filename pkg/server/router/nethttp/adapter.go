// Package nethttp implements router.Router on the standard library ServeMux.
package nethttp

import (
	"net/http"
	"sync"

	"github.com/nimburion/validation-app/pkg/server/router"
)

// Router implements router.Router using http.ServeMux method patterns.
type Router struct {
	mux        *http.ServeMux
	root       *Router
	prefix     string
	middleware []router.MiddlewareFunc
	mu         *sync.RWMutex
}

// NewRouter creates a root Router.
func NewRouter() *Router {
	r := &Router{
		mux: http.NewServeMux(),
		mu:  &sync.RWMutex{},
	}
	r.root = r
	return r
}

// GET registers a GET route.
func (r *Router) GET(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.Handle(http.MethodGet, path, handler, middleware...)
}

// Handle registers a route for method and path.
func (r *Router) Handle(method, path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	h := router.Chain(handler, append(r.snapshot(), middleware...)...)
	r.mux.Handle(method+" "+r.prefix+path, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		router.Serve(w, req, h)
	}))
}

// Group returns a router sharing the mux under prefix.
func (r *Router) Group(prefix string, middleware ...router.MiddlewareFunc) router.Router {
	return &Router{
		mux:        r.mux,
		root:       r.root,
		prefix:     r.prefix + prefix,
		middleware: append(r.snapshot(), middleware...),
		mu:         r.mu,
	}
}

// Use appends middleware for routes registered afterwards.
func (r *Router) Use(middleware ...router.MiddlewareFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middleware = append(r.middleware, middleware...)
}

// ServeHTTP dispatches to the matching route. Requests without a matching
// pattern still run through the root middleware before the 404.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if _, pattern := r.mux.Handler(req); pattern == "" {
		router.Serve(w, req, router.Chain(router.NotFound, r.root.snapshot()...))
		return
	}
	r.mux.ServeHTTP(w, req)
}

func (r *Router) snapshot() []router.MiddlewareFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]router.MiddlewareFunc{}, r.middleware...)
}
