// Package gorilla implements router.Router on gorilla/mux.
package gorilla

import (
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/nimburion/validation-app/pkg/server/router"
)

// Router implements router.Router using a gorilla/mux router.
type Router struct {
	mux        *mux.Router
	root       *Router
	middleware []router.MiddlewareFunc
	mu         *sync.RWMutex
}

// NewRouter creates a root Router.
func NewRouter() *Router {
	r := &Router{
		mux: mux.NewRouter(),
		mu:  &sync.RWMutex{},
	}
	r.root = r
	notFound := http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		router.Serve(w, req, router.Chain(router.NotFound, r.snapshot()...))
	})
	// A method mismatch answers like an unknown path, as in the other adapters.
	r.mux.NotFoundHandler = notFound
	r.mux.MethodNotAllowedHandler = notFound
	return r
}

// GET registers a GET route.
func (r *Router) GET(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.Handle(http.MethodGet, path, handler, middleware...)
}

// Handle registers a route for method and path.
func (r *Router) Handle(method, path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	h := router.Chain(handler, append(r.snapshot(), middleware...)...)
	r.mux.HandleFunc(path, func(w http.ResponseWriter, req *http.Request) {
		router.Serve(w, req, h)
	}).Methods(method)
}

// Group returns a router bound to a path-prefix subrouter.
func (r *Router) Group(prefix string, middleware ...router.MiddlewareFunc) router.Router {
	return &Router{
		mux:        r.mux.PathPrefix(prefix).Subrouter(),
		root:       r.root,
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

// ServeHTTP implements http.Handler.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

func (r *Router) snapshot() []router.MiddlewareFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]router.MiddlewareFunc{}, r.middleware...)
}
