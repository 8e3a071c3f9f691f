// Package gin implements router.Router on gin-gonic/gin.
package gin

import (
	"net/http"
	"sync"

	ginpkg "github.com/gin-gonic/gin"

	"github.com/nimburion/validation-app/pkg/server/router"
)

// Router implements router.Router using a gin engine. gin's own middleware
// chain is bypassed; stages are composed with router.Chain.
type Router struct {
	engine     *ginpkg.Engine
	group      *ginpkg.RouterGroup
	root       *Router
	middleware []router.MiddlewareFunc
	mu         *sync.RWMutex
}

// NewRouter creates a root Router with gin in release mode. Trailing-slash
// and fixed-path redirects are disabled so near-miss paths reach NoRoute and
// run through the root middleware like on the other adapters.
func NewRouter() *Router {
	ginpkg.SetMode(ginpkg.ReleaseMode)
	engine := ginpkg.New()
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false
	r := &Router{
		engine: engine,
		group:  &engine.RouterGroup,
		mu:     &sync.RWMutex{},
	}
	r.root = r
	engine.NoRoute(func(gc *ginpkg.Context) {
		router.Serve(gc.Writer, gc.Request, router.Chain(router.NotFound, r.snapshot()...))
	})
	return r
}

// GET registers a GET route.
func (r *Router) GET(path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	r.Handle(http.MethodGet, path, handler, middleware...)
}

// Handle registers a route for method and path.
func (r *Router) Handle(method, path string, handler router.HandlerFunc, middleware ...router.MiddlewareFunc) {
	h := router.Chain(handler, append(r.snapshot(), middleware...)...)
	r.group.Handle(method, path, func(gc *ginpkg.Context) {
		router.Serve(gc.Writer, gc.Request, h)
	})
}

// Group returns a router bound to a gin route group.
func (r *Router) Group(prefix string, middleware ...router.MiddlewareFunc) router.Router {
	return &Router{
		engine:     r.engine,
		group:      r.group.Group(prefix),
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
	r.engine.ServeHTTP(w, req)
}

func (r *Router) snapshot() []router.MiddlewareFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]router.MiddlewareFunc{}, r.middleware...)
}
