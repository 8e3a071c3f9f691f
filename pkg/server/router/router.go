// Package router defines the HTTP routing contract shared by the net/http,
// gin and gorilla/mux adapters, and the explicit middleware composition the
// adapters use to build each request pipeline.
package router

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
)

// Router registers routes and serves them.
//
// Middleware added with Use applies to routes registered after the call and
// to requests that match no route.
type Router interface {
	GET(path string, handler HandlerFunc, middleware ...MiddlewareFunc)
	Handle(method, path string, handler HandlerFunc, middleware ...MiddlewareFunc)

	// Group returns a router whose routes share prefix and middleware.
	Group(prefix string, middleware ...MiddlewareFunc) Router

	Use(middleware ...MiddlewareFunc)

	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// HandlerFunc handles one request.
type HandlerFunc func(Context) error

// MiddlewareFunc wraps the next stage of the pipeline.
type MiddlewareFunc func(HandlerFunc) HandlerFunc

// Context gives handlers and middleware router-agnostic access to a request.
type Context interface {
	Request() *http.Request
	// SetRequest replaces the request, e.g. to attach a derived context.
	SetRequest(r *http.Request)

	Response() ResponseWriter

	JSON(code int, v interface{}) error
	String(code int, s string) error

	Get(key string) interface{}
	Set(key string, value interface{})
}

// ResponseWriter is an http.ResponseWriter that remembers the status it sent.
type ResponseWriter interface {
	http.ResponseWriter
	// Status returns the written status, or 200 when nothing was written yet.
	Status() int
	Written() bool
}

// Chain composes middleware around h. The first middleware is the outermost
// stage: it runs first on the way in and last on the way out.
func Chain(h HandlerFunc, middleware ...MiddlewareFunc) HandlerFunc {
	for i := len(middleware) - 1; i >= 0; i-- {
		if middleware[i] == nil {
			continue
		}
		h = middleware[i](h)
	}
	return h
}

// Serve runs h for one request and converts an unhandled error into a 500
// when no response has been written yet.
func Serve(w http.ResponseWriter, r *http.Request, h HandlerFunc) {
	c := NewContext(w, r)
	if err := h(c); err != nil && !c.Response().Written() {
		http.Error(c.Response(), http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// NotFound answers 404 in JSON.
func NotFound(c Context) error {
	return c.JSON(http.StatusNotFound, map[string]string{"error": "not_found"})
}

// NewContext returns the Context implementation shared by the adapters.
func NewContext(w http.ResponseWriter, r *http.Request) Context {
	return &baseContext{
		request:  r,
		response: NewResponseWriter(w),
		store:    make(map[string]interface{}),
	}
}

type baseContext struct {
	request  *http.Request
	response ResponseWriter
	mu       sync.RWMutex
	store    map[string]interface{}
}

func (c *baseContext) Request() *http.Request     { return c.request }
func (c *baseContext) SetRequest(r *http.Request) { c.request = r }
func (c *baseContext) Response() ResponseWriter   { return c.response }

func (c *baseContext) JSON(code int, v interface{}) error {
	c.response.Header().Set("Content-Type", "application/json")
	c.response.WriteHeader(code)
	return json.NewEncoder(c.response).Encode(v)
}

func (c *baseContext) String(code int, s string) error {
	c.response.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.response.WriteHeader(code)
	_, err := io.WriteString(c.response, s)
	return err
}

func (c *baseContext) Get(key string) interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store[key]
}

func (c *baseContext) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = value
}

// NewResponseWriter wraps w so the written status can be observed.
func NewResponseWriter(w http.ResponseWriter) ResponseWriter {
	return &statusWriter{ResponseWriter: w}
}

type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(code int) {
	if w.written {
		return
	}
	w.status = code
	w.written = true
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (w *statusWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *statusWriter) Written() bool { return w.written }
