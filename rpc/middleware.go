package rpc

import "net/http"

// WithMiddleware runs this chain of work before executing the actual HTTP handler for
// every endpoint.
func WithMiddleware(mw ...MiddlewareFunc) GatewayOption {
	return func(gw *Gateway) {
		for _, fn := range mw {
			gw.middleware = append(gw.middleware, fn)
		}
	}
}

// Middleware is a component that conforms to the 'negroni' middleware handler. It accepts
// the standard HTTP inputs as well as the rest of the computation.
type Middleware interface {
	ServeHTTP(w http.ResponseWriter, req *http.Request, next http.HandlerFunc)
}

// MiddlewareFunc is the function form of Middleware. Any negroni.HandlerFunc converts to it.
type MiddlewareFunc func(w http.ResponseWriter, req *http.Request, next http.HandlerFunc)

// ServeHTTP basically calls itself so that a bare function can be used anywhere a
// Middleware is expected.
func (mw MiddlewareFunc) ServeHTTP(w http.ResponseWriter, req *http.Request, next http.HandlerFunc) {
	mw(w, req, next)
}

// middlewarePipeline is a chain of middleware handlers that fire in succession before
// ultimately executing the "real" HTTP handler for the endpoint.
type middlewarePipeline []Middleware

// Then wraps all of the middleware handlers capped off with the "real work" handler into
// a single handler function that can be used by a standard net/http server.
func (pipeline middlewarePipeline) Then(handler http.HandlerFunc) http.HandlerFunc {
	for i := len(pipeline) - 1; i >= 0; i-- {
		mw := pipeline[i]
		next := handler
		handler = func(res http.ResponseWriter, req *http.Request) {
			mw.ServeHTTP(res, req, next)
		}
	}
	return handler
}
