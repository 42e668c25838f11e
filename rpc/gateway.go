package rpc

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"strings"

	"github.com/dimfeld/httptreemux/v5"
	"github.com/monadicstack/livepost/session"
	"github.com/monadicstack/respond"
)

// NewGateway creates the HTTP front door for component operations. Register endpoints on
// it and hand it to any standard library HTTP server.
func NewGateway(options ...GatewayOption) Gateway {
	router := httptreemux.New()
	gw := Gateway{
		Router:      router,
		routerGroup: router.UsingContext(),
		Binder:      jsonBinder{},
		middleware:  middlewarePipeline{},
		PathPrefix:  "",
		endpoints:   map[route]Endpoint{},
	}
	for _, option := range options {
		option(&gw)
	}

	// The middleware is applied per endpoint inside Register() rather than around the
	// router so that the router runs first. That way 'restoreEndpoint' can see which
	// route matched before any of your middleware fires:
	//
	//   ROUTER->recover->restoreEndpoint->restoreSession->your_middleware->handler
	mw := middlewarePipeline{
		MiddlewareFunc(recoverFromPanic),
		MiddlewareFunc(restoreEndpoint),
		MiddlewareFunc(restoreSession),
	}
	gw.middleware = append(mw, gw.middleware...)
	return gw
}

// GatewayOption defines a setting you can apply when creating a gateway via 'NewGateway'.
type GatewayOption func(*Gateway)

// WithSessions attaches the registry used to resolve the session cookie on every request
// to an endpoint that wants one.
func WithSessions(registry *session.Registry) GatewayOption {
	return func(gw *Gateway) {
		gw.Sessions = registry
	}
}

// Gateway routes incoming calls to the handlers of the registered endpoints.
type Gateway struct {
	Router      *httptreemux.TreeMux
	routerGroup *httptreemux.ContextGroup
	Binder      Binder
	PathPrefix  string
	// Sessions, when set, provides the per-browser session for endpoints that need one.
	Sessions   *session.Registry
	middleware middlewarePipeline
	endpoints  map[route]Endpoint
}

// Register exposes the endpoint through the gateway.
func (gw *Gateway) Register(endpoint Endpoint) {
	// Users refer to the endpoint by the path they registered ("/rpc/Posts.Edit/:id") but
	// the router needs the full path including the optional prefix (e.g. "/v2").
	path := toEndpointPath(gw.PathPrefix, endpoint.Path)
	method := strings.ToUpper(endpoint.Method)

	gw.endpoints[route{method: method, path: path}] = endpoint
	gw.routerGroup.Handle(method, path, gw.middleware.Then(endpoint.Handler))
}

// Endpoints returns every registered endpoint, keyed by "METHOD /path".
func (gw Gateway) Endpoints() map[string]Endpoint {
	results := make(map[string]Endpoint, len(gw.endpoints))
	for r, endpoint := range gw.endpoints {
		results[r.method+" "+r.path] = endpoint
	}
	return results
}

// ServeHTTP is the central HTTP handler that includes all routing, middleware and
// forwarding to the endpoint handlers.
func (gw Gateway) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	ctx := context.WithValue(req.Context(), contextKeyGateway{}, &gw)
	gw.Router.ServeHTTP(w, req.WithContext(ctx))
}

// Endpoint describes an operation that we expose through the gateway.
type Endpoint struct {
	// The HTTP method that should be used when exposing this endpoint in the gateway.
	Method string
	// The HTTP path pattern (httptreemux syntax) used when exposing this endpoint.
	Path string
	// Component is the name of the component that owns this operation (e.g. "Posts").
	Component string
	// Name is the name of the operation that this endpoint describes (e.g. "Store").
	Name string
	// NoSession skips session resolution; used for things like static assets.
	NoSession bool
	// Handler is the gateway function that does the "work".
	Handler http.HandlerFunc
}

// String returns the fully qualified "Component.Operation" descriptor for the operation.
func (e Endpoint) String() string {
	return e.Component + "." + e.Name
}

type contextKeyGateway struct{}
type contextKeyEndpoint struct{}

// EndpointFromContext fetches the details of the operation we're currently invoking.
func EndpointFromContext(ctx context.Context) *Endpoint {
	if ctx == nil {
		return nil
	}

	endpoint, ok := ctx.Value(contextKeyEndpoint{}).(Endpoint)
	if !ok {
		return nil
	}
	return &endpoint
}

// recoverFromPanic turns a panic in a handler or middleware into a 500 instead of a dead
// connection.
func recoverFromPanic(w http.ResponseWriter, req *http.Request, next http.HandlerFunc) {
	defer func() {
		if err := recover(); err != nil {
			respond.To(w, req).InternalServerError("%v", err)
		}
	}()
	next(w, req)
}

// restoreEndpoint places the Endpoint for the current route onto the request context so
// middleware and handlers can tell which operation is running.
func restoreEndpoint(w http.ResponseWriter, req *http.Request, next http.HandlerFunc) {
	gw, ok := req.Context().Value(contextKeyGateway{}).(*Gateway)
	if !ok {
		respond.To(w, req).InternalServerError("invalid rpc gateway context")
		return
	}

	routeData := httptreemux.ContextData(req.Context())
	routePath := routeData.Route()

	// A 500 rather than a 404: the router found a handler, so the route exists. What is
	// missing is our own book-keeping for it, which means the server is in a bad state.
	endpoint, ok := gw.endpoints[route{method: req.Method, path: routePath}]
	if !ok {
		respond.To(w, req).InternalServerError("no endpoint for route '%s %s'", req.Method, routePath)
		return
	}

	ctx := context.WithValue(req.Context(), contextKeyEndpoint{}, endpoint)
	next(w, req.WithContext(ctx))
}

// restoreSession resolves the session cookie (minting a new session and cookie when
// needed), puts the session on the context and holds its lock until the handler is done.
// Holding the lock is what keeps two events from the same browser from interleaving.
func restoreSession(w http.ResponseWriter, req *http.Request, next http.HandlerFunc) {
	gw, _ := req.Context().Value(contextKeyGateway{}).(*Gateway)
	endpoint := EndpointFromContext(req.Context())
	if gw == nil || gw.Sessions == nil || endpoint == nil || endpoint.NoSession {
		next(w, req)
		return
	}

	sess, created := gw.Sessions.Acquire(session.IDFromRequest(req))
	if created {
		http.SetCookie(w, gw.Sessions.Cookie(sess))
	}

	sess.Lock()
	defer sess.Unlock()

	ctx := session.WithSession(req.Context(), sess)
	next(w, req.WithContext(ctx))
}

// Combines the path to an endpoint (e.g. "/rpc/Posts.Store") and an optional prefix
// (e.g. "/v2"). The result is the complete path to this resource.
func toEndpointPath(prefix string, path string) string {
	prefix = strings.Trim(prefix, "/")
	path = strings.Trim(path, "/")

	switch prefix {
	case "":
		return "/" + path
	default:
		return "/" + prefix + "/" + path
	}
}

type route struct {
	method string
	path   string
}

// HTML is a reply body of rendered markup. Hand it to respond's Reply() and it is written
// as-is with a text/html content type instead of being JSON-encoded.
type HTML struct {
	markup []byte
}

// NewHTML wraps already-rendered markup.
func NewHTML(markup []byte) HTML {
	return HTML{markup: markup}
}

// Content returns the raw markup.
func (h HTML) Content() io.ReadCloser {
	return ioutil.NopCloser(bytes.NewReader(h.markup))
}

// ContentType is always UTF-8 HTML.
func (h HTML) ContentType() string {
	return "text/html; charset=utf-8"
}

// String returns the markup as text.
func (h HTML) String() string {
	return string(h.markup)
}
