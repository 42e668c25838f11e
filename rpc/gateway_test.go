package rpc_test

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dimfeld/httptreemux/v5"
	"github.com/monadicstack/livepost/internal/testext"
	"github.com/monadicstack/livepost/rpc"
	"github.com/monadicstack/livepost/session"
	"github.com/stretchr/testify/suite"
)

type GatewaySuite struct {
	suite.Suite
	HTTPClient *http.Client
}

func (suite *GatewaySuite) SetupTest() {
	timeout := 1 * time.Second
	jar, _ := cookiejar.New(nil)
	suite.HTTPClient = &http.Client{
		Timeout: timeout,
		Jar:     jar,
		Transport: &http.Transport{
			DialContext:         (&net.Dialer{Timeout: timeout}).DialContext,
			TLSHandshakeTimeout: timeout,
		},
	}
}

func (suite *GatewaySuite) TestNewGateway() {
	gateway := rpc.NewGateway()
	suite.Require().NotNil(gateway.Binder, "Gateway should have binder by default")
	suite.Require().Nil(gateway.Sessions, "Gateway should not track sessions unless asked to")
	suite.Require().Equal("", gateway.PathPrefix, "Gateway should not have a path prefix by default")

	registry := session.NewRegistry(time.Hour)
	gateway = rpc.NewGateway(
		func(g *rpc.Gateway) { g.Binder = nil },
		func(g *rpc.Gateway) { g.PathPrefix = "/v1" },
		func(g *rpc.Gateway) { g.PathPrefix = "/v2" },
		rpc.WithSessions(registry),
	)
	suite.Require().Nil(gateway.Binder, "Gateway should have functional options applied in order")
	suite.Require().Equal("/v2", gateway.PathPrefix, "Gateway should have functional options applied in order")
	suite.Require().Same(registry, gateway.Sessions)
}

// With nothing registered, even the obvious routes should 404.
func (suite *GatewaySuite) TestNoRoutes() {
	server := httptest.NewServer(rpc.NewGateway())
	defer server.Close()

	status, _, err := suite.request(server, "GET", "/", "")
	suite.Require().NoError(err)
	suite.Require().Equal(404, status)

	status, _, err = suite.request(server, "POST", "/rpc/Posts.Store", "")
	suite.Require().NoError(err)
	suite.Require().Equal(404, status)
}

func (suite *GatewaySuite) TestRegister() {
	gateway := rpc.NewGateway()
	gateway.Register(rpc.Endpoint{
		Method:    "POST",
		Path:      "/rpc/Posts.Store",
		Component: "Posts",
		Name:      "Store",
		Handler: func(w http.ResponseWriter, req *http.Request) {
			suite.respond(w, 200, "stored")
		},
	})
	gateway.Register(rpc.Endpoint{
		Method:    "post",
		Path:      "rpc/Posts.Edit/:id",
		Component: "Posts",
		Name:      "Edit",
		Handler: func(w http.ResponseWriter, req *http.Request) {
			params := httptreemux.ContextParams(req.Context())
			suite.respond(w, 200, "editing "+params["id"])
		},
	})

	server := httptest.NewServer(gateway)
	defer server.Close()

	status, result, err := suite.request(server, "POST", "/rpc/Posts.Store", `{"title":"A"}`)
	suite.Require().NoError(err)
	suite.Require().Equal(200, status)
	suite.Require().Equal("stored", result)

	status, result, err = suite.request(server, "POST", "/rpc/Posts.Edit/42", "")
	suite.Require().NoError(err)
	suite.Require().Equal(200, status, "Method should be case insensitive and leading slash optional")
	suite.Require().Equal("editing 42", result)

	status, _, err = suite.request(server, "GET", "/rpc/Posts.Store", "")
	suite.Require().NoError(err)
	suite.Require().Equal(405, status, "Wrong method on a known path should be 405")

	status, _, err = suite.request(server, "POST", "/rpc/Posts.Destroy", "")
	suite.Require().NoError(err)
	suite.Require().Equal(404, status)

	endpoints := gateway.Endpoints()
	suite.Require().Len(endpoints, 2)
	suite.Require().Equal("Posts.Edit", endpoints["POST /rpc/Posts.Edit/:id"].String())
}

// Middleware and handlers should all be able to see which operation is running.
func (suite *GatewaySuite) TestEndpointFromContext() {
	values := &testext.Sequence{}

	middlewareA := func(w http.ResponseWriter, req *http.Request, next http.HandlerFunc) {
		e := rpc.EndpointFromContext(req.Context())
		values.Append(fmt.Sprintf("%s.A", e.String()))
		next(w, req)
	}
	middlewareB := func(w http.ResponseWriter, req *http.Request, next http.HandlerFunc) {
		e := rpc.EndpointFromContext(req.Context())
		values.Append(fmt.Sprintf("%s.B", e.String()))
		next(w, req)
	}

	gateway := rpc.NewGateway(rpc.WithMiddleware(middlewareA, middlewareB))
	gateway.Register(rpc.Endpoint{
		Method:    "POST",
		Path:      "/rpc/Posts.Cancel",
		Component: "Posts",
		Name:      "Cancel",
		Handler: func(w http.ResponseWriter, req *http.Request) {
			e := rpc.EndpointFromContext(req.Context())
			values.Append(fmt.Sprintf("%s.C", e.String()))
			suite.respond(w, 200, "ok")
		},
	})

	server := httptest.NewServer(gateway)
	defer server.Close()

	status, result, err := suite.request(server, "POST", "/rpc/Posts.Cancel", "")
	suite.Require().NoError(err)
	suite.Require().Equal(200, status)
	suite.Require().Equal("ok", result)
	suite.Require().Equal("Posts.Cancel.A", values.Value(0), "Middleware A did not fetch endpoint properly")
	suite.Require().Equal("Posts.Cancel.B", values.Value(1), "Middleware B did not fetch endpoint properly")
	suite.Require().Equal("Posts.Cancel.C", values.Value(2), "Handler did not fetch endpoint properly")
	suite.Require().Len(values.Values(), 3)
}

func (suite *GatewaySuite) TestEndpointFromContext_missing() {
	suite.Require().Nil(rpc.EndpointFromContext(nil))
	suite.Require().Nil(rpc.EndpointFromContext(context.Background()))
}

// The first call mints a session and cookie; later calls carrying the cookie land in the
// same session. A second browser (no cookie) gets its own.
func (suite *GatewaySuite) TestSessions() {
	registry := session.NewRegistry(time.Hour)
	gateway := rpc.NewGateway(rpc.WithSessions(registry))
	gateway.Register(rpc.Endpoint{
		Method: "POST",
		Path:   "/rpc/Posts.Render",
		Handler: func(w http.ResponseWriter, req *http.Request) {
			suite.respond(w, 200, session.FromContext(req.Context()).ID)
		},
	})

	server := httptest.NewServer(gateway)
	defer server.Close()

	_, first, err := suite.request(server, "POST", "/rpc/Posts.Render", "")
	suite.Require().NoError(err)
	suite.Require().NotEmpty(first)

	_, second, err := suite.request(server, "POST", "/rpc/Posts.Render", "")
	suite.Require().NoError(err)
	suite.Require().Equal(first, second, "Cookie should bring us back to the same session")
	suite.Require().Equal(1, registry.Len())

	suite.SetupTest()
	_, other, err := suite.request(server, "POST", "/rpc/Posts.Render", "")
	suite.Require().NoError(err)
	suite.Require().NotEqual(first, other, "A new browser should get a new session")
	suite.Require().Equal(2, registry.Len())
}

func (suite *GatewaySuite) TestSessions_noSession() {
	registry := session.NewRegistry(time.Hour)
	gateway := rpc.NewGateway(rpc.WithSessions(registry))
	gateway.Register(rpc.Endpoint{
		Method:    "GET",
		Path:      "/static/*path",
		NoSession: true,
		Handler: func(w http.ResponseWriter, req *http.Request) {
			suite.Require().Nil(session.FromContext(req.Context()))
			suite.respond(w, 200, "asset")
		},
	})

	server := httptest.NewServer(gateway)
	defer server.Close()

	status, result, err := suite.request(server, "GET", "/static/wire.js", "")
	suite.Require().NoError(err)
	suite.Require().Equal(200, status)
	suite.Require().Equal("asset", result)
	suite.Require().Equal(0, registry.Len(), "Sessionless endpoints should not mint sessions")
}

func (suite *GatewaySuite) TestBinding() {
	type callRequest struct {
		ID    int64   `json:"id"`
		Title *string `json:"title"`
		Body  *string `json:"body"`
	}

	gateway := rpc.NewGateway()
	gateway.Register(rpc.Endpoint{
		Method: "POST",
		Path:   "/rpc/Posts.Delete/:id",
		Handler: func(w http.ResponseWriter, req *http.Request) {
			call := callRequest{}
			if err := gateway.Binder.Bind(req, &call); err != nil {
				suite.respond(w, 400, err.Error())
				return
			}
			title := "<nil>"
			if call.Title != nil {
				title = *call.Title
			}
			suite.respond(w, 200, fmt.Sprintf("%d:%s:%v", call.ID, title, call.Body == nil))
		},
	})

	server := httptest.NewServer(gateway)
	defer server.Close()

	status, result, err := suite.request(server, "POST", "/rpc/Posts.Delete/7", `{"title":"A","id":99}`)
	suite.Require().NoError(err)
	suite.Require().Equal(200, status)
	suite.Require().Equal("7:A:true", result, "Path params should win over body values")

	status, result, err = suite.request(server, "POST", "/rpc/Posts.Delete/8", "")
	suite.Require().NoError(err)
	suite.Require().Equal(200, status, "An empty body is not an error")
	suite.Require().Equal("8:<nil>:true", result)

	status, result, err = suite.request(server, "POST", "/rpc/Posts.Delete/007", "")
	suite.Require().NoError(err)
	suite.Require().Equal(200, status, "Zero-padded ids are still numbers")
	suite.Require().Equal("7:<nil>:true", result)

	status, _, err = suite.request(server, "POST", "/rpc/Posts.Delete/abc", "")
	suite.Require().NoError(err)
	suite.Require().Equal(400, status, "Non-numeric ids should be rejected")

	status, _, err = suite.request(server, "POST", "/rpc/Posts.Delete/1", `{"title":`)
	suite.Require().NoError(err)
	suite.Require().Equal(400, status, "Junk JSON should be rejected")
}

// A custom binder replaces the JSON one for every endpoint.
func (suite *GatewaySuite) TestWithBinder() {
	gateway := rpc.NewGateway(rpc.WithBinder(headerBinder{}))
	gateway.Register(rpc.Endpoint{
		Method: "POST",
		Path:   "/rpc/Posts.Store",
		Handler: func(w http.ResponseWriter, req *http.Request) {
			title := ""
			if err := gateway.Binder.Bind(req, &title); err != nil {
				suite.respond(w, 400, err.Error())
				return
			}
			suite.respond(w, 200, title)
		},
	})

	server := httptest.NewServer(gateway)
	defer server.Close()

	status, result, err := suite.request(server, "POST", "/rpc/Posts.Store", `{"title":"ignored"}`, func(r *http.Request) {
		r.Header.Set("X-Title", "from header")
	})
	suite.Require().NoError(err)
	suite.Require().Equal(200, status)
	suite.Require().Equal("from header", result)
}

type headerBinder struct{}

func (headerBinder) Bind(req *http.Request, out interface{}) error {
	title, ok := out.(*string)
	if !ok {
		return fmt.Errorf("unsupported target %T", out)
	}
	*title = req.Header.Get("X-Title")
	return nil
}

func (suite *GatewaySuite) TestRecoverFromPanic_handler() {
	gateway := rpc.NewGateway()
	gateway.Register(rpc.Endpoint{
		Method: "GET",
		Path:   "/",
		Handler: func(w http.ResponseWriter, req *http.Request) {
			panic("nope")
		},
	})

	server := httptest.NewServer(gateway)
	defer server.Close()

	status, _, err := suite.request(server, "GET", "/", "")
	suite.Require().NoError(err)
	suite.Require().Equal(500, status, "Should recover w/ 500 on handler panic")
}

func (suite *GatewaySuite) TestRecoverFromPanic_middleware() {
	gateway := rpc.NewGateway(rpc.WithMiddleware(func(w http.ResponseWriter, req *http.Request, next http.HandlerFunc) {
		panic("nope")
	}))
	gateway.Register(rpc.Endpoint{
		Method: "GET",
		Path:   "/",
		Handler: func(w http.ResponseWriter, req *http.Request) {
			suite.respond(w, 200, "ok")
		},
	})

	server := httptest.NewServer(gateway)
	defer server.Close()

	status, _, err := suite.request(server, "GET", "/", "")
	suite.Require().NoError(err)
	suite.Require().Equal(500, status, "Should recover w/ 500 on middleware panic")
}

func (suite *GatewaySuite) TestGatewayPathPrefix() {
	gateway := rpc.NewGateway()
	gateway.PathPrefix = "v2"
	gateway.Register(rpc.Endpoint{
		Method: "POST",
		Path:   "/rpc/Posts.Store",
		Handler: func(w http.ResponseWriter, req *http.Request) {
			suite.respond(w, 200, "ok")
		},
	})

	server := httptest.NewServer(gateway)
	defer server.Close()

	status, result, err := suite.request(server, "POST", "/v2/rpc/Posts.Store", "")
	suite.Require().NoError(err)
	suite.Require().Equal(200, status)
	suite.Require().Equal("ok", result)

	status, _, err = suite.request(server, "POST", "/rpc/Posts.Store", "")
	suite.Require().NoError(err)
	suite.Require().Equal(404, status, "The path w/o the prefix should not sneak in")
}

func (suite *GatewaySuite) TestHTML() {
	html := rpc.NewHTML([]byte("<p>hi</p>"))
	suite.Require().Equal("text/html; charset=utf-8", html.ContentType())
	suite.Require().Equal("<p>hi</p>", html.String())

	content, err := io.ReadAll(html.Content())
	suite.Require().NoError(err)
	suite.Require().Equal("<p>hi</p>", string(content))
}

func (suite *GatewaySuite) request(server *httptest.Server, method string, path string, body string, opts ...func(*http.Request)) (int, string, error) {
	request, err := http.NewRequest(method, server.URL+path, strings.NewReader(body))
	if err != nil {
		return 0, "", err
	}

	for _, opt := range opts {
		opt(request)
	}

	res, err := suite.HTTPClient.Do(request)
	if err != nil {
		return 0, "", err
	}
	defer res.Body.Close()

	result, err := io.ReadAll(res.Body)
	return res.StatusCode, string(result), err
}

func (suite *GatewaySuite) respond(w http.ResponseWriter, status int, body string) {
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestGatewaySuite(t *testing.T) {
	suite.Run(t, new(GatewaySuite))
}
