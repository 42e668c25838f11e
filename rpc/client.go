package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/monadicstack/livepost/rpc/errors"
)

// NewClient constructs the RPC client that talks to a remote livepost gateway. The
// default HTTP client keeps a cookie jar so every call after the first lands in the same
// server-side session, just like a browser tab would.
func NewClient(name string, addr string, options ...ClientOption) Client {
	defaultTimeout := 30 * time.Second
	jar, _ := cookiejar.New(nil)
	client := Client{
		HTTP: &http.Client{
			Timeout: defaultTimeout,
			Jar:     jar,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: defaultTimeout}).DialContext,
				TLSHandshakeTimeout: defaultTimeout,
			},
		},
		Name:       name,
		BaseURL:    strings.TrimSuffix(addr, "/"),
		middleware: clientMiddlewarePipeline{},
	}
	for _, option := range options {
		option(&client)
	}

	mw := clientMiddlewarePipeline{
		writeAcceptHeader,
	}
	client.middleware = append(mw, client.middleware...)
	if client.HTTP != nil {
		client.roundTrip = client.middleware.Then(client.HTTP.Do)
	}
	return client
}

// WithHTTPClient allows you to provide an HTTP client configured to your liking. If you
// want calls to share a session, make sure your client has a cookie jar.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(rpcClient *Client) {
		rpcClient.HTTP = httpClient
	}
}

// WithClientMiddleware adds round trip middleware that fires (in order) before the request
// is actually sent.
func WithClientMiddleware(mw ...ClientMiddlewareFunc) ClientOption {
	return func(rpcClient *Client) {
		rpcClient.middleware = append(rpcClient.middleware, mw...)
	}
}

// ClientOption is a single configurable setting that modifies some attribute of the RPC
// client when building one via NewClient().
type ClientOption func(*Client)

// Client manages RPC communication with a livepost gateway over HTTP.
type Client struct {
	// HTTP takes care of the raw HTTP request/response logic.
	HTTP *http.Client
	// BaseURL contains the protocol/host/port that prefixes every endpoint path
	// (e.g. "http://localhost:8080").
	BaseURL string
	// PathPrefix sits between the host/port and the endpoint path. It should match the
	// gateway's path prefix.
	PathPrefix string
	// Name is just a display name for the remote component; used for debugging.
	Name string

	middleware clientMiddlewarePipeline
	roundTrip  RoundTripperFunc
}

// Reply is the raw outcome of a call. Component operations answer with an HTML fragment,
// so unlike a typical JSON service there is nothing to unmarshal.
type Reply struct {
	Status      int
	ContentType string
	Body        []byte
}

// HTML reports whether the body is markup rather than a JSON error.
func (r Reply) HTML() bool {
	return strings.HasPrefix(r.ContentType, "text/html")
}

// String returns the body as text.
func (r Reply) String() string {
	return string(r.Body)
}

// Invoke sends a single call to the gateway. The request value (may be nil) is encoded as
// the JSON body for POST/PUT/PATCH. When the status is 400+ you get both the reply and an
// RPCError carrying that status, since some faults (a post that was deleted out from under
// you) still come with a freshly rendered component.
func (c Client) Invoke(ctx context.Context, method string, path string, request interface{}) (Reply, error) {
	address := c.BaseURL + toEndpointPath(c.PathPrefix, path)

	body, err := c.createRequestBody(method, request)
	if err != nil {
		return Reply{}, fmt.Errorf("rpc: unable to create request body: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, method, address, body)
	if err != nil {
		return Reply{}, fmt.Errorf("rpc: unable to create request: %w", err)
	}
	if body != nil {
		httpRequest.Header.Set("Content-Type", "application/json")
	}
	if c.roundTrip == nil {
		return Reply{}, fmt.Errorf("rpc: client has no http client")
	}

	response, err := c.roundTrip(httpRequest)
	if err != nil {
		return Reply{}, fmt.Errorf("rpc: round trip error: %w", err)
	}
	defer response.Body.Close()

	data, err := ioutil.ReadAll(response.Body)
	if err != nil {
		return Reply{}, fmt.Errorf("rpc: unable to read response: %w", err)
	}

	reply := Reply{
		Status:      response.StatusCode,
		ContentType: response.Header.Get("Content-Type"),
		Body:        data,
	}
	if reply.Status >= 400 {
		return reply, newStatusError(reply)
	}
	return reply, nil
}

// newStatusError takes the reply (assumed to be a 400+ status already) and creates an
// RPCError with the proper HTTP status as it tries to preserve the original error's message.
func newStatusError(reply Reply) error {
	switch {
	case reply.HTML():
		// The message lives in the rendered alert; the status says enough.
		return errors.New(reply.Status, "rpc: %s", strings.ToLower(http.StatusText(reply.Status)))
	case !strings.HasPrefix(reply.ContentType, "application/json"):
		return errors.New(reply.Status, "rpc: %s", strings.TrimSpace(string(reply.Body)))
	}

	// As JSON, it's likely that the JSON is one of these formats:
	//
	// "Just the message"
	//    or
	// {"status":404, "message": "not found, dummy"}
	text := string(reply.Body)
	if strings.HasPrefix(text, `"`) {
		message := ""
		_ = json.Unmarshal(reply.Body, &message)
		return errors.New(reply.Status, "rpc error: %s", message)
	}
	if strings.HasPrefix(text, `{`) {
		err := errors.RPCError{}
		_ = json.Unmarshal(reply.Body, &err)
		if err.Message != "" {
			return errors.New(reply.Status, "rpc error: %s", err.Message)
		}
	}

	// It's JSON, but a format we don't recognize, so no message for you. Keep the status, though.
	return errors.New(reply.Status, "rpc error")
}

func (c Client) createRequestBody(method string, request interface{}) (io.Reader, error) {
	if request == nil || !shouldEncodeUsingBody(method) {
		return nil, nil
	}
	body := &bytes.Buffer{}
	err := json.NewEncoder(body).Encode(request)
	return body, err
}

func shouldEncodeUsingBody(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodPatch
}

// writeAcceptHeader tells the gateway we can take either a rendered fragment or a JSON error.
func writeAcceptHeader(request *http.Request, next RoundTripperFunc) (*http.Response, error) {
	request.Header.Set("Accept", "text/html, application/json")
	return next(request)
}

// RoundTripperFunc matches the signature of http.Client.Do, so it can be used both as the
// end of a client middleware chain and as an http.RoundTripper.
type RoundTripperFunc func(request *http.Request) (*http.Response, error)

// RoundTrip satisfies http.RoundTripper.
func (rt RoundTripperFunc) RoundTrip(request *http.Request) (*http.Response, error) {
	return rt(request)
}

// ClientMiddlewareFunc is a unit of work applied to an outgoing request. Call next to keep
// the chain going.
type ClientMiddlewareFunc func(request *http.Request, next RoundTripperFunc) (*http.Response, error)

type clientMiddlewarePipeline []ClientMiddlewareFunc

// Then caps the pipeline off with the function that actually performs the round trip.
func (pipeline clientMiddlewarePipeline) Then(handler RoundTripperFunc) RoundTripperFunc {
	for i := len(pipeline) - 1; i >= 0; i-- {
		mw := pipeline[i]
		next := handler
		handler = func(request *http.Request) (*http.Response, error) {
			return mw(request, next)
		}
	}
	return handler
}
