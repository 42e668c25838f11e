package web

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/monadicstack/livepost/component"
	"github.com/monadicstack/livepost/rpc"
)

// NewClient creates a client for the posts component on the server at addr. Like a browser
// tab it keeps its own session, so calls build on each other: Edit(3) then Update() updates
// post 3.
func NewClient(addr string, options ...rpc.ClientOption) PostsClient {
	return PostsClient{rpc: rpc.NewClient(component.Name, addr, options...)}
}

// PostsClient invokes posts component operations remotely. Every method returns the
// re-rendered component markup; not-found faults return the markup (with its alert) and
// an error that satisfies errors.IsNotFound.
type PostsClient struct {
	rpc rpc.Client
}

// Fields are the form buffers sent along with a call. Nil leaves the server's buffer alone.
type Fields struct {
	Title *string
	Body  *string
}

// Text is a small helper for filling in Fields.
func Text(value string) *string {
	return &value
}

// Render fetches the component without running any operation.
func (c PostsClient) Render(ctx context.Context) (string, error) {
	reply, err := c.rpc.Invoke(ctx, http.MethodGet, RenderPath(), nil)
	return reply.String(), err
}

// Call runs one operation with the given buffers.
func (c PostsClient) Call(ctx context.Context, cmd component.Command, fields Fields) (string, error) {
	path := OperationPath(cmd.Action)
	if cmd.Action.TakesID() {
		path = strings.Replace(path, ":id", strconv.FormatInt(cmd.ID, 10), 1)
	}
	request := CallRequest{Title: fields.Title, Body: fields.Body}
	reply, err := c.rpc.Invoke(ctx, http.MethodPost, path, request)
	return reply.String(), err
}

// Store creates a post from the given title and body.
func (c PostsClient) Store(ctx context.Context, title string, body string) (string, error) {
	return c.Call(ctx, component.Store(), Fields{Title: Text(title), Body: Text(body)})
}

// Edit loads a post into the session's edit form.
func (c PostsClient) Edit(ctx context.Context, id int64) (string, error) {
	return c.Call(ctx, component.Edit(id), Fields{})
}

// Cancel leaves edit mode.
func (c PostsClient) Cancel(ctx context.Context) (string, error) {
	return c.Call(ctx, component.Cancel(), Fields{})
}

// Update saves the given title and body over the post being edited.
func (c PostsClient) Update(ctx context.Context, title string, body string) (string, error) {
	return c.Call(ctx, component.Update(), Fields{Title: Text(title), Body: Text(body)})
}

// Delete removes a post.
func (c PostsClient) Delete(ctx context.Context, id int64) (string, error) {
	return c.Call(ctx, component.Delete(id), Fields{})
}
