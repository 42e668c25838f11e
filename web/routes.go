package web

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/monadicstack/respond"

	"github.com/monadicstack/livepost/component"
	"github.com/monadicstack/livepost/rpc"
	"github.com/monadicstack/livepost/rpc/errors"
	"github.com/monadicstack/livepost/session"
	"github.com/monadicstack/livepost/view"
)

// AlertNotFound is shown when an operation targets a post that no longer exists.
const AlertNotFound = "Post not found."

// CallRequest is the body of every operation call. Title and Body are the browser's
// current form buffers; nil means "leave the session's buffer alone". ID comes from the
// ":id" path segment for Edit and Delete.
type CallRequest struct {
	ID    int64   `json:"id,omitempty"`
	Title *string `json:"title,omitempty"`
	Body  *string `json:"body,omitempty"`
}

func (c CallRequest) apply(state component.State) component.State {
	if c.Title != nil {
		state.Title = *c.Title
	}
	if c.Body != nil {
		state.Body = *c.Body
	}
	return state
}

// OperationPath is the gateway path for an operation, e.g. "/rpc/Posts.Edit/:id".
func OperationPath(action component.Action) string {
	path := "/rpc/" + component.Name + "." + action.String()
	if action.TakesID() {
		path += "/:id"
	}
	return path
}

// RenderPath is the gateway path that re-renders the component without running anything.
func RenderPath() string {
	return "/rpc/" + component.Name + ".Render"
}

func (s *Server) registerRoutes() {
	s.gateway.Register(rpc.Endpoint{
		Method:    http.MethodGet,
		Path:      "/",
		Component: component.Name,
		Name:      "Page",
		Handler:   s.page,
	})
	s.gateway.Register(rpc.Endpoint{
		Method:    http.MethodGet,
		Path:      RenderPath(),
		Component: component.Name,
		Name:      "Render",
		Handler:   s.render,
	})
	for _, action := range component.Actions() {
		s.gateway.Register(rpc.Endpoint{
			Method:    http.MethodPost,
			Path:      OperationPath(action),
			Component: component.Name,
			Name:      action.String(),
			Handler:   s.call(action),
		})
	}

	prefix := "/static"
	if s.ViewOptions.AssetPrefix != "" {
		prefix = "/" + strings.Trim(s.ViewOptions.AssetPrefix, "/")
	}
	assets := http.StripPrefix(prefix, http.FileServer(http.FS(view.Assets())))
	s.gateway.Register(rpc.Endpoint{
		Method:    http.MethodGet,
		Path:      prefix + "/*path",
		Component: "Assets",
		Name:      "Static",
		NoSession: true,
		Handler:   assets.ServeHTTP,
	})
}

// page serves the full document for a first visit.
func (s *Server) page(w http.ResponseWriter, req *http.Request) {
	s.reply(w, req, http.StatusOK, "", s.renderer.Page)
}

// render answers with a fresh component fragment; no operation runs.
func (s *Server) render(w http.ResponseWriter, req *http.Request) {
	s.reply(w, req, http.StatusOK, "", s.renderer.Component)
}

// call builds the handler for one component operation. The gateway already holds the
// session lock, so the whole sync/dispatch/render sequence runs without interleaving.
func (s *Server) call(action component.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		sess := session.FromContext(ctx)

		request := CallRequest{}
		if err := s.gateway.Binder.Bind(req, &request); err != nil {
			s.fail(w, req, err)
			return
		}

		// The synced buffers only stick if the operation does; a fault leaves the
		// session exactly as it was.
		state := request.apply(sess.State)
		cmd := component.Command{Action: action, ID: request.ID}
		outcome, err := s.component.Dispatch(ctx, state, cmd)

		switch {
		case errors.IsNotFound(err):
			s.Logger.Info("operation", "call", cmd.String(), "session", sess.ID, "outcome", "not found")
			s.reply(w, req, http.StatusNotFound, AlertNotFound, s.renderer.Component)
			return
		case err != nil:
			s.fail(w, req, err)
			return
		}

		sess.State = outcome.State
		if outcome.HasNotice() {
			sess.Flash.Set(outcome.Notice)
		}

		result := "ok"
		if !outcome.State.Errors.Empty() {
			result = "invalid"
		}
		s.Logger.Info("operation", "call", cmd.String(), "session", sess.ID, "outcome", result)
		s.reply(w, req, http.StatusOK, "", s.renderer.Component)
	}
}

type renderFunc func(w io.Writer, model view.Model) error

// reply refreshes the post list, renders the session's state and writes it as HTML.
func (s *Server) reply(w http.ResponseWriter, req *http.Request, status int, alert string, render renderFunc) {
	sess := session.FromContext(req.Context())

	state, err := s.component.Render(req.Context(), sess.State)
	if err != nil {
		s.fail(w, req, err)
		return
	}
	sess.State = state

	buf := &bytes.Buffer{}
	err = render(buf, view.Model{State: state, Notices: &sess.Flash, Alert: alert})
	if err != nil {
		s.fail(w, req, err)
		return
	}
	respond.To(w, req).Reply(status, rpc.NewHTML(buf.Bytes()), nil)
}

// fail answers with the JSON RPCError for err, logging anything that is our fault.
func (s *Server) fail(w http.ResponseWriter, req *http.Request, err error) {
	status := errors.Status(err)
	if status >= 500 {
		s.Logger.Error("operation failed", "path", req.URL.Path, "error", err)
	}
	respond.To(w, req).Fail(errors.New(status, "%s", err.Error()))
}
