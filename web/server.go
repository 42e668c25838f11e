// Package web assembles the livepost HTTP server: the RPC gateway with the posts routes,
// the session registry, HTML rendering and the outer negroni stack.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/urfave/negroni"

	"github.com/monadicstack/livepost/component"
	"github.com/monadicstack/livepost/internal/logger"
	"github.com/monadicstack/livepost/posts"
	"github.com/monadicstack/livepost/rpc"
	"github.com/monadicstack/livepost/session"
	"github.com/monadicstack/livepost/view"
)

// shutdownTimeout bounds how long Run waits for in-flight calls once its context ends.
const shutdownTimeout = 10 * time.Second

// NewServer builds a server for the given store. Nothing listens until you call Run, but
// Handler() is usable straight away (handy with httptest).
func NewServer(store posts.Store, options ...ServerOption) (*Server, error) {
	server := &Server{
		Addr:       ":8080",
		Logger:     logger.Logger,
		SessionTTL: session.DefaultTTL,
		component:  component.New(store),
	}
	for _, option := range options {
		option(server)
	}

	renderer, err := view.New(server.ViewOptions)
	if err != nil {
		return nil, err
	}
	server.renderer = renderer
	server.sessions = session.NewRegistry(server.SessionTTL)
	server.gateway = rpc.NewGateway(rpc.WithSessions(server.sessions))
	server.registerRoutes()

	server.handler = negroni.New(
		negroni.NewRecovery(),
		requestLogger(server.Logger),
		negroni.Wrap(server.gateway),
	)
	return server, nil
}

// ServerOption customizes a server created via NewServer.
type ServerOption func(*Server)

// WithAddr sets the listen address (e.g. ":8080").
func WithAddr(addr string) ServerOption {
	return func(s *Server) {
		s.Addr = addr
	}
}

// WithLogger routes request and operation logs to the given logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		s.Logger = l
	}
}

// WithSessionTTL sets how long idle browser sessions are kept.
func WithSessionTTL(ttl time.Duration) ServerOption {
	return func(s *Server) {
		s.SessionTTL = ttl
	}
}

// WithViewOptions tunes the page shell (title, endpoint, asset prefix).
func WithViewOptions(options view.Options) ServerOption {
	return func(s *Server) {
		s.ViewOptions = options
	}
}

// Server is the livepost web application.
type Server struct {
	Addr        string
	Logger      *slog.Logger
	SessionTTL  time.Duration
	ViewOptions view.Options

	component component.Posts
	renderer  *view.Renderer
	sessions  *session.Registry
	gateway   rpc.Gateway
	handler   http.Handler
}

// Handler is the complete HTTP stack: recovery, request logging, then the gateway.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Gateway exposes the routing layer, mostly so callers can list the registered endpoints.
func (s *Server) Gateway() rpc.Gateway {
	return s.gateway
}

// Sessions exposes the session registry backing the server.
func (s *Server) Sessions() *session.Registry {
	return s.sessions
}

// Run listens on Addr until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		s.Logger.Info("listening", "addr", s.Addr)
		errs <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	s.Logger.Info("shutting down", "addr", s.Addr)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// requestLogger is the outermost access log: one line per request with the final status.
func requestLogger(l *slog.Logger) negroni.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request, next http.HandlerFunc) {
		start := time.Now()
		next(w, req)

		status := http.StatusOK
		if rw, ok := w.(negroni.ResponseWriter); ok && rw.Status() != 0 {
			status = rw.Status()
		}
		l.Info("request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", status,
			"duration", time.Since(start),
		)
	}
}
