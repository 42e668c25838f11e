// Package session keeps the transient posts-screen state for each browser that talks to
// us. A browser is identified by an opaque id in the "livepost_session" cookie; the id
// maps to a Session holding the component State and the flash Mailbox.
package session

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/monadicstack/livepost/component"
	"github.com/monadicstack/livepost/flash"
)

// CookieName is the cookie that carries the session id.
const CookieName = "livepost_session"

// DefaultTTL is how long an idle session is remembered.
const DefaultTTL = 24 * time.Hour

// Session is the per-browser slice of server memory. Lock it for the duration of an
// operation so that two events from the same browser never interleave.
type Session struct {
	sync.Mutex
	// ID is the opaque identifier stored in the cookie.
	ID string
	// State is the posts component state between calls.
	State component.State
	// Flash holds the notice the next render should show.
	Flash flash.Mailbox

	lastSeen time.Time
}

// NewRegistry creates an empty registry whose sessions expire after 'ttl' of inactivity.
// A non-positive ttl falls back to DefaultTTL.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		ttl:      ttl,
		sessions: map[string]*Session{},
		now:      time.Now,
	}
}

// Registry is the in-memory lookup of live sessions.
type Registry struct {
	mutex    sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session
	now      func() time.Time
}

// Acquire returns the live session for 'id', or starts a fresh one when the id is blank,
// unknown or expired. The second value is true when a new session was created (and the
// caller should hand the browser a new cookie).
func (r *Registry) Acquire(id string) (*Session, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	now := r.now()
	r.prune(now)

	id = strings.TrimSpace(id)
	if sess, ok := r.sessions[id]; ok && id != "" {
		sess.lastSeen = now
		return sess, false
	}

	sess := &Session{ID: uuid.NewString(), lastSeen: now}
	r.sessions[sess.ID] = sess
	return sess, true
}

// Len is the number of live sessions.
func (r *Registry) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.sessions)
}

// prune drops sessions that have been idle longer than the ttl. Callers hold the lock.
func (r *Registry) prune(now time.Time) {
	for id, sess := range r.sessions {
		if now.Sub(sess.lastSeen) > r.ttl {
			delete(r.sessions, id)
		}
	}
}

// Cookie builds the cookie that hands the session id to the browser.
func (r *Registry) Cookie(sess *Session) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(r.ttl.Seconds()),
	}
}

// IDFromRequest reads the session id from the request cookie, or "" when there is none.
func IDFromRequest(req *http.Request) string {
	cookie, err := req.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

// The context key for the current request's session.
type contextKeySession struct{}

// WithSession returns a child context that carries the session.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, contextKeySession{}, sess)
}

// FromContext fetches the session stored on this context, or nil when there is none.
func FromContext(ctx context.Context) *Session {
	if ctx == nil {
		return nil
	}
	sess, ok := ctx.Value(contextKeySession{}).(*Session)
	if !ok {
		return nil
	}
	return sess
}
