package http

import (
	"context"
	"net/http"
	"time"

	"github.com/meridian-labs/graphkeeper/internal/core/domain"
	"github.com/meridian-labs/graphkeeper/internal/core/ports/driven"
	"github.com/meridian-labs/graphkeeper/internal/core/services"
)

// Context keys
type contextKey string

const sessionContextKey contextKey = "flow_session"

// sessionCookieName is the browser cookie carrying the session id.
const sessionCookieName = "sid"

// DefaultSessionTTL is how long a browser session lives.
const DefaultSessionTTL = 24 * time.Hour

// SessionMiddleware resolves the browser cookie to a flow session and puts
// it on the request context. Flow steps receive the session explicitly;
// nothing reads it through ambient globals.
type SessionMiddleware struct {
	sessions driven.SessionStore
	ttl      time.Duration
	secure   bool
}

// NewSessionMiddleware creates a new SessionMiddleware.
// secure controls the cookie's Secure/SameSite attributes: the provider
// posts the callback cross-site (response_mode=form_post), which requires
// SameSite=None and therefore Secure in production.
func NewSessionMiddleware(sessions driven.SessionStore, secure bool) *SessionMiddleware {
	return &SessionMiddleware{
		sessions: sessions,
		ttl:      DefaultSessionTTL,
		secure:   secure,
	}
}

// WithSession ensures a flow session exists for the request, creating one
// (and setting the cookie) on first contact.
func (m *SessionMiddleware) WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := m.loadSession(r)
		if session == nil {
			session = services.NewFlowSession(m.ttl)
			if err := m.sessions.Save(r.Context(), session); err != nil {
				writeError(w, http.StatusInternalServerError, "failed to create session")
				return
			}
			m.setCookie(w, session)
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuthenticated redirects unauthenticated sessions to the sign-in
// route instead of rendering an error.
func (m *SessionMiddleware) RequireAuthenticated(signinPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := GetSession(r.Context())
			if session == nil || !session.Authenticated {
				http.Redirect(w, r, signinPath, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetSession retrieves the flow session from request context
func GetSession(ctx context.Context) *domain.FlowSession {
	if ctx == nil {
		return nil
	}
	session, ok := ctx.Value(sessionContextKey).(*domain.FlowSession)
	if !ok {
		return nil
	}
	return session
}

// loadSession resolves the session cookie, or nil if absent/expired.
func (m *SessionMiddleware) loadSession(r *http.Request) *domain.FlowSession {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	session, err := m.sessions.Get(r.Context(), cookie.Value)
	if err != nil {
		return nil
	}
	if session.IsExpired() {
		return nil
	}
	return session
}

func (m *SessionMiddleware) setCookie(w http.ResponseWriter, session *domain.FlowSession) {
	sameSite := http.SameSiteLaxMode
	if m.secure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: sameSite,
	})
}

// clearCookie expires the session cookie on sign-out.
func (m *SessionMiddleware) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
	})
}
