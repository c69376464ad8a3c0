package driving

import (
	"context"

	"github.com/meridian-labs/graphkeeper/internal/core/domain"
)

// BeginSignInRequest starts an authorization attempt for a session.
type BeginSignInRequest struct {
	// Scopes is the requested scope profile (domain.ScopesIdentify or
	// domain.ScopesFull, typically).
	Scopes []string

	// RedirectTo is the in-app target to return to after login. It rides
	// inside the signed state parameter.
	RedirectTo string
}

// CompleteSignInResponse is returned after a successful code exchange.
type CompleteSignInResponse struct {
	// RedirectTo is the post-login target recovered from the state.
	RedirectTo string
}

// AuthFlowService drives the authorization-code flow: PKCE/state generation,
// the outbound authorization redirect, callback validation, and token
// exchange. The caller owns the session and passes it in explicitly.
type AuthFlowService interface {
	// BeginSignIn generates fresh PKCE codes and a CSRF token, writes them
	// into the session (overwriting any prior in-flight attempt), persists
	// the session, and returns the authorization URL to redirect to.
	BeginSignIn(ctx context.Context, session *domain.FlowSession, req BeginSignInRequest) (string, error)

	// CompleteSignIn validates the provider callback and exchanges the code.
	// state missing -> domain.ErrStateMissing (before touching the session's
	// CSRF token); CSRF mismatch -> domain.ErrCSRFMismatch, with no exchange
	// attempted. On success the session holds the new token pair and is
	// marked authenticated.
	CompleteSignIn(ctx context.Context, session *domain.FlowSession, state, code string) (*CompleteSignInResponse, error)

	// SignOut destroys the session and returns the provider logout URL.
	SignOut(ctx context.Context, session *domain.FlowSession) (string, error)
}
