package driven

import (
	"context"

	"github.com/meridian-labs/graphkeeper/internal/core/domain"
)

// SessionStore handles browser flow-session persistence (Redis).
// A session holds one in-flight authorization attempt's CSRF token and
// PKCE codes, and the tokens obtained after exchange.
type SessionStore interface {
	// Save stores a session with TTL based on ExpiresAt
	Save(ctx context.Context, session *domain.FlowSession) error

	// Get retrieves a session by ID.
	// Returns domain.ErrSessionNotFound if the session does not exist or expired.
	Get(ctx context.Context, id string) (*domain.FlowSession, error)

	// Delete destroys a session (sign-out). Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
}
