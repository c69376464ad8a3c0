package driving

import (
	"context"

	"github.com/meridian-labs/graphkeeper/internal/core/domain"
)

// ProfileService fetches the signed-in user's profile from the downstream
// graph API and persists the session's tokens as a durable record.
type ProfileService interface {
	// Fetch requires an authenticated session. It fetches the profile with
	// the session's access token, upserts the token record keyed by the
	// profile's email, and returns the profile.
	Fetch(ctx context.Context, session *domain.FlowSession) (*domain.Profile, error)
}
