package driven

import (
	"context"

	"github.com/meridian-labs/graphkeeper/internal/core/domain"
)

// TokenExchanger calls the identity provider's token endpoint.
// Both grants request the provider's OIDC scopes plus offline access so
// refresh tokens keep being issued. Failures are *domain.TokenExchangeError;
// the exchanger itself never retries.
type TokenExchanger interface {
	// ExchangeCode performs the authorization-code grant: exchanges a
	// one-time code (with its PKCE verifier) for a token pair.
	ExchangeCode(ctx context.Context, creds domain.ClientCredentials, code, redirectURI, codeVerifier string) (*domain.TokenPair, error)

	// RefreshToken performs the refresh-token grant. The provider rotates
	// the refresh token: the returned pair replaces both stored tokens.
	RefreshToken(ctx context.Context, creds domain.ClientCredentials, refreshToken string) (*domain.TokenPair, error)
}

// AuthURLBuilder composes the outbound authorization-endpoint URL.
type AuthURLBuilder interface {
	// BuildAuthURL builds the full authorization URL including client id,
	// redirect URI, response mode, PKCE challenge and method, and state.
	BuildAuthURL(clientID, redirectURI, state, codeChallenge string, scopes []string) (string, error)

	// LogoutURL builds the provider's logout URL with a post-logout redirect.
	LogoutURL(postLogoutRedirectURI string) string
}

// GraphClient calls the downstream graph API with a bearer access token.
type GraphClient interface {
	// GetProfile fetches the signed-in user's profile.
	GetProfile(ctx context.Context, accessToken string) (*domain.Profile, error)

	// Ping issues a profile read and discards the result. The refresher
	// uses it as a keep-alive poll.
	Ping(ctx context.Context, accessToken string) error

	// ListRecentMessages fetches the newest inbox messages, most recent
	// first. Requires a token with mail read scope.
	ListRecentMessages(ctx context.Context, accessToken string) ([]domain.MailMessage, error)
}
