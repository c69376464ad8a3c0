package domain

import "time"

// PKCEChallengeMethodS256 is the only code challenge method this core issues.
const PKCEChallengeMethodS256 = "S256"

// PKCECodes holds the proof-key pair for one authorization attempt.
// The verifier never leaves the server; only the challenge is sent
// with the authorization request.
type PKCECodes struct {
	Verifier        string `json:"verifier"`
	Challenge       string `json:"challenge"`
	ChallengeMethod string `json:"challenge_method"`
}

// AuthCodeRequest is the pending authorization-code exchange for a session.
// Code stays empty until the provider callback fills it in.
type AuthCodeRequest struct {
	RedirectURI  string   `json:"redirect_uri"`
	Scopes       []string `json:"scopes"`
	Code         string   `json:"code"`
	CodeVerifier string   `json:"code_verifier"`
}

// FlowSession is the per-browser-session OAuth flow state. It is owned by
// the web layer and passed explicitly into each flow step; at most one
// authorization attempt is in flight per session, and starting a new one
// overwrites the previous attempt.
type FlowSession struct {
	ID              string           `json:"id"`
	CSRFToken       string           `json:"csrf_token,omitempty"`
	PKCECodes       *PKCECodes       `json:"pkce_codes,omitempty"`
	AuthCodeRequest *AuthCodeRequest `json:"auth_code_request,omitempty"`
	AccessToken     string           `json:"access_token,omitempty"`
	RefreshToken    string           `json:"refresh_token,omitempty"`
	Authenticated   bool             `json:"authenticated"`
	CreatedAt       time.Time        `json:"created_at"`
	ExpiresAt       time.Time        `json:"expires_at"`
}

// IsExpired checks if the session has expired
func (s *FlowSession) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// StatePayload is the content of the state parameter sent to the provider:
// the CSRF token bound to the session and the post-login redirect target.
// It travels as an opaque signed blob so the callback can recover it
// without a server-side lookup.
type StatePayload struct {
	CSRFToken  string `json:"csrf_token"`
	RedirectTo string `json:"redirect_to"`
}

// TokenPair is a normalized token endpoint success response.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope"`
	ExpiresIn    int    `json:"expires_in"`
}

// ClientCredentials is an OAuth client registration (id and secret).
// The app has one registration; stored token records also carry the
// credentials they were captured with, so refresh uses the pair that
// originally issued the tokens.
type ClientCredentials struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"-"` // Never serialize
}

// Scope profiles for the two sign-in routes.
var (
	// ScopesIdentify requests nothing beyond the provider's OIDC defaults.
	ScopesIdentify = []string{}

	// ScopesFull requests profile, mail, calendar, and mailbox settings
	// access plus offline_access so a refresh token is issued.
	ScopesFull = []string{
		"User.Read",
		"offline_access",
		"profile",
		"openid",
		"mail.send",
		"mail.read",
		"calendars.read",
		"mailboxsettings.read",
	}
)
