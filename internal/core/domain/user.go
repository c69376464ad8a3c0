package domain

import "time"

// TokenRecord is the durable per-user OAuth token record, keyed by email.
// It is created on first successful profile fetch after login, rewritten on
// every later profile fetch and on every background refresh, and never
// deleted by this core.
//
// TokenRecord and Profile are deliberately distinct record kinds joined
// only by the email key; neither embeds the other.
type TokenRecord struct {
	UserEmail string `json:"useremail"`
	UserName  string `json:"username"`

	// AccessToken is the current bearer token for downstream calls.
	// Short-lived, overwritten on every refresh.
	AccessToken string `json:"-"` // Never serialize

	// RefreshToken is rotated on every exchange: the provider may issue a
	// new one each time, and the previous one becomes invalid.
	RefreshToken string `json:"-"` // Never serialize

	// ClientID and ClientSecret are the app registration the tokens were
	// captured with; refresh for this record uses exactly these.
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"-"` // Never serialize

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Credentials returns the client registration captured with this record.
func (r *TokenRecord) Credentials() ClientCredentials {
	return ClientCredentials{
		ClientID:     r.ClientID,
		ClientSecret: r.ClientSecret,
	}
}

// Profile is the downstream graph API's view of the signed-in user.
type Profile struct {
	Email             string `json:"mail"`
	DisplayName       string `json:"displayName"`
	GivenName         string `json:"givenName,omitempty"`
	Surname           string `json:"surname,omitempty"`
	UserPrincipalName string `json:"userPrincipalName,omitempty"`
	JobTitle          string `json:"jobTitle,omitempty"`
}

// SeenMessage marks a downstream message id as already processed.
type SeenMessage struct {
	MessageID string    `json:"id"`
	SeenAt    time.Time `json:"seen_at"`
}

// MailMessage is a single inbox message as returned by the graph API.
type MailMessage struct {
	ID         string    `json:"id"`
	Subject    string    `json:"subject"`
	From       string    `json:"from"`
	ReceivedAt time.Time `json:"receivedDateTime"`
}
