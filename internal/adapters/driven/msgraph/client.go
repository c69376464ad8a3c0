package msgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/meridian-labs/graphkeeper/internal/core/domain"
	"github.com/meridian-labs/graphkeeper/internal/core/ports/driven"
)

// Ensure Client implements the identity ports.
var (
	_ driven.TokenExchanger = (*Client)(nil)
	_ driven.AuthURLBuilder = (*Client)(nil)
	_ driven.GraphClient    = (*Client)(nil)
)

// tokenScope is the scope string sent with every token endpoint call.
// It carries the fully-qualified Graph scopes plus the OIDC scopes and
// offline_access so refresh tokens keep being issued.
const tokenScope = "https://graph.microsoft.com/User.Read " +
	"https://graph.microsoft.com/mailboxsettings.read " +
	"https://graph.microsoft.com/calendars.read " +
	"https://graph.microsoft.com/mail.read " +
	"https://graph.microsoft.com/mail.send " +
	"openid profile offline_access"

// Config holds Microsoft identity platform and Graph endpoints.
type Config struct {
	// Authority is the identity platform base URL including tenant.
	// Example: "https://login.microsoftonline.com/common"
	Authority string

	// GraphBaseURL is the Microsoft Graph base URL.
	GraphBaseURL string

	// Timeout applies to every outbound call.
	Timeout time.Duration
}

// DefaultConfig returns the multi-tenant ("common") endpoints.
func DefaultConfig() Config {
	return Config{
		Authority:    "https://login.microsoftonline.com/common",
		GraphBaseURL: "https://graph.microsoft.com",
		Timeout:      30 * time.Second,
	}
}

// Client talks to the Microsoft identity platform token endpoint and to
// Microsoft Graph. It performs no retries; callers own failure policy.
type Client struct {
	authority    string
	graphBaseURL string
	httpClient   *http.Client
}

// NewClient creates a new Microsoft identity/Graph client.
func NewClient(cfg Config) *Client {
	httpClient := cleanhttp.DefaultClient()
	httpClient.Timeout = cfg.Timeout

	return &Client{
		authority:    strings.TrimRight(cfg.Authority, "/"),
		graphBaseURL: strings.TrimRight(cfg.GraphBaseURL, "/"),
		httpClient:   httpClient,
	}
}

// BuildAuthURL constructs the authorization-endpoint URL.
// An empty scope list falls back to the OIDC defaults.
func (c *Client) BuildAuthURL(clientID, redirectURI, state, codeChallenge string, scopes []string) (string, error) {
	base, err := url.Parse(c.authority + "/oauth2/v2.0/authorize")
	if err != nil {
		return "", fmt.Errorf("parse authority: %w", err)
	}

	scope := strings.Join(scopes, " ")
	if scope == "" {
		scope = "openid profile"
	}

	params := url.Values{
		"client_id":             {clientID},
		"redirect_uri":          {redirectURI},
		"response_type":         {"code"},
		"response_mode":         {"form_post"},
		"scope":                 {scope},
		"state":                 {state},
		"code_challenge":        {codeChallenge},
		"code_challenge_method": {domain.PKCEChallengeMethodS256},
	}
	base.RawQuery = params.Encode()

	return base.String(), nil
}

// LogoutURL builds the provider's logout URL with a post-logout redirect.
func (c *Client) LogoutURL(postLogoutRedirectURI string) string {
	return c.authority + "/oauth2/v2.0/logout?post_logout_redirect_uri=" +
		url.QueryEscape(postLogoutRedirectURI)
}

// ExchangeCode performs the authorization-code grant.
func (c *Client) ExchangeCode(ctx context.Context, creds domain.ClientCredentials, code, redirectURI, codeVerifier string) (*domain.TokenPair, error) {
	params := url.Values{
		"client_id":     {creds.ClientID},
		"client_secret": {creds.ClientSecret},
		"scope":         {tokenScope},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {redirectURI},
		"code":          {code},
		"code_verifier": {codeVerifier},
	}
	return c.postTokenEndpoint(ctx, params)
}

// RefreshToken performs the refresh-token grant. No redirect URI or code
// verifier is sent; the provider rotates the refresh token.
func (c *Client) RefreshToken(ctx context.Context, creds domain.ClientCredentials, refreshToken string) (*domain.TokenPair, error) {
	params := url.Values{
		"client_id":     {creds.ClientID},
		"client_secret": {creds.ClientSecret},
		"scope":         {tokenScope},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	return c.postTokenEndpoint(ctx, params)
}

// postTokenEndpoint sends a form-encoded grant request and normalizes the
// response. Failures carry the provider's error body.
func (c *Client) postTokenEndpoint(ctx context.Context, params url.Values) (*domain.TokenPair, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.authority+"/oauth2/v2.0/token",
		strings.NewReader(params.Encode()))
	if err != nil {
		return nil, &domain.TokenExchangeError{Err: err}
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.TokenExchangeError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.TokenExchangeError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &errResp)
		return nil, &domain.TokenExchangeError{
			StatusCode: resp.StatusCode,
			Code:       errResp.Error,
			Body:       string(body),
		}
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		Scope        string `json:"scope"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, &domain.TokenExchangeError{StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}

	return &domain.TokenPair{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    tokenResp.TokenType,
		Scope:        tokenResp.Scope,
		ExpiresIn:    tokenResp.ExpiresIn,
	}, nil
}

// GetProfile fetches the signed-in user's profile from Graph /me.
func (c *Client) GetProfile(ctx context.Context, accessToken string) (*domain.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.graphBaseURL+"/v1.0/me", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get profile failed: status %d: %s", resp.StatusCode, string(body))
	}

	var profile domain.Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}

	return &profile, nil
}

// Ping issues a profile read and discards the result.
func (c *Client) Ping(ctx context.Context, accessToken string) error {
	_, err := c.GetProfile(ctx, accessToken)
	return err
}

// ListRecentMessages fetches the newest inbox messages, most recent first.
func (c *Client) ListRecentMessages(ctx context.Context, accessToken string) ([]domain.MailMessage, error) {
	endpoint := c.graphBaseURL + "/v1.0/me/messages?" + url.Values{
		"$top":     {"10"},
		"$orderby": {"receivedDateTime desc"},
		"$select":  {"id,subject,from,receivedDateTime"},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("list messages failed: status %d: %s", resp.StatusCode, string(body))
	}

	var listResp struct {
		Value []struct {
			ID       string `json:"id"`
			Subject  string `json:"subject"`
			From     struct {
				EmailAddress struct {
					Address string `json:"address"`
				} `json:"emailAddress"`
			} `json:"from"`
			ReceivedDateTime time.Time `json:"receivedDateTime"`
		} `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	messages := make([]domain.MailMessage, 0, len(listResp.Value))
	for _, m := range listResp.Value {
		messages = append(messages, domain.MailMessage{
			ID:         m.ID,
			Subject:    m.Subject,
			From:       m.From.EmailAddress.Address,
			ReceivedAt: m.ReceivedDateTime,
		})
	}

	return messages, nil
}
