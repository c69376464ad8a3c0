package msgraph

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/meridian-labs/graphkeeper/internal/core/domain"
)

func testClient(serverURL string) *Client {
	return NewClient(Config{
		Authority:    serverURL,
		GraphBaseURL: serverURL,
		Timeout:      5 * time.Second,
	})
}

func testCreds() domain.ClientCredentials {
	return domain.ClientCredentials{
		ClientID:     "client-123",
		ClientSecret: "secret-456",
	}
}

func TestBuildAuthURL(t *testing.T) {
	c := testClient("https://login.example.com")

	authURL, err := c.BuildAuthURL("client-123", "http://localhost:3000/auth/redirect", "signed-state", "challenge-xyz", []string{"User.Read", "offline_access"})
	if err != nil {
		t.Fatalf("BuildAuthURL failed: %v", err)
	}

	parsed, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("parse auth URL: %v", err)
	}
	if parsed.Path != "/oauth2/v2.0/authorize" {
		t.Errorf("unexpected path: %s", parsed.Path)
	}

	q := parsed.Query()
	checks := map[string]string{
		"client_id":             "client-123",
		"redirect_uri":          "http://localhost:3000/auth/redirect",
		"response_type":         "code",
		"response_mode":         "form_post",
		"state":                 "signed-state",
		"code_challenge":        "challenge-xyz",
		"code_challenge_method": "S256",
		"scope":                 "User.Read offline_access",
	}
	for key, want := range checks {
		if got := q.Get(key); got != want {
			t.Errorf("param %s: got %q, want %q", key, got, want)
		}
	}
}

func TestBuildAuthURL_DefaultScopes(t *testing.T) {
	c := testClient("https://login.example.com")

	authURL, err := c.BuildAuthURL("client-123", "http://localhost:3000/auth/redirect", "s", "ch", nil)
	if err != nil {
		t.Fatalf("BuildAuthURL failed: %v", err)
	}

	parsed, _ := url.Parse(authURL)
	if got := parsed.Query().Get("scope"); got != "openid profile" {
		t.Errorf("expected OIDC default scopes, got %q", got)
	}
}

func TestLogoutURL(t *testing.T) {
	c := testClient("https://login.example.com")

	logoutURL := c.LogoutURL("http://localhost:3000/")
	want := "https://login.example.com/oauth2/v2.0/logout?post_logout_redirect_uri=http%3A%2F%2Flocalhost%3A3000%2F"
	if logoutURL != want {
		t.Errorf("unexpected logout URL:\ngot  %s\nwant %s", logoutURL, want)
	}
}

func TestExchangeCode(t *testing.T) {
	var gotForm url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/v2.0/token" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("unexpected content type: %s", ct)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"access_token": "access-abc",
			"refresh_token": "refresh-def",
			"token_type": "Bearer",
			"scope": "User.Read",
			"expires_in": 3599
		}`))
	}))
	defer server.Close()

	c := testClient(server.URL)
	pair, err := c.ExchangeCode(context.Background(), testCreds(), "auth-code", "http://localhost:3000/auth/redirect", "verifier-123")
	if err != nil {
		t.Fatalf("ExchangeCode failed: %v", err)
	}

	if gotForm.Get("grant_type") != "authorization_code" {
		t.Errorf("unexpected grant type: %s", gotForm.Get("grant_type"))
	}
	if gotForm.Get("code") != "auth-code" {
		t.Errorf("unexpected code: %s", gotForm.Get("code"))
	}
	if gotForm.Get("code_verifier") != "verifier-123" {
		t.Errorf("unexpected code verifier: %s", gotForm.Get("code_verifier"))
	}
	if gotForm.Get("redirect_uri") != "http://localhost:3000/auth/redirect" {
		t.Errorf("unexpected redirect URI: %s", gotForm.Get("redirect_uri"))
	}
	if gotForm.Get("client_id") != "client-123" || gotForm.Get("client_secret") != "secret-456" {
		t.Error("client credentials missing from the grant request")
	}
	if !strings.Contains(gotForm.Get("scope"), "offline_access") {
		t.Error("grant request must ask for offline access")
	}

	if pair.AccessToken != "access-abc" || pair.RefreshToken != "refresh-def" {
		t.Error("token pair does not match the response")
	}
	if pair.ExpiresIn != 3599 {
		t.Errorf("unexpected expiry: %d", pair.ExpiresIn)
	}
}

func TestRefreshToken(t *testing.T) {
	var gotForm url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "access-new", "refresh_token": "refresh-new", "token_type": "Bearer", "expires_in": 3599}`))
	}))
	defer server.Close()

	c := testClient(server.URL)
	pair, err := c.RefreshToken(context.Background(), testCreds(), "refresh-old")
	if err != nil {
		t.Fatalf("RefreshToken failed: %v", err)
	}

	if gotForm.Get("grant_type") != "refresh_token" {
		t.Errorf("unexpected grant type: %s", gotForm.Get("grant_type"))
	}
	if gotForm.Get("refresh_token") != "refresh-old" {
		t.Errorf("unexpected refresh token: %s", gotForm.Get("refresh_token"))
	}
	if gotForm.Has("code_verifier") || gotForm.Has("redirect_uri") {
		t.Error("refresh grant must not carry code exchange fields")
	}

	if pair.RefreshToken != "refresh-new" {
		t.Error("rotated refresh token not returned")
	}
}

func TestTokenEndpointError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "invalid_grant", "error_description": "AADSTS70008: The provided authorization code has expired."}`))
	}))
	defer server.Close()

	c := testClient(server.URL)
	_, err := c.ExchangeCode(context.Background(), testCreds(), "expired-code", "http://localhost:3000/auth/redirect", "v")

	var exchangeErr *domain.TokenExchangeError
	if !errors.As(err, &exchangeErr) {
		t.Fatalf("expected TokenExchangeError, got %v", err)
	}
	if exchangeErr.StatusCode != http.StatusBadRequest {
		t.Errorf("unexpected status: %d", exchangeErr.StatusCode)
	}
	if exchangeErr.Code != "invalid_grant" {
		t.Errorf("unexpected error code: %s", exchangeErr.Code)
	}
	if !strings.Contains(exchangeErr.Body, "AADSTS70008") {
		t.Error("provider error body must be preserved")
	}
}

func TestGetProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1.0/me" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer access-abc" {
			t.Errorf("unexpected authorization header: %s", auth)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"mail": "alice@example.com",
			"displayName": "Alice Example",
			"givenName": "Alice",
			"surname": "Example",
			"userPrincipalName": "alice@example.com"
		}`))
	}))
	defer server.Close()

	c := testClient(server.URL)
	profile, err := c.GetProfile(context.Background(), "access-abc")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.Email != "alice@example.com" {
		t.Errorf("unexpected email: %s", profile.Email)
	}
	if profile.DisplayName != "Alice Example" {
		t.Errorf("unexpected display name: %s", profile.DisplayName)
	}
}

func TestGetProfile_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error": {"code": "InvalidAuthenticationToken"}}`))
	}))
	defer server.Close()

	c := testClient(server.URL)
	if _, err := c.GetProfile(context.Background(), "expired"); err == nil {
		t.Fatal("expected an error for an expired token")
	}
}

func TestListRecentMessages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1.0/me/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if top := r.URL.Query().Get("$top"); top != "10" {
			t.Errorf("unexpected $top: %s", top)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"value": [
				{
					"id": "msg-1",
					"subject": "hello",
					"from": {"emailAddress": {"address": "carol@example.com", "name": "Carol"}},
					"receivedDateTime": "2025-06-01T12:00:00Z"
				},
				{
					"id": "msg-2",
					"subject": "again",
					"from": {"emailAddress": {"address": "dave@example.com"}},
					"receivedDateTime": "2025-06-01T11:00:00Z"
				}
			]
		}`))
	}))
	defer server.Close()

	c := testClient(server.URL)
	messages, err := c.ListRecentMessages(context.Background(), "access-abc")
	if err != nil {
		t.Fatalf("ListRecentMessages failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].ID != "msg-1" || messages[0].From != "carol@example.com" {
		t.Errorf("unexpected first message: %+v", messages[0])
	}
	if messages[0].ReceivedAt.IsZero() {
		t.Error("expected a parsed receive time")
	}
}
