package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-labs/graphkeeper/internal/core/domain"
	"github.com/meridian-labs/graphkeeper/internal/core/ports/driven"
	"github.com/meridian-labs/graphkeeper/internal/core/ports/driving"
)

// Ensure authFlowService implements AuthFlowService
var _ driving.AuthFlowService = (*authFlowService)(nil)

// AuthFlowServiceConfig holds configuration for the auth flow service.
type AuthFlowServiceConfig struct {
	// SessionStore persists per-browser flow sessions.
	SessionStore driven.SessionStore

	// StateCodec signs and verifies the state parameter.
	StateCodec driven.StateCodec

	// Exchanger calls the provider's token endpoint.
	Exchanger driven.TokenExchanger

	// URLBuilder composes authorization and logout URLs.
	URLBuilder driven.AuthURLBuilder

	// Credentials is the app's OAuth client registration.
	Credentials domain.ClientCredentials

	// RedirectURI is the callback URL registered with the provider.
	// Example: "http://localhost:3000/auth/redirect"
	RedirectURI string

	// PostLogoutRedirectURI is where the provider sends the browser after logout.
	PostLogoutRedirectURI string

	Logger *slog.Logger
}

// authFlowService implements the AuthFlowService interface.
type authFlowService struct {
	sessions    driven.SessionStore
	stateCodec  driven.StateCodec
	exchanger   driven.TokenExchanger
	urlBuilder  driven.AuthURLBuilder
	creds       domain.ClientCredentials
	redirectURI string
	logoutURI   string
	logger      *slog.Logger
}

// NewAuthFlowService creates a new auth flow service.
func NewAuthFlowService(cfg AuthFlowServiceConfig) driving.AuthFlowService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &authFlowService{
		sessions:    cfg.SessionStore,
		stateCodec:  cfg.StateCodec,
		exchanger:   cfg.Exchanger,
		urlBuilder:  cfg.URLBuilder,
		creds:       cfg.Credentials,
		redirectURI: cfg.RedirectURI,
		logoutURI:   cfg.PostLogoutRedirectURI,
		logger:      logger,
	}
}

// BeginSignIn starts an authorization attempt: fresh CSRF token and PKCE
// pair, signed state, then the authorization URL. Overwrites any prior
// in-flight attempt on the session.
func (s *authFlowService) BeginSignIn(ctx context.Context, session *domain.FlowSession, req driving.BeginSignInRequest) (string, error) {
	csrfToken := uuid.NewString()

	verifier, err := generateCodeVerifier()
	if err != nil {
		return "", fmt.Errorf("generate code verifier: %w", err)
	}
	challenge := generateCodeChallenge(verifier)

	state, err := s.stateCodec.Encode(&domain.StatePayload{
		CSRFToken:  csrfToken,
		RedirectTo: req.RedirectTo,
	})
	if err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}

	session.CSRFToken = csrfToken
	session.PKCECodes = &domain.PKCECodes{
		Verifier:        verifier,
		Challenge:       challenge,
		ChallengeMethod: domain.PKCEChallengeMethodS256,
	}
	session.AuthCodeRequest = &domain.AuthCodeRequest{
		RedirectURI: s.redirectURI,
		Scopes:      req.Scopes,
		Code:        "",
	}

	// The session must be persisted before the redirect is issued, or the
	// callback would find no pending attempt to validate against.
	if err := s.sessions.Save(ctx, session); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	authURL, err := s.urlBuilder.BuildAuthURL(s.creds.ClientID, s.redirectURI, state, challenge, req.Scopes)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrAuthorizationURL, err)
	}

	return authURL, nil
}

// CompleteSignIn validates the callback and exchanges the code for tokens.
// The CSRF comparison always happens before the code is used.
func (s *authFlowService) CompleteSignIn(ctx context.Context, session *domain.FlowSession, state, code string) (*driving.CompleteSignInResponse, error) {
	if state == "" {
		return nil, domain.ErrStateMissing
	}

	payload, err := s.stateCodec.Decode(state)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStateInvalid, err)
	}

	if session.CSRFToken == "" ||
		subtle.ConstantTimeCompare([]byte(payload.CSRFToken), []byte(session.CSRFToken)) != 1 {
		return nil, domain.ErrCSRFMismatch
	}

	if session.PKCECodes == nil || session.AuthCodeRequest == nil {
		return nil, domain.ErrSessionNotFound
	}

	session.AuthCodeRequest.Code = code
	session.AuthCodeRequest.CodeVerifier = session.PKCECodes.Verifier

	pair, err := s.exchanger.ExchangeCode(ctx, s.creds, code, session.AuthCodeRequest.RedirectURI, session.AuthCodeRequest.CodeVerifier)
	if err != nil {
		return nil, err
	}

	// Store the pair exactly as returned; the refresh token will be
	// rotated on the next exchange.
	session.AccessToken = pair.AccessToken
	session.RefreshToken = pair.RefreshToken
	session.Authenticated = true

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("sign-in completed", "session_id", session.ID)

	return &driving.CompleteSignInResponse{RedirectTo: payload.RedirectTo}, nil
}

// SignOut destroys the session and returns the provider logout URL.
func (s *authFlowService) SignOut(ctx context.Context, session *domain.FlowSession) (string, error) {
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		return "", fmt.Errorf("delete session: %w", err)
	}
	return s.urlBuilder.LogoutURL(s.logoutURI), nil
}

// generateCodeVerifier produces a cryptographically random PKCE verifier.
func generateCodeVerifier() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// generateCodeChallenge creates a PKCE code challenge from a verifier (S256 method).
func generateCodeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// NewFlowSession creates an empty flow session with the given TTL.
func NewFlowSession(ttl time.Duration) *domain.FlowSession {
	now := time.Now()
	return &domain.FlowSession{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}
