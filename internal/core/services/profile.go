package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/meridian-labs/graphkeeper/internal/core/domain"
	"github.com/meridian-labs/graphkeeper/internal/core/ports/driven"
	"github.com/meridian-labs/graphkeeper/internal/core/ports/driving"
)

// Ensure profileService implements ProfileService
var _ driving.ProfileService = (*profileService)(nil)

// ProfileServiceConfig holds configuration for the profile service.
type ProfileServiceConfig struct {
	// Graph is the downstream profile API client.
	Graph driven.GraphClient

	// TokenStore persists per-user token records.
	TokenStore driven.TokenStore

	// Credentials is the app's OAuth client registration, captured into
	// each record so the refresher uses the registration that issued
	// the tokens.
	Credentials domain.ClientCredentials

	Logger *slog.Logger
}

// profileService implements the ProfileService interface.
type profileService struct {
	graph  driven.GraphClient
	tokens driven.TokenStore
	creds  domain.ClientCredentials
	logger *slog.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(cfg ProfileServiceConfig) driving.ProfileService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &profileService{
		graph:  cfg.Graph,
		tokens: cfg.TokenStore,
		creds:  cfg.Credentials,
		logger: logger,
	}
}

// Fetch retrieves the profile with the session's access token and upserts
// the durable token record keyed by the profile's email.
func (s *profileService) Fetch(ctx context.Context, session *domain.FlowSession) (*domain.Profile, error) {
	if !session.Authenticated {
		return nil, domain.ErrNotAuthenticated
	}

	profile, err := s.graph.GetProfile(ctx, session.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	now := time.Now()
	record, err := s.tokens.FindByEmail(ctx, profile.Email)
	if err != nil {
		return nil, fmt.Errorf("find token record: %w", err)
	}
	if record == nil {
		record = &domain.TokenRecord{
			UserEmail: profile.Email,
			UserName:  profile.DisplayName,
			CreatedAt: now,
		}
	}

	record.UserName = profile.DisplayName
	record.AccessToken = session.AccessToken
	record.RefreshToken = session.RefreshToken
	record.ClientID = s.creds.ClientID
	record.ClientSecret = s.creds.ClientSecret
	record.UpdatedAt = now

	if err := s.tokens.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("upsert token record: %w", err)
	}

	s.logger.Info("token record upserted", "email", profile.Email)

	return profile, nil
}
