package state

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/meridian-labs/graphkeeper/internal/core/domain"
	"github.com/meridian-labs/graphkeeper/internal/core/ports/driven"
)

// Ensure Codec implements StateCodec
var _ driven.StateCodec = (*Codec)(nil)

// DefaultStateTTL bounds how long an issued state is accepted. It covers
// the round trip through the provider's consent screen.
const DefaultStateTTL = 10 * time.Minute

// stateClaims wraps domain.StatePayload for JWT compatibility
type stateClaims struct {
	CSRFToken  string `json:"csrf_token"`
	RedirectTo string `json:"redirect_to"`
	jwt.RegisteredClaims
}

// Codec encodes the OAuth state parameter as a signed HS256 JWT. The blob
// is self-contained and decodable without a server-side lookup, but cannot
// be forged without the signing key.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

// NewCodec creates a state codec with the given signing secret.
func NewCodec(secret string) *Codec {
	return &Codec{
		secret: []byte(secret),
		ttl:    DefaultStateTTL,
	}
}

// NewCodecWithTTL creates a state codec with a custom state lifetime.
func NewCodecWithTTL(secret string, ttl time.Duration) *Codec {
	return &Codec{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Encode produces the signed state string for a payload.
func (c *Codec) Encode(payload *domain.StatePayload) (string, error) {
	now := time.Now()
	claims := stateClaims{
		CSRFToken:  payload.CSRFToken,
		RedirectTo: payload.RedirectTo,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Decode verifies and decodes a state string.
func (c *Codec) Decode(state string) (*domain.StatePayload, error) {
	token, err := jwt.ParseWithClaims(state, &stateClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStateInvalid, err)
	}

	claims, ok := token.Claims.(*stateClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrStateInvalid
	}

	return &domain.StatePayload{
		CSRFToken:  claims.CSRFToken,
		RedirectTo: claims.RedirectTo,
	}, nil
}
