package driven

import "github.com/meridian-labs/graphkeeper/internal/core/domain"

// StateCodec encodes the state parameter sent with authorization requests.
// The encoding is self-contained (decodable without a server-side lookup)
// and must not be forgeable without the server's signing key.
type StateCodec interface {
	// Encode produces the opaque state string for a payload.
	Encode(payload *domain.StatePayload) (string, error)

	// Decode verifies and decodes a state string.
	// Returns domain.ErrStateInvalid for tampered or malformed input.
	Decode(state string) (*domain.StatePayload, error)
}
