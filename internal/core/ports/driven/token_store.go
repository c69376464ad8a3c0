package driven

import (
	"context"

	"github.com/meridian-labs/graphkeeper/internal/core/domain"
)

// TokenStore handles durable per-user token record persistence (PostgreSQL).
// At most one record exists per email.
type TokenStore interface {
	// FindByEmail retrieves the record for an email.
	// Returns nil, nil if no record exists.
	FindByEmail(ctx context.Context, email string) (*domain.TokenRecord, error)

	// Upsert overwrites the record with the same email in place, or inserts
	// a new one. The write is atomic per record: a concurrent read never
	// observes a half-updated token pair.
	Upsert(ctx context.Context, record *domain.TokenRecord) error

	// List retrieves all stored records, for the background refresher.
	List(ctx context.Context) ([]*domain.TokenRecord, error)
}

// SeenMessageStore persists downstream message ids that have been processed.
type SeenMessageStore interface {
	// MarkSeen records a message id. Marking an already-seen id is a no-op.
	MarkSeen(ctx context.Context, messageID string) error

	// Seen reports whether a message id has been recorded.
	Seen(ctx context.Context, messageID string) (bool, error)
}
