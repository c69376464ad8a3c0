package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/meridian-labs/graphkeeper/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SeenMessageStore = (*SeenMessageStore)(nil)

// SeenMessageStore implements driven.SeenMessageStore using PostgreSQL.
type SeenMessageStore struct {
	db *DB
}

// NewSeenMessageStore creates a new SeenMessageStore
func NewSeenMessageStore(db *DB) *SeenMessageStore {
	return &SeenMessageStore{db: db}
}

// MarkSeen records a message id. Marking an already-seen id is a no-op.
func (s *SeenMessageStore) MarkSeen(ctx context.Context, messageID string) error {
	query := `
		INSERT INTO seen_messages (message_id, seen_at)
		VALUES ($1, $2)
		ON CONFLICT (message_id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, messageID, time.Now()); err != nil {
		return fmt.Errorf("mark message seen: %w", err)
	}
	return nil
}

// Seen reports whether a message id has been recorded.
func (s *SeenMessageStore) Seen(ctx context.Context, messageID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM seen_messages WHERE message_id = $1)`

	var seen bool
	if err := s.db.QueryRowContext(ctx, query, messageID).Scan(&seen); err != nil {
		return false, fmt.Errorf("check message seen: %w", err)
	}
	return seen, nil
}
