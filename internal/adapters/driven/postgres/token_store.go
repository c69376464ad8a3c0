package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/meridian-labs/graphkeeper/internal/core/domain"
	"github.com/meridian-labs/graphkeeper/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TokenStore = (*TokenStore)(nil)

// TokenStore implements driven.TokenStore using PostgreSQL.
// Refresh tokens and client secrets are encrypted at rest; the short-lived
// access token is stored as-is.
type TokenStore struct {
	db        *DB
	encryptor *SecretEncryptor
}

// NewTokenStore creates a new TokenStore
func NewTokenStore(db *DB, encryptor *SecretEncryptor) *TokenStore {
	return &TokenStore{db: db, encryptor: encryptor}
}

// Upsert overwrites the record with the same email in place, or inserts a
// new one. The single statement keeps the write atomic per record.
func (s *TokenStore) Upsert(ctx context.Context, record *domain.TokenRecord) error {
	refreshEnc, err := s.encryptor.EncryptString(record.RefreshToken)
	if err != nil {
		return fmt.Errorf("encrypt refresh token: %w", err)
	}
	secretEnc, err := s.encryptor.EncryptString(record.ClientSecret)
	if err != nil {
		return fmt.Errorf("encrypt client secret: %w", err)
	}

	query := `
		INSERT INTO token_records (user_email, user_name, access_token, refresh_token_enc, client_id, client_secret_enc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_email) DO UPDATE SET
			user_name = EXCLUDED.user_name,
			access_token = EXCLUDED.access_token,
			refresh_token_enc = EXCLUDED.refresh_token_enc,
			client_id = EXCLUDED.client_id,
			client_secret_enc = EXCLUDED.client_secret_enc,
			updated_at = EXCLUDED.updated_at
	`

	_, err = s.db.ExecContext(ctx, query,
		record.UserEmail,
		record.UserName,
		record.AccessToken,
		refreshEnc,
		record.ClientID,
		secretEnc,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert token record: %w", err)
	}
	return nil
}

// FindByEmail retrieves the record for an email.
// Returns nil, nil if no record exists.
func (s *TokenStore) FindByEmail(ctx context.Context, email string) (*domain.TokenRecord, error) {
	query := `
		SELECT user_email, user_name, access_token, refresh_token_enc, client_id, client_secret_enc, created_at, updated_at
		FROM token_records
		WHERE user_email = $1
	`

	record, err := s.scanRecord(s.db.QueryRowContext(ctx, query, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find token record: %w", err)
	}
	return record, nil
}

// List retrieves all stored records.
func (s *TokenStore) List(ctx context.Context) ([]*domain.TokenRecord, error) {
	query := `
		SELECT user_email, user_name, access_token, refresh_token_enc, client_id, client_secret_enc, created_at, updated_at
		FROM token_records
		ORDER BY created_at
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list token records: %w", err)
	}
	defer rows.Close()

	var records []*domain.TokenRecord
	for rows.Next() {
		record, err := s.scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan token record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// scanner covers both sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func (s *TokenStore) scanRecord(row scanner) (*domain.TokenRecord, error) {
	var record domain.TokenRecord
	var refreshEnc, secretEnc []byte

	err := row.Scan(
		&record.UserEmail,
		&record.UserName,
		&record.AccessToken,
		&refreshEnc,
		&record.ClientID,
		&secretEnc,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(refreshEnc) > 0 {
		record.RefreshToken, err = s.encryptor.DecryptString(refreshEnc)
		if err != nil {
			return nil, fmt.Errorf("decrypt refresh token: %w", err)
		}
	}
	if len(secretEnc) > 0 {
		record.ClientSecret, err = s.encryptor.DecryptString(secretEnc)
		if err != nil {
			return nil, fmt.Errorf("decrypt client secret: %w", err)
		}
	}

	return &record, nil
}
