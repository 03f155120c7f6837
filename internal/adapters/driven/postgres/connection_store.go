package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/camplight-labs/camplight-core/internal/core/domain"
	"github.com/camplight-labs/camplight-core/internal/core/ports/driven"
)

// Ensure ConnectionStore implements the interface.
var _ driven.ConnectionStore = (*ConnectionStore)(nil)

// ConnectionStore implements driven.ConnectionStore using PostgreSQL.
// Tokens are encrypted before every write and decrypted in memory on read;
// ciphertext never crosses the port boundary.
type ConnectionStore struct {
	db     *DB
	cipher *TokenCipher
}

// NewConnectionStore creates a new PostgreSQL-backed connection store.
func NewConnectionStore(db *DB, cipher *TokenCipher) *ConnectionStore {
	return &ConnectionStore{
		db:     db,
		cipher: cipher,
	}
}

// Upsert inserts or replaces the single row for conn.UserID and marks it
// active. Reconnecting overwrites the token, shard, and metadata but keeps
// the original created_at.
func (s *ConnectionStore) Upsert(ctx context.Context, conn *domain.Connection) error {
	blob, err := s.cipher.EncryptToken(conn.AccessToken)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}

	query := `
		INSERT INTO mailchimp_connections (
			user_id, access_token_blob, server_prefix, account_id,
			email, username, is_active, metadata, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
			access_token_blob = EXCLUDED.access_token_blob,
			server_prefix = EXCLUDED.server_prefix,
			account_id = EXCLUDED.account_id,
			email = EXCLUDED.email,
			username = EXCLUDED.username,
			is_active = TRUE,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now
	conn.IsActive = true

	_, err = s.db.ExecContext(ctx, query,
		conn.UserID,
		blob,
		conn.ServerPrefix,
		conn.AccountID,
		conn.Email,
		conn.Username,
		nullJSON(conn.Metadata),
		conn.CreatedAt,
		conn.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert connection: %w", err)
	}

	return nil
}

// GetDecrypted fetches the user's connection with the token decrypted in
// memory. A blob that cannot be decrypted (rotated key without migration,
// corrupted row) surfaces as domain.ErrCorruptedConnection, distinct from
// ErrNotFound: it means manual remediation, not "user never connected".
func (s *ConnectionStore) GetDecrypted(ctx context.Context, userID string) (*domain.Connection, error) {
	query := `
		SELECT user_id, access_token_blob, server_prefix, account_id,
			   email, username, is_active, metadata,
			   created_at, last_validated_at, updated_at
		FROM mailchimp_connections
		WHERE user_id = $1
	`

	var conn domain.Connection
	var blob []byte
	var metadata []byte
	var lastValidatedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&conn.UserID,
		&blob,
		&conn.ServerPrefix,
		&conn.AccountID,
		&conn.Email,
		&conn.Username,
		&conn.IsActive,
		&metadata,
		&conn.CreatedAt,
		&lastValidatedAt,
		&conn.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}

	token, err := s.cipher.DecryptToken(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptedConnection, err)
	}
	conn.AccessToken = token

	conn.Metadata = metadata
	if lastValidatedAt.Valid {
		conn.LastValidatedAt = &lastValidatedAt.Time
	}

	return &conn, nil
}

// Deactivate soft-disconnects the connection. Idempotent: the predicate on
// is_active makes the second call a no-op that reports false.
func (s *ConnectionStore) Deactivate(ctx context.Context, userID string) (bool, error) {
	query := `
		UPDATE mailchimp_connections
		SET is_active = FALSE, updated_at = $1
		WHERE user_id = $2 AND is_active
	`

	result, err := s.db.ExecContext(ctx, query, time.Now(), userID)
	if err != nil {
		return false, fmt.Errorf("deactivate connection: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// TouchValidated bumps last_validated_at. A missing row is not an error;
// the validator has already classified the user by the time it calls this.
func (s *ConnectionStore) TouchValidated(ctx context.Context, userID string) error {
	query := `
		UPDATE mailchimp_connections
		SET last_validated_at = $1
		WHERE user_id = $2
	`

	if _, err := s.db.ExecContext(ctx, query, time.Now(), userID); err != nil {
		return fmt.Errorf("touch last_validated_at: %w", err)
	}

	return nil
}

// nullJSON converts an optional JSON blob to its nullable column value.
func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
