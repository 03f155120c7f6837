package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/camplight-labs/camplight-core/internal/core/domain"
	"github.com/camplight-labs/camplight-core/internal/core/ports/driven"
)

// Ensure StateStore implements the interface.
var _ driven.StateStore = (*StateStore)(nil)

// StateStore implements driven.StateStore using PostgreSQL.
type StateStore struct {
	db *DB
}

// NewStateStore creates a new PostgreSQL-backed authorization state store.
func NewStateStore(db *DB) *StateStore {
	return &StateStore{db: db}
}

// Save stores a new authorization state.
func (s *StateStore) Save(ctx context.Context, state *domain.AuthorizationState) error {
	query := `
		INSERT INTO authorization_states (state, user_id, provider, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(ctx, query,
		state.State,
		state.UserID,
		state.Provider,
		state.CreatedAt,
		state.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("save authorization state: %w", err)
	}

	return nil
}

// VerifyAndConsume atomically matches and deletes the state.
// A single DELETE ... RETURNING gives single-use semantics: two concurrent
// calls with the same state value succeed at most once, because only one
// delete can claim the row. A read followed by a separate delete would let
// a duplicate submission consume the token twice.
func (s *StateStore) VerifyAndConsume(ctx context.Context, state, userID, provider string) (*domain.AuthorizationState, error) {
	query := `
		DELETE FROM authorization_states
		WHERE state = $1 AND user_id = $2 AND provider = $3 AND expires_at > NOW()
		RETURNING state, user_id, provider, created_at, expires_at
	`

	var st domain.AuthorizationState
	err := s.db.QueryRowContext(ctx, query, state, userID, provider).Scan(
		&st.State,
		&st.UserID,
		&st.Provider,
		&st.CreatedAt,
		&st.ExpiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil // Wrong value, wrong owner, wrong provider, or expired
	}
	if err != nil {
		return nil, fmt.Errorf("verify and consume authorization state: %w", err)
	}

	return &st, nil
}

// CleanupExpired removes expired states. Safe to run concurrently with
// VerifyAndConsume: rows are immutable before deletion, so both sides are
// plain delete-matching-predicate operations with no lost-update hazard.
func (s *StateStore) CleanupExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM authorization_states WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, fmt.Errorf("cleanup authorization states: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cleanup rows affected: %w", err)
	}

	return deleted, nil
}
