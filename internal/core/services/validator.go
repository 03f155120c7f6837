package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/camplight-labs/camplight-core/internal/core/domain"
	"github.com/camplight-labs/camplight-core/internal/core/ports/driven"
)

// ConnectionValidator is the read path in front of every protected
// operation. It answers "can this user call upstream right now", caching the
// classification briefly so a burst of dashboard requests does not hammer
// the store with decrypt reads.
type ConnectionValidator struct {
	store  driven.ConnectionStore
	cache  *ValidationCache
	logger *slog.Logger
}

// NewConnectionValidator creates a validator over the given store and cache.
func NewConnectionValidator(store driven.ConnectionStore, cache *ValidationCache, logger *slog.Logger) *ConnectionValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnectionValidator{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// Validate classifies the user's connection. On success it returns the shard
// and decrypted token needed for an upstream call; otherwise one of
// domain.ErrNotConnected, domain.ErrInactive, or
// domain.ErrCorruptedConnection. Store-unreachable errors pass through
// unclassified and are never cached.
func (v *ConnectionValidator) Validate(ctx context.Context, userID string) (*domain.ValidatedConnection, error) {
	if conn, err, ok := v.cache.get(userID); ok {
		return conn, err
	}

	conn, err := v.store.GetDecrypted(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		v.cache.set(userID, nil, domain.ErrNotConnected)
		return nil, domain.ErrNotConnected
	case errors.Is(err, domain.ErrCorruptedConnection):
		v.cache.set(userID, nil, domain.ErrCorruptedConnection)
		return nil, domain.ErrCorruptedConnection
	case err != nil:
		return nil, err
	}

	if !conn.IsActive {
		v.cache.set(userID, nil, domain.ErrInactive)
		return nil, domain.ErrInactive
	}

	validated := &domain.ValidatedConnection{
		UserID:       conn.UserID,
		ServerPrefix: conn.ServerPrefix,
		AccessToken:  conn.AccessToken,
	}
	v.cache.set(userID, validated, nil)

	if err := v.store.TouchValidated(ctx, userID); err != nil {
		v.logger.Warn("bump last_validated_at failed", "user_id", userID, "error", err)
	}

	return validated, nil
}

// Purge drops the user's cached classification.
func (v *ConnectionValidator) Purge(userID string) {
	v.cache.Purge(userID)
}
