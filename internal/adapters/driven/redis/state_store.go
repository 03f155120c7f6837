package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/camplight-labs/camplight-core/internal/core/domain"
	"github.com/camplight-labs/camplight-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.StateStore = (*StateStore)(nil)

// statePrefix namespaces authorization state keys.
const statePrefix = "authstate:"

// StateStore implements driven.StateStore using Redis.
// States expire through Redis TTL; single-use consumption is a single
// atomic GETDEL.
type StateStore struct {
	client *redis.Client
}

// NewStateStore creates a new Redis-backed authorization state store.
func NewStateStore(client *redis.Client) *StateStore {
	return &StateStore{client: client}
}

// stateKey embeds the full (provider, user, state) triple in the key, so a
// lookup with any wrong element simply misses and the stored token survives.
func stateKey(provider, userID, state string) string {
	return statePrefix + provider + ":" + userID + ":" + state
}

// Save stores a new authorization state with TTL derived from ExpiresAt.
func (s *StateStore) Save(ctx context.Context, state *domain.AuthorizationState) error {
	ttl := time.Until(state.ExpiresAt)
	if ttl <= 0 {
		// Already expired, nothing to persist.
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal authorization state: %w", err)
	}

	key := stateKey(state.Provider, state.UserID, state.State)
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("save authorization state: %w", err)
	}

	return nil
}

// VerifyAndConsume atomically retrieves and deletes the matching state.
// GETDEL claims the key in one command, so two concurrent calls with the
// same state value succeed at most once.
func (s *StateStore) VerifyAndConsume(ctx context.Context, state, userID, provider string) (*domain.AuthorizationState, error) {
	key := stateKey(provider, userID, state)

	data, err := s.client.GetDel(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil // Wrong triple or expired
	}
	if err != nil {
		return nil, fmt.Errorf("consume authorization state: %w", err)
	}

	var st domain.AuthorizationState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal authorization state: %w", err)
	}

	return &st, nil
}

// CleanupExpired is a no-op: Redis evicts expired keys itself.
func (s *StateStore) CleanupExpired(ctx context.Context) (int64, error) {
	return 0, nil
}
