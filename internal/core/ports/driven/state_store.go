package driven

import (
	"context"

	"github.com/camplight-labs/camplight-core/internal/core/domain"
)

// StateStore persists short-lived, single-use authorization states.
type StateStore interface {
	// Save stores a new authorization state.
	Save(ctx context.Context, state *domain.AuthorizationState) error

	// VerifyAndConsume atomically looks up the state matching all three of
	// (state value, user, provider) with an unexpired TTL and deletes it in
	// the same operation. Returns nil, nil on any miss - wrong value, wrong
	// owner, wrong provider, or expired - without distinguishing which, so
	// a probing caller learns nothing from the failure shape.
	//
	// Two concurrent calls with the same state value succeed at most once.
	VerifyAndConsume(ctx context.Context, state, userID, provider string) (*domain.AuthorizationState, error)

	// CleanupExpired removes all expired states and returns how many were
	// deleted. Idempotent; safe to run concurrently with VerifyAndConsume.
	CleanupExpired(ctx context.Context) (int64, error)
}
