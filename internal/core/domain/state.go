package domain

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// DefaultStateTTL is how long an authorization state stays redeemable.
const DefaultStateTTL = 10 * time.Minute

// AuthorizationState binds a pending OAuth authorization attempt to the user
// who started it (CSRF protection). States are single-use: exactly one
// verify-and-consume call can succeed, after which the state never again
// satisfies a lookup.
type AuthorizationState struct {
	// State is a cryptographically random token, unique per attempt.
	State string `json:"state"`

	// UserID is the dashboard user who initiated the flow.
	UserID string `json:"user_id"`

	// Provider tags the upstream the attempt targets (e.g. "mailchimp").
	Provider string `json:"provider"`

	// CreatedAt is when the attempt started.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is when the state stops being redeemable.
	ExpiresAt time.Time `json:"expires_at"`
}

// NewAuthorizationState generates a fresh state for userID against provider.
// The token is 32 bytes of crypto/rand, hex encoded.
func NewAuthorizationState(userID, provider string, ttl time.Duration) (*AuthorizationState, error) {
	if userID == "" || provider == "" {
		return nil, fmt.Errorf("%w: user id and provider are required", ErrInvalidInput)
	}
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}

	token, err := randomToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate state token: %w", err)
	}

	now := time.Now()
	return &AuthorizationState{
		State:     token,
		UserID:    userID,
		Provider:  provider,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// IsExpired reports whether the state is past its TTL at the given instant.
func (s *AuthorizationState) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// randomToken returns n bytes of crypto/rand as a hex string.
func randomToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
