package driven

import "github.com/camplight-labs/camplight-core/internal/core/domain"

// IdentityVerifier is the identity-provider boundary. The core hands it the
// opaque session credential and consumes only the resulting user id; session
// cookies and provider mechanics stay on the other side.
type IdentityVerifier interface {
	// Verify validates the session token and returns the authenticated
	// identity, or domain.ErrUnauthorized.
	Verify(token string) (*domain.Identity, error)
}
