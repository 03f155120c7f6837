package driving

import (
	"context"

	"github.com/camplight-labs/camplight-core/internal/core/domain"
)

// OAuthService manages the Mailchimp connection lifecycle: starting an
// authorization attempt, completing the callback, and disconnecting.
type OAuthService interface {
	// Initiate starts an authorization attempt for an authenticated user.
	// It persists a single-use state token and returns the authorization
	// URL to redirect the user to. The caller has already authenticated
	// userID; this service only requires an identity.
	Initiate(ctx context.Context, userID string) (*AuthorizeResponse, error)

	// CompleteCallback finishes the flow: consumes the state, exchanges the
	// code, fetches account metadata, and persists the connection. Any
	// failure after state consumption is terminal for this attempt; the
	// user restarts at Initiate.
	CompleteCallback(ctx context.Context, userID string, req CallbackRequest) (*domain.ConnectionSummary, error)

	// Disconnect soft-disconnects the user's connection. Reports whether an
	// active connection existed; a second call returns false, not an error.
	Disconnect(ctx context.Context, userID string) (bool, error)

	// Status returns the user's connection summary, reading through to the
	// store (cache bypassed) so it is accurate immediately after a
	// disconnect. Returns domain.ErrNotFound for a never-connected user.
	Status(ctx context.Context, userID string) (*domain.ConnectionSummary, error)
}

// AuthorizeResponse contains the authorization URL and state.
// @Description Response containing the Mailchimp authorization URL
type AuthorizeResponse struct {
	// AuthorizationURL is the URL to redirect the user to for authorization.
	AuthorizationURL string `json:"authorization_url" example:"https://login.mailchimp.com/oauth2/authorize?client_id=..."`

	// State is the CSRF token that will come back in the callback.
	State string `json:"state" example:"9f2c...e1"`

	// ExpiresAt is when the authorization state expires (10 minutes).
	ExpiresAt string `json:"expires_at" example:"2026-01-15T10:10:00Z"`
}

// CallbackRequest carries the provider's callback parameters.
// @Description OAuth callback parameters from the provider redirect
type CallbackRequest struct {
	// Code is the single-use authorization code from the provider.
	Code string `json:"code" example:"abc123"`

	// State is the CSRF token returned by the provider.
	State string `json:"state" example:"9f2c...e1"`

	// Error is set if the provider returned an error instead of a code.
	Error string `json:"error,omitempty" example:"access_denied"`

	// ErrorDescription provides details about the provider error.
	ErrorDescription string `json:"error_description,omitempty" example:"The user denied access"`
}
