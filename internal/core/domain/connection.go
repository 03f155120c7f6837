package domain

import (
	"encoding/json"
	"time"
)

// ProviderMailchimp is the only provider in current scope. The stores and
// the flow controller carry the tag anyway so a second provider is a new
// adapter, not a schema change.
const ProviderMailchimp = "mailchimp"

// Connection is a user's link to their Mailchimp account. At most one row
// exists per user. The access token is encrypted at rest; the plaintext
// only ever lives in memory, populated by ConnectionStore.GetDecrypted.
type Connection struct {
	UserID string `json:"user_id"`

	// AccessToken is the decrypted OAuth token. Never serialized, never
	// logged, never persisted as-is.
	AccessToken string `json:"-"`

	// ServerPrefix is the Mailchimp data-center shard (e.g. "us1") that
	// selects the regional API endpoint for this account.
	ServerPrefix string `json:"server_prefix"`

	AccountID string `json:"account_id"`
	Email     string `json:"email,omitempty"`
	Username  string `json:"username,omitempty"`

	// IsActive is false for a soft-disconnected connection: unusable for
	// calls but retained for audit and reconnect detection.
	IsActive bool `json:"is_active"`

	// Metadata is the opaque provider-specific blob captured at connect time.
	Metadata json.RawMessage `json:"metadata,omitempty"`

	CreatedAt       time.Time  `json:"created_at"`
	LastValidatedAt *time.Time `json:"last_validated_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ConnectionSummary is the safe external view of a connection (no token).
type ConnectionSummary struct {
	UserID          string     `json:"user_id"`
	ServerPrefix    string     `json:"server_prefix"`
	AccountID       string     `json:"account_id"`
	Email           string     `json:"email,omitempty"`
	Username        string     `json:"username,omitempty"`
	IsActive        bool       `json:"is_active"`
	CreatedAt       time.Time  `json:"created_at"`
	LastValidatedAt *time.Time `json:"last_validated_at,omitempty"`
}

// ToSummary converts a Connection to its token-free view.
func (c *Connection) ToSummary() *ConnectionSummary {
	return &ConnectionSummary{
		UserID:          c.UserID,
		ServerPrefix:    c.ServerPrefix,
		AccountID:       c.AccountID,
		Email:           c.Email,
		Username:        c.Username,
		IsActive:        c.IsActive,
		CreatedAt:       c.CreatedAt,
		LastValidatedAt: c.LastValidatedAt,
	}
}

// ValidatedConnection is what a protected operation needs to talk upstream:
// the shard and the decrypted token, nothing else.
type ValidatedConnection struct {
	UserID       string
	ServerPrefix string
	AccessToken  string
}

// AccountMetadata is the account information returned by the provider's
// OAuth metadata endpoint after a successful token exchange. ServerPrefix
// is the only field subsequent calls depend on.
type AccountMetadata struct {
	ServerPrefix string `json:"dc"`
	AccountID    string `json:"user_id"`
	AccountName  string `json:"accountname"`
	Email        string `json:"email"`
	Username     string `json:"login_name"`
	APIEndpoint  string `json:"api_endpoint"`

	// Raw is the metadata response body as received, stored on the
	// connection for audit.
	Raw json.RawMessage `json:"-"`
}

// Identity is everything the core consumes from the identity provider:
// an authenticated user id. Session mechanics stay outside.
type Identity struct {
	UserID        string
	Authenticated bool
}
