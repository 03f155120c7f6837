package driven

import (
	"context"

	"github.com/camplight-labs/camplight-core/internal/core/domain"
)

// ConnectionStore persists per-user Mailchimp credentials and status.
// Implementations encrypt the access token before writing and decrypt it in
// memory on read; ciphertext never crosses this interface.
type ConnectionStore interface {
	// Upsert inserts or replaces the single row for conn.UserID and marks it
	// active. The plaintext token on conn is encrypted before writing.
	Upsert(ctx context.Context, conn *domain.Connection) error

	// GetDecrypted fetches the user's connection with the token decrypted in
	// memory. Returns domain.ErrNotFound when no row exists and
	// domain.ErrCorruptedConnection when the stored blob cannot be decrypted
	// (distinct conditions: the latter needs manual remediation).
	GetDecrypted(ctx context.Context, userID string) (*domain.Connection, error)

	// Deactivate soft-disconnects the user's connection, keeping the row.
	// Reports whether a row existed and was active before the call;
	// calling it again is not an error, it just returns false.
	Deactivate(ctx context.Context, userID string) (bool, error)

	// TouchValidated bumps last_validated_at after a validation check
	// confirms the connection is usable.
	TouchValidated(ctx context.Context, userID string) error
}
