package driving

import (
	"context"

	"github.com/camplight-labs/camplight-core/internal/core/domain"
	"github.com/camplight-labs/camplight-core/internal/core/ports/driven"
)

// MailchimpService executes upstream API operations for a user. Every
// outcome - invalid connection, upstream failure, network error - comes back
// as a CallEnvelope; Call never returns a Go error.
type MailchimpService interface {
	Call(ctx context.Context, userID string, op driven.Operation) domain.CallEnvelope
}
