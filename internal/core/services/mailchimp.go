package services

import (
	"context"
	"log/slog"

	"github.com/camplight-labs/camplight-core/internal/core/domain"
	"github.com/camplight-labs/camplight-core/internal/core/ports/driven"
	"github.com/camplight-labs/camplight-core/internal/core/ports/driving"
)

// Ensure mailchimpService implements MailchimpService
var _ driving.MailchimpService = (*mailchimpService)(nil)

// MailchimpServiceConfig holds configuration for the call wrapper.
type MailchimpServiceConfig struct {
	// Validator gates every call on the user's connection state.
	Validator *ConnectionValidator

	// Clients builds per-call scoped API clients.
	Clients driven.MailchimpClientFactory

	// ConnectionStore is used to deactivate a connection whose token the
	// upstream has rejected.
	ConnectionStore driven.ConnectionStore

	Logger *slog.Logger
}

// mailchimpService normalizes every upstream call into a CallEnvelope.
type mailchimpService struct {
	validator *ConnectionValidator
	clients   driven.MailchimpClientFactory
	connStore driven.ConnectionStore
	logger    *slog.Logger
}

// NewMailchimpService creates the upstream call wrapper.
func NewMailchimpService(cfg MailchimpServiceConfig) driving.MailchimpService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &mailchimpService{
		validator: cfg.Validator,
		clients:   cfg.Clients,
		connStore: cfg.ConnectionStore,
		logger:    logger,
	}
}

// Call validates the user's connection, runs op against a scoped client, and
// classifies the outcome. It never returns an error: upstream 5xx, network
// timeouts, and malformed payloads all come back as envelopes.
func (s *mailchimpService) Call(ctx context.Context, userID string, op driven.Operation) domain.CallEnvelope {
	validated, err := s.validator.Validate(ctx, userID)
	if err != nil {
		// No upstream call is attempted for an invalid connection.
		return domain.ErrorEnvelope(err)
	}

	// A fresh client per call: tokens must not leak across concurrent
	// requests for different users.
	client := s.clients.Scoped(validated.AccessToken, validated.ServerPrefix)

	data, err := op(ctx, client)
	if err == nil {
		return domain.SuccessEnvelope(data)
	}

	env := domain.ErrorEnvelope(err)
	if env.ErrorCode == domain.CodeUpstreamAuthError {
		// The upstream rejected the stored token (revoked or expired).
		// Mark the connection inactive so the UI routes to reconnect.
		if _, derr := s.connStore.Deactivate(ctx, userID); derr != nil {
			s.logger.Error("deactivate after upstream auth rejection failed",
				"user_id", userID, "error", derr)
		}
		s.validator.Purge(userID)
		s.logger.Warn("upstream rejected stored token", "user_id", userID)
	}

	return env
}
