package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/camplight-labs/camplight-core/internal/core/domain"
	"github.com/camplight-labs/camplight-core/internal/core/ports/driven"
	"github.com/camplight-labs/camplight-core/internal/core/ports/driving"
)

// Ensure oauthService implements OAuthService
var _ driving.OAuthService = (*oauthService)(nil)

// OAuthServiceConfig holds configuration for the OAuth service.
type OAuthServiceConfig struct {
	// StateStore persists single-use authorization states.
	StateStore driven.StateStore

	// ConnectionStore persists per-user connections.
	ConnectionStore driven.ConnectionStore

	// OAuthHandler talks to the provider's authorize/token/metadata endpoints.
	OAuthHandler driven.OAuthHandler

	// Validator owns the in-process validation cache; the service purges it
	// when a connection changes.
	Validator *ConnectionValidator

	// StateTTL defaults to domain.DefaultStateTTL.
	StateTTL time.Duration

	Logger *slog.Logger
}

// oauthService orchestrates authorize -> callback -> persisted connection.
// It is the only writer of connection rows besides explicit disconnect.
type oauthService struct {
	stateStore driven.StateStore
	connStore  driven.ConnectionStore
	oauth      driven.OAuthHandler
	validator  *ConnectionValidator
	stateTTL   time.Duration
	logger     *slog.Logger
}

// NewOAuthService creates a new OAuth service.
func NewOAuthService(cfg OAuthServiceConfig) driving.OAuthService {
	ttl := cfg.StateTTL
	if ttl <= 0 {
		ttl = domain.DefaultStateTTL
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &oauthService{
		stateStore: cfg.StateStore,
		connStore:  cfg.ConnectionStore,
		oauth:      cfg.OAuthHandler,
		validator:  cfg.Validator,
		stateTTL:   ttl,
		logger:     logger,
	}
}

// Initiate starts an authorization attempt: it generates and persists a
// single-use state and returns the authorization URL embedding it.
func (s *oauthService) Initiate(ctx context.Context, userID string) (*driving.AuthorizeResponse, error) {
	state, err := domain.NewAuthorizationState(userID, domain.ProviderMailchimp, s.stateTTL)
	if err != nil {
		return nil, err
	}

	if err := s.stateStore.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("save authorization state: %w", err)
	}

	s.logger.Info("authorization initiated", "user_id", userID, "expires_at", state.ExpiresAt)

	return &driving.AuthorizeResponse{
		AuthorizationURL: s.oauth.BuildAuthURL(state.State),
		State:            state.State,
		ExpiresAt:        state.ExpiresAt.Format(time.RFC3339),
	}, nil
}

// CompleteCallback runs the four callback steps in order. The steps are
// linear and non-retryable: the authorization code is single-use upstream,
// and the state is consumed in step one. A failure partway through leaves a
// consumed state and no connection, which is a terminal outcome - the user
// restarts at Initiate.
func (s *oauthService) CompleteCallback(ctx context.Context, userID string, req driving.CallbackRequest) (*domain.ConnectionSummary, error) {
	if req.Error != "" {
		// The provider redirected with an error instead of a code (user
		// denied, bad client config). Nothing was exchanged.
		return nil, fmt.Errorf("%w: provider returned %s: %s",
			domain.ErrTokenExchangeFailed, req.Error, req.ErrorDescription)
	}

	// Step 1: consume the state. Wrong value, wrong owner, wrong provider,
	// and expired all collapse into ErrStateInvalid.
	state, err := s.stateStore.VerifyAndConsume(ctx, req.State, userID, domain.ProviderMailchimp)
	if err != nil {
		return nil, fmt.Errorf("verify authorization state: %w", err)
	}
	if state == nil {
		return nil, domain.ErrStateInvalid
	}

	// Step 2: exchange the code.
	token, err := s.oauth.ExchangeCode(ctx, req.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenExchangeFailed, err)
	}

	// Step 3: fetch the shard and account attributes. On failure the token
	// is discarded; no partial connection is persisted.
	meta, err := s.oauth.GetMetadata(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMetadataFetchFailed, err)
	}

	// Step 4: persist. Only after this does the connection become usable.
	conn := &domain.Connection{
		UserID:       userID,
		AccessToken:  token,
		ServerPrefix: meta.ServerPrefix,
		AccountID:    meta.AccountID,
		Email:        meta.Email,
		Username:     meta.Username,
		IsActive:     true,
		Metadata:     meta.Raw,
	}
	if err := s.connStore.Upsert(ctx, conn); err != nil {
		return nil, fmt.Errorf("persist connection: %w", err)
	}

	// A reconnect must be visible immediately in this process.
	s.validator.Purge(userID)

	s.logger.Info("connection established",
		"user_id", userID, "server_prefix", meta.ServerPrefix, "account_id", meta.AccountID)

	return conn.ToSummary(), nil
}

// Disconnect soft-disconnects the user's connection and purges the cached
// classification.
func (s *oauthService) Disconnect(ctx context.Context, userID string) (bool, error) {
	wasActive, err := s.connStore.Deactivate(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("deactivate connection: %w", err)
	}

	s.validator.Purge(userID)

	if wasActive {
		s.logger.Info("connection disconnected", "user_id", userID)
	}
	return wasActive, nil
}

// Status reads through to the store, bypassing the validation cache, so the
// answer is accurate immediately after a disconnect on any instance.
func (s *oauthService) Status(ctx context.Context, userID string) (*domain.ConnectionSummary, error) {
	conn, err := s.connStore.GetDecrypted(ctx, userID)
	if err != nil {
		return nil, err
	}
	return conn.ToSummary(), nil
}
