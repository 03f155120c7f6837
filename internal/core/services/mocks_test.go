package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/camplight-labs/camplight-core/internal/core/domain"
	"github.com/camplight-labs/camplight-core/internal/core/ports/driven"
)

// mockStateStore implements driven.StateStore for testing
type mockStateStore struct {
	mu     sync.Mutex
	states map[string]*domain.AuthorizationState
}

func newMockStateStore() *mockStateStore {
	return &mockStateStore{states: make(map[string]*domain.AuthorizationState)}
}

func (m *mockStateStore) Save(ctx context.Context, state *domain.AuthorizationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.State] = state
	return nil
}

func (m *mockStateStore) VerifyAndConsume(ctx context.Context, state, userID, provider string) (*domain.AuthorizationState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.states[state]
	if !ok || s.UserID != userID || s.Provider != provider || s.IsExpired(time.Now()) {
		return nil, nil
	}
	delete(m.states, state)
	return s, nil
}

func (m *mockStateStore) CleanupExpired(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now()
	for k, v := range m.states {
		if v.IsExpired(now) {
			delete(m.states, k)
			n++
		}
	}
	return n, nil
}

// mockConnectionStore implements driven.ConnectionStore for testing
type mockConnectionStore struct {
	mu        sync.Mutex
	conns     map[string]*domain.Connection
	corrupted map[string]bool
	reads     int
	touches   int
}

func newMockConnectionStore() *mockConnectionStore {
	return &mockConnectionStore{
		conns:     make(map[string]*domain.Connection),
		corrupted: make(map[string]bool),
	}
}

func (m *mockConnectionStore) Upsert(ctx context.Context, conn *domain.Connection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	stored := *conn
	if existing, ok := m.conns[conn.UserID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	stored.IsActive = true
	m.conns[conn.UserID] = &stored
	return nil
}

func (m *mockConnectionStore) GetDecrypted(ctx context.Context, userID string) (*domain.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.corrupted[userID] {
		return nil, domain.ErrCorruptedConnection
	}
	conn, ok := m.conns[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *conn
	return &copied, nil
}

func (m *mockConnectionStore) Deactivate(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.conns[userID]
	if !ok || !conn.IsActive {
		return false, nil
	}
	conn.IsActive = false
	conn.UpdatedAt = time.Now()
	return true, nil
}

func (m *mockConnectionStore) TouchValidated(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touches++
	if conn, ok := m.conns[userID]; ok {
		now := time.Now()
		conn.LastValidatedAt = &now
	}
	return nil
}

// mockOAuthHandler implements driven.OAuthHandler for testing
type mockOAuthHandler struct {
	token       string
	exchangeErr error
	meta        *domain.AccountMetadata
	metaErr     error

	exchangeCalls int
	metaCalls     int
}

func newMockOAuthHandler() *mockOAuthHandler {
	return &mockOAuthHandler{
		token: "T",
		meta: &domain.AccountMetadata{
			ServerPrefix: "us1",
			AccountID:    "acct-1",
			AccountName:  "Test Account",
			Email:        "owner@example.com",
			Username:     "owner",
			Raw:          json.RawMessage(`{"dc":"us1"}`),
		},
	}
}

func (m *mockOAuthHandler) BuildAuthURL(state string) string {
	return "https://login.mailchimp.com/oauth2/authorize?state=" + state
}

func (m *mockOAuthHandler) ExchangeCode(ctx context.Context, code string) (string, error) {
	m.exchangeCalls++
	if m.exchangeErr != nil {
		return "", m.exchangeErr
	}
	return m.token, nil
}

func (m *mockOAuthHandler) GetMetadata(ctx context.Context, accessToken string) (*domain.AccountMetadata, error) {
	m.metaCalls++
	if m.metaErr != nil {
		return nil, m.metaErr
	}
	return m.meta, nil
}

// mockClientFactory implements driven.MailchimpClientFactory for testing
type mockClientFactory struct {
	lastToken  string
	lastPrefix string
	built      int
}

func (f *mockClientFactory) Scoped(accessToken, serverPrefix string) driven.MailchimpClient {
	f.built++
	f.lastToken = accessToken
	f.lastPrefix = serverPrefix
	return &mockClient{}
}

// mockClient is an inert driven.MailchimpClient; operations under test are
// closures that decide their own result.
type mockClient struct{}

func (c *mockClient) Ping(ctx context.Context) (*domain.APIHealth, error) {
	return &domain.APIHealth{Status: "Everything's Chimpy!"}, nil
}

func (c *mockClient) GetAccount(ctx context.Context) (*domain.AccountInfo, error) {
	return &domain.AccountInfo{AccountID: "acct-1"}, nil
}

func (c *mockClient) ListAudiences(ctx context.Context, page domain.PageParams) (*domain.AudienceList, error) {
	return &domain.AudienceList{}, nil
}

func (c *mockClient) ListCampaigns(ctx context.Context, page domain.PageParams) (*domain.CampaignList, error) {
	return &domain.CampaignList{}, nil
}

func (c *mockClient) GetCampaignReport(ctx context.Context, campaignID string) (*domain.CampaignReport, error) {
	return &domain.CampaignReport{CampaignID: campaignID}, nil
}

// newTestOAuthService wires an OAuth service over fresh mocks.
func newTestOAuthService() (*mockStateStore, *mockConnectionStore, *mockOAuthHandler, *ConnectionValidator, *oauthService) {
	stateStore := newMockStateStore()
	connStore := newMockConnectionStore()
	handler := newMockOAuthHandler()
	validator := NewConnectionValidator(connStore, NewValidationCache(0, 0), nil)

	svc := NewOAuthService(OAuthServiceConfig{
		StateStore:      stateStore,
		ConnectionStore: connStore,
		OAuthHandler:    handler,
		Validator:       validator,
	}).(*oauthService)

	return stateStore, connStore, handler, validator, svc
}
