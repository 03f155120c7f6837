package driven

import (
	"context"

	"github.com/camplight-labs/camplight-core/internal/core/domain"
)

// OAuthHandler performs the provider side of the authorization flow:
// building the authorize URL, exchanging the code, and fetching the account
// metadata that later calls depend on.
type OAuthHandler interface {
	// BuildAuthURL constructs the authorization URL embedding state.
	BuildAuthURL(state string) string

	// ExchangeCode exchanges an authorization code for an access token.
	// Codes are single-use upstream; a failed exchange cannot be retried.
	ExchangeCode(ctx context.Context, code string) (string, error)

	// GetMetadata fetches account metadata (shard, account id, login) for a
	// freshly exchanged token.
	GetMetadata(ctx context.Context, accessToken string) (*domain.AccountMetadata, error)
}

// MailchimpClient is the narrow, typed surface an upstream operation runs
// against. Each instance is scoped to one user's token and shard; instances
// are never shared between requests.
type MailchimpClient interface {
	Ping(ctx context.Context) (*domain.APIHealth, error)
	GetAccount(ctx context.Context) (*domain.AccountInfo, error)
	ListAudiences(ctx context.Context, page domain.PageParams) (*domain.AudienceList, error)
	ListCampaigns(ctx context.Context, page domain.PageParams) (*domain.CampaignList, error)
	GetCampaignReport(ctx context.Context, campaignID string) (*domain.CampaignReport, error)
}

// Operation is one upstream API call, expressed against the client port.
// The call wrapper validates the connection, builds a scoped client, and
// runs the operation; the operation itself never sees tokens or shards.
type Operation func(ctx context.Context, client MailchimpClient) (any, error)

// MailchimpClientFactory builds per-call scoped clients. A fresh client per
// call keeps tokens from leaking between concurrent requests for different
// users.
type MailchimpClientFactory interface {
	Scoped(accessToken, serverPrefix string) MailchimpClient
}
