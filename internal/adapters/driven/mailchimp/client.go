package mailchimp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/camplight-labs/camplight-core/internal/core/domain"
	"github.com/camplight-labs/camplight-core/internal/core/ports/driven"
)

// Ensure the types implement their ports.
var (
	_ driven.MailchimpClient        = (*Client)(nil)
	_ driven.MailchimpClientFactory = (*ClientFactory)(nil)
)

const defaultPageCount = 10

// ClientFactory builds per-call scoped clients. BaseURLTemplate defaults to
// the public Mailchimp shard scheme; tests substitute an httptest server
// with a %s placeholder (or none) for the shard.
type ClientFactory struct {
	// BaseURLTemplate formats the API root from the server prefix, e.g.
	// "https://%s.api.mailchimp.com/3.0".
	BaseURLTemplate string

	httpClient *http.Client
}

// NewClientFactory creates a factory producing clients against the public
// Mailchimp API.
func NewClientFactory() *ClientFactory {
	return &ClientFactory{
		BaseURLTemplate: "https://%s.api.mailchimp.com/3.0",
		httpClient:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Scoped returns a client bound to one token and shard. The client holds the
// token for the duration of a single operation and is then discarded.
func (f *ClientFactory) Scoped(accessToken, serverPrefix string) driven.MailchimpClient {
	base := f.BaseURLTemplate
	if strings.Contains(base, "%s") {
		base = fmt.Sprintf(base, serverPrefix)
	}
	return &Client{
		baseURL:     strings.TrimSuffix(base, "/"),
		accessToken: accessToken,
		httpClient:  f.httpClient,
	}
}

// Client talks to one Mailchimp account's regional API endpoint.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// get performs an authenticated GET and decodes the JSON body into out.
// Every failure path surfaces as *domain.UpstreamError so the call wrapper
// can classify it without inspecting HTTP details.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return &domain.UpstreamError{Transport: true, Detail: err.Error()}
	}

	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &domain.UpstreamError{Transport: true, Detail: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.UpstreamError{Transport: true, Detail: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &domain.UpstreamError{
			StatusCode: resp.StatusCode,
			Detail:     upstreamDetail(body),
			RateLimit:  parseRateLimit(resp),
		}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &domain.UpstreamError{
			StatusCode: resp.StatusCode,
			Detail:     fmt.Sprintf("decode response: %v", err),
		}
	}

	return nil
}

// upstreamDetail extracts the human readable message from a Mailchimp
// problem+json error body, falling back to the raw body.
func upstreamDetail(body []byte) string {
	var problem struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &problem); err == nil {
		if problem.Detail != "" {
			return problem.Detail
		}
		if problem.Title != "" {
			return problem.Title
		}
	}
	return string(body)
}

// parseRateLimit reads rate-limit headers off an error response. Returns nil
// when the upstream sent none.
func parseRateLimit(resp *http.Response) *domain.RateLimit {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	limit := resp.Header.Get("X-RateLimit-Limit")
	retryAfter := resp.Header.Get("Retry-After")
	if remaining == "" && limit == "" && retryAfter == "" {
		return nil
	}

	rl := &domain.RateLimit{}
	if n, err := strconv.Atoi(remaining); err == nil {
		rl.Remaining = n
	}
	if n, err := strconv.Atoi(limit); err == nil {
		rl.Limit = n
	}
	if secs, err := strconv.Atoi(retryAfter); err == nil {
		rl.ResetTime = time.Now().Add(time.Duration(secs) * time.Second)
	}
	return rl
}

// pageQuery converts page params to Mailchimp query parameters.
func pageQuery(page domain.PageParams) url.Values {
	if page.Count <= 0 {
		page.Count = defaultPageCount
	}
	q := url.Values{}
	q.Set("count", strconv.Itoa(page.Count))
	q.Set("offset", strconv.Itoa(page.Offset))
	return q
}

// Ping checks API reachability and token validity.
func (c *Client) Ping(ctx context.Context) (*domain.APIHealth, error) {
	var health domain.APIHealth
	if err := c.get(ctx, "/ping", nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// GetAccount fetches the authenticated account's profile.
func (c *Client) GetAccount(ctx context.Context) (*domain.AccountInfo, error) {
	var info domain.AccountInfo
	if err := c.get(ctx, "/", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListAudiences fetches a page of the account's audiences.
func (c *Client) ListAudiences(ctx context.Context, page domain.PageParams) (*domain.AudienceList, error) {
	// Engagement rates live under each list's stats object.
	var resp struct {
		Lists []struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Stats struct {
				MemberCount int     `json:"member_count"`
				OpenRate    float64 `json:"open_rate"`
				ClickRate   float64 `json:"click_rate"`
			} `json:"stats"`
		} `json:"lists"`
		TotalItems int `json:"total_items"`
	}
	if err := c.get(ctx, "/lists", pageQuery(page), &resp); err != nil {
		return nil, err
	}

	list := &domain.AudienceList{
		Audiences:  make([]domain.Audience, 0, len(resp.Lists)),
		TotalItems: resp.TotalItems,
	}
	for _, l := range resp.Lists {
		list.Audiences = append(list.Audiences, domain.Audience{
			ID:          l.ID,
			Name:        l.Name,
			MemberCount: l.Stats.MemberCount,
			OpenRate:    l.Stats.OpenRate,
			ClickRate:   l.Stats.ClickRate,
		})
	}
	return list, nil
}

// ListCampaigns fetches a page of the account's campaigns.
func (c *Client) ListCampaigns(ctx context.Context, page domain.PageParams) (*domain.CampaignList, error) {
	var resp struct {
		Campaigns []struct {
			ID         string `json:"id"`
			Type       string `json:"type"`
			Status     string `json:"status"`
			EmailsSent int    `json:"emails_sent"`
			SendTime   string `json:"send_time"`
			Settings   struct {
				Title       string `json:"title"`
				SubjectLine string `json:"subject_line"`
			} `json:"settings"`
		} `json:"campaigns"`
		TotalItems int `json:"total_items"`
	}
	if err := c.get(ctx, "/campaigns", pageQuery(page), &resp); err != nil {
		return nil, err
	}

	list := &domain.CampaignList{
		Campaigns:  make([]domain.Campaign, 0, len(resp.Campaigns)),
		TotalItems: resp.TotalItems,
	}
	for _, cp := range resp.Campaigns {
		campaign := domain.Campaign{
			ID:         cp.ID,
			Type:       cp.Type,
			Status:     cp.Status,
			Title:      cp.Settings.Title,
			Subject:    cp.Settings.SubjectLine,
			EmailsSent: cp.EmailsSent,
		}
		if t, err := time.Parse(time.RFC3339, cp.SendTime); err == nil {
			campaign.SendTime = &t
		}
		list.Campaigns = append(list.Campaigns, campaign)
	}
	return list, nil
}

// GetCampaignReport fetches the performance summary for one campaign.
func (c *Client) GetCampaignReport(ctx context.Context, campaignID string) (*domain.CampaignReport, error) {
	var resp struct {
		ID         string `json:"id"`
		EmailsSent int    `json:"emails_sent"`
		Opens      struct {
			OpensTotal int     `json:"opens_total"`
			OpenRate   float64 `json:"open_rate"`
		} `json:"opens"`
		Clicks struct {
			ClicksTotal int     `json:"clicks_total"`
			ClickRate   float64 `json:"click_rate"`
		} `json:"clicks"`
		Unsubscribed int `json:"unsubscribed"`
		Bounces      struct {
			HardBounces int `json:"hard_bounces"`
			SoftBounces int `json:"soft_bounces"`
		} `json:"bounces"`
	}
	if err := c.get(ctx, "/reports/"+url.PathEscape(campaignID), nil, &resp); err != nil {
		return nil, err
	}

	return &domain.CampaignReport{
		CampaignID:   resp.ID,
		EmailsSent:   resp.EmailsSent,
		OpensTotal:   resp.Opens.OpensTotal,
		OpenRate:     resp.Opens.OpenRate,
		ClicksTotal:  resp.Clicks.ClicksTotal,
		ClickRate:    resp.Clicks.ClickRate,
		Unsubscribes: resp.Unsubscribed,
		Bounces:      resp.Bounces.HardBounces + resp.Bounces.SoftBounces,
	}, nil
}
