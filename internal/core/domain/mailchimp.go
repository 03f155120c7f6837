package domain

import "time"

// Read models for the dashboard's Mailchimp surface. These cover the fields
// the presentation layer actually renders; the full per-endpoint schemas are
// the adapter's problem.

// AccountInfo is the authenticated account's profile.
type AccountInfo struct {
	AccountID      string `json:"account_id"`
	AccountName    string `json:"account_name"`
	Email          string `json:"email"`
	Username       string `json:"username"`
	PricingPlan    string `json:"pricing_plan_type,omitempty"`
	TotalSubscribers int  `json:"total_subscribers"`
}

// Audience is a Mailchimp list.
type Audience struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"member_count"`
	OpenRate    float64 `json:"open_rate"`
	ClickRate   float64 `json:"click_rate"`
}

// AudienceList is a page of audiences.
type AudienceList struct {
	Audiences  []Audience `json:"lists"`
	TotalItems int        `json:"total_items"`
}

// Campaign is a sent or scheduled campaign.
type Campaign struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	Title      string     `json:"title"`
	Subject    string     `json:"subject_line,omitempty"`
	EmailsSent int        `json:"emails_sent"`
	SendTime   *time.Time `json:"send_time,omitempty"`
}

// CampaignList is a page of campaigns.
type CampaignList struct {
	Campaigns  []Campaign `json:"campaigns"`
	TotalItems int        `json:"total_items"`
}

// CampaignReport is the performance summary for one campaign.
type CampaignReport struct {
	CampaignID   string  `json:"id"`
	EmailsSent   int     `json:"emails_sent"`
	OpensTotal   int     `json:"opens_total"`
	OpenRate     float64 `json:"open_rate"`
	ClicksTotal  int     `json:"clicks_total"`
	ClickRate    float64 `json:"click_rate"`
	Unsubscribes int     `json:"unsubscribed"`
	Bounces      int     `json:"bounces_total"`
}

// APIHealth is the response of the Mailchimp ping endpoint.
type APIHealth struct {
	Status string `json:"health_status"`
}

// PageParams bounds list operations.
type PageParams struct {
	Count  int
	Offset int
}
