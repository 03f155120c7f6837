package mailchimp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/camplight-labs/camplight-core/internal/core/domain"
)

// testClient points a scoped client at a local server, ignoring the shard
// placeholder in the URL template.
func testClient(srv *httptest.Server, token string) *Client {
	f := NewClientFactory()
	f.BaseURLTemplate = srv.URL
	return f.Scoped(token, "us1").(*Client)
}

func TestClientFactory_ShardRouting(t *testing.T) {
	f := NewClientFactory()

	c := f.Scoped("token", "us19").(*Client)
	if c.baseURL != "https://us19.api.mailchimp.com/3.0" {
		t.Errorf("baseURL = %q, want the us19 shard", c.baseURL)
	}

	c2 := f.Scoped("token", "us6").(*Client)
	if c2.baseURL != "https://us6.api.mailchimp.com/3.0" {
		t.Errorf("baseURL = %q, want the us6 shard", c2.baseURL)
	}
}

func TestClient_Ping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ping" {
			t.Errorf("path = %q, want /ping", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer mc-token" {
			t.Errorf("Authorization = %q, want Bearer mc-token", got)
		}
		w.Write([]byte(`{"health_status":"Everything's Chimpy!"}`))
	}))
	defer srv.Close()

	health, err := testClient(srv, "mc-token").Ping(context.Background())
	if err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if health.Status != "Everything's Chimpy!" {
		t.Errorf("Status = %q", health.Status)
	}
}

func TestClient_GetAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			t.Errorf("path = %q, want /", r.URL.Path)
		}
		w.Write([]byte(`{
			"account_id": "acct-1",
			"account_name": "Acme Newsletters",
			"email": "owner@acme.example",
			"username": "acme-owner",
			"pricing_plan_type": "forever_free",
			"total_subscribers": 1234
		}`))
	}))
	defer srv.Close()

	info, err := testClient(srv, "mc-token").GetAccount(context.Background())
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	if info.AccountID != "acct-1" || info.TotalSubscribers != 1234 {
		t.Errorf("GetAccount() = %+v", info)
	}
}

func TestClient_ListAudiences(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lists" {
			t.Errorf("path = %q, want /lists", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("count") != "5" || q.Get("offset") != "10" {
			t.Errorf("pagination = count %q offset %q", q.Get("count"), q.Get("offset"))
		}
		w.Write([]byte(`{
			"lists": [
				{"id": "l1", "name": "Weekly", "stats": {"member_count": 200, "open_rate": 41.5, "click_rate": 3.2}},
				{"id": "l2", "name": "Launches", "stats": {"member_count": 50, "open_rate": 60.0, "click_rate": 9.9}}
			],
			"total_items": 7
		}`))
	}))
	defer srv.Close()

	list, err := testClient(srv, "mc-token").ListAudiences(context.Background(), domain.PageParams{Count: 5, Offset: 10})
	if err != nil {
		t.Fatalf("ListAudiences() error = %v", err)
	}
	if list.TotalItems != 7 || len(list.Audiences) != 2 {
		t.Fatalf("ListAudiences() = %+v", list)
	}
	if list.Audiences[0].MemberCount != 200 || list.Audiences[1].OpenRate != 60.0 {
		t.Errorf("stats not flattened: %+v", list.Audiences)
	}
}

func TestClient_ListCampaigns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"campaigns": [{
				"id": "c1",
				"type": "regular",
				"status": "sent",
				"emails_sent": 180,
				"send_time": "2026-08-01T09:00:00+00:00",
				"settings": {"title": "August issue", "subject_line": "What's new"}
			}],
			"total_items": 1
		}`))
	}))
	defer srv.Close()

	list, err := testClient(srv, "mc-token").ListCampaigns(context.Background(), domain.PageParams{})
	if err != nil {
		t.Fatalf("ListCampaigns() error = %v", err)
	}
	if len(list.Campaigns) != 1 {
		t.Fatalf("ListCampaigns() = %+v", list)
	}

	c := list.Campaigns[0]
	if c.Title != "August issue" || c.Subject != "What's new" {
		t.Errorf("settings not flattened: %+v", c)
	}
	if c.SendTime == nil || c.SendTime.Day() != 1 {
		t.Errorf("SendTime = %v", c.SendTime)
	}
}

func TestClient_GetCampaignReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/reports/c1" {
			t.Errorf("path = %q, want /reports/c1", r.URL.Path)
		}
		w.Write([]byte(`{
			"id": "c1",
			"emails_sent": 180,
			"opens": {"opens_total": 90, "open_rate": 0.5},
			"clicks": {"clicks_total": 20, "click_rate": 0.11},
			"unsubscribed": 2,
			"bounces": {"hard_bounces": 1, "soft_bounces": 3}
		}`))
	}))
	defer srv.Close()

	report, err := testClient(srv, "mc-token").GetCampaignReport(context.Background(), "c1")
	if err != nil {
		t.Fatalf("GetCampaignReport() error = %v", err)
	}
	if report.OpensTotal != 90 || report.ClicksTotal != 20 {
		t.Errorf("GetCampaignReport() = %+v", report)
	}
	if report.Bounces != 4 {
		t.Errorf("Bounces = %d, want hard+soft = 4", report.Bounces)
	}
}

func TestClient_UpstreamErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode domain.ErrorCode
	}{
		{"unauthorized", http.StatusUnauthorized, domain.CodeUpstreamAuthError},
		{"forbidden", http.StatusForbidden, domain.CodeUpstreamAuthError},
		{"rate limited", http.StatusTooManyRequests, domain.CodeUpstreamRateLimited},
		{"server error", http.StatusInternalServerError, domain.CodeUpstreamGenericError},
		{"not found", http.StatusNotFound, domain.CodeUpstreamGenericError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"title":"Upstream Problem","detail":"something upstream"}`))
			}))
			defer srv.Close()

			_, err := testClient(srv, "mc-token").Ping(context.Background())
			if err == nil {
				t.Fatal("Ping() error = nil")
			}

			var ue *domain.UpstreamError
			if !errors.As(err, &ue) {
				t.Fatalf("error %T is not *domain.UpstreamError", err)
			}
			if ue.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", ue.StatusCode, tt.status)
			}
			if ue.Detail != "something upstream" {
				t.Errorf("Detail = %q", ue.Detail)
			}
			if got := domain.CodeForError(err); got != tt.wantCode {
				t.Errorf("CodeForError() = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestClient_RateLimitHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Limit", "10")
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"detail":"slow down"}`))
	}))
	defer srv.Close()

	_, err := testClient(srv, "mc-token").Ping(context.Background())

	var ue *domain.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("error %T is not *domain.UpstreamError", err)
	}
	if ue.RateLimit == nil {
		t.Fatal("RateLimit = nil, want parsed headers")
	}
	if ue.RateLimit.Remaining != 0 || ue.RateLimit.Limit != 10 {
		t.Errorf("RateLimit = %+v", ue.RateLimit)
	}
	if until := time.Until(ue.RateLimit.ResetTime); until < 25*time.Second || until > 35*time.Second {
		t.Errorf("ResetTime %v not ~30s out", ue.RateLimit.ResetTime)
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // Connection refused from here on

	_, err := testClient(srv, "mc-token").Ping(context.Background())

	var ue *domain.UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("error %T is not *domain.UpstreamError", err)
	}
	if !ue.Transport {
		t.Error("Transport = false for a refused connection")
	}
	if got := domain.CodeForError(err); got != domain.CodeUpstreamNetworkError {
		t.Errorf("CodeForError() = %q, want UpstreamNetworkError", got)
	}
}
