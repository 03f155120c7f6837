package mailchimp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func testHandler(srv *httptest.Server) *OAuthHandler {
	return NewOAuthHandler(OAuthConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://dashboard.example.com/oauth/callback",
		AuthorizeURL: srv.URL + "/oauth2/authorize",
		TokenURL:     srv.URL + "/oauth2/token",
		MetadataURL:  srv.URL + "/oauth2/metadata",
	})
}

func TestOAuthHandler_BuildAuthURL(t *testing.T) {
	h := NewOAuthHandler(OAuthConfig{
		ClientID:    "client-id",
		RedirectURL: "https://dashboard.example.com/oauth/callback",
	})

	raw := h.BuildAuthURL("state-token")

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("BuildAuthURL() produced unparseable URL: %v", err)
	}
	if u.Host != "login.mailchimp.com" {
		t.Errorf("host = %q, want login.mailchimp.com", u.Host)
	}

	q := u.Query()
	if q.Get("state") != "state-token" {
		t.Errorf("state = %q, want %q", q.Get("state"), "state-token")
	}
	if q.Get("client_id") != "client-id" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("response_type") != "code" {
		t.Errorf("response_type = %q, want code", q.Get("response_type"))
	}
	if q.Get("redirect_uri") != "https://dashboard.example.com/oauth/callback" {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
}

func TestOAuthHandler_ExchangeCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/token" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("code"); got != "auth-code" {
			t.Errorf("code = %q, want auth-code", got)
		}
		if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostForm.Get("client_secret"); got != "client-secret" {
			t.Errorf("client_secret = %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"mc-token","expires_in":0,"scope":null}`))
	}))
	defer srv.Close()

	token, err := testHandler(srv).ExchangeCode(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}
	if token != "mc-token" {
		t.Errorf("ExchangeCode() = %q, want mc-token", token)
	}
}

func TestOAuthHandler_ExchangeCodeRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"code already redeemed"}`))
	}))
	defer srv.Close()

	_, err := testHandler(srv).ExchangeCode(context.Background(), "used-code")
	if err == nil {
		t.Fatal("ExchangeCode() error = nil, want rejection")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("error %q does not carry the upstream status", err)
	}
}

func TestOAuthHandler_ExchangeCodeEmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	if _, err := testHandler(srv).ExchangeCode(context.Background(), "auth-code"); err == nil {
		t.Error("ExchangeCode() accepted a response with no access token")
	}
}

func TestOAuthHandler_GetMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "OAuth mc-token" {
			t.Errorf("Authorization = %q, want OAuth mc-token", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"dc": "us19",
			"accountname": "Acme Newsletters",
			"user_id": 12345678,
			"login": {"email": "owner@acme.example", "login_name": "acme-owner"},
			"api_endpoint": "https://us19.api.mailchimp.com"
		}`))
	}))
	defer srv.Close()

	meta, err := testHandler(srv).GetMetadata(context.Background(), "mc-token")
	if err != nil {
		t.Fatalf("GetMetadata() error = %v", err)
	}

	if meta.ServerPrefix != "us19" {
		t.Errorf("ServerPrefix = %q, want us19", meta.ServerPrefix)
	}
	if meta.AccountID != "12345678" {
		t.Errorf("AccountID = %q, want 12345678", meta.AccountID)
	}
	if meta.Email != "owner@acme.example" {
		t.Errorf("Email = %q", meta.Email)
	}
	if meta.Username != "acme-owner" {
		t.Errorf("Username = %q", meta.Username)
	}
	if len(meta.Raw) == 0 {
		t.Error("Raw metadata not captured")
	}
}

func TestOAuthHandler_GetMetadataMissingDC(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"accountname":"no shard here"}`))
	}))
	defer srv.Close()

	if _, err := testHandler(srv).GetMetadata(context.Background(), "mc-token"); err == nil {
		t.Error("GetMetadata() accepted metadata without a dc field")
	}
}

func TestOAuthHandler_GetMetadataUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid token"}`))
	}))
	defer srv.Close()

	if _, err := testHandler(srv).GetMetadata(context.Background(), "bad-token"); err == nil {
		t.Error("GetMetadata() error = nil, want unauthorized failure")
	}
}
