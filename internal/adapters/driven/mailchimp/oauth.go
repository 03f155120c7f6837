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

// Ensure OAuthHandler implements the interface.
var _ driven.OAuthHandler = (*OAuthHandler)(nil)

const (
	defaultAuthorizeURL = "https://login.mailchimp.com/oauth2/authorize"
	defaultTokenURL     = "https://login.mailchimp.com/oauth2/token"
	defaultMetadataURL  = "https://login.mailchimp.com/oauth2/metadata"
)

// OAuthConfig holds the registered application's credentials and endpoints.
// The URL fields default to the public Mailchimp endpoints and exist so tests
// can point the handler at a local server.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthorizeURL string
	TokenURL     string
	MetadataURL  string
}

// OAuthHandler handles the provider side of the Mailchimp authorization flow.
type OAuthHandler struct {
	config     OAuthConfig
	httpClient *http.Client
}

// NewOAuthHandler creates a new Mailchimp OAuth handler.
func NewOAuthHandler(config OAuthConfig) *OAuthHandler {
	if config.AuthorizeURL == "" {
		config.AuthorizeURL = defaultAuthorizeURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultTokenURL
	}
	if config.MetadataURL == "" {
		config.MetadataURL = defaultMetadataURL
	}
	return &OAuthHandler{
		config:     config,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// BuildAuthURL constructs the Mailchimp authorization URL embedding state.
func (h *OAuthHandler) BuildAuthURL(state string) string {
	params := url.Values{
		"response_type": {"code"},
		"client_id":     {h.config.ClientID},
		"redirect_uri":  {h.config.RedirectURL},
		"state":         {state},
	}
	return h.config.AuthorizeURL + "?" + params.Encode()
}

// ExchangeCode exchanges an authorization code for an access token.
func (h *OAuthHandler) ExchangeCode(ctx context.Context, code string) (string, error) {
	params := url.Values{
		"grant_type":    {"authorization_code"},
		"client_id":     {h.config.ClientID},
		"client_secret": {h.config.ClientSecret},
		"redirect_uri":  {h.config.RedirectURL},
		"code":          {code},
	}

	req, err := http.NewRequestWithContext(ctx, "POST", h.config.TokenURL,
		strings.NewReader(params.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
		ErrorDesc   string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if tokenResp.Error != "" {
		return "", fmt.Errorf("oauth error: %s - %s", tokenResp.Error, tokenResp.ErrorDesc)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access token")
	}

	return tokenResp.AccessToken, nil
}

// GetMetadata fetches account metadata for a freshly exchanged token.
// The dc field it returns is what routes every later data API call.
func (h *OAuthHandler) GetMetadata(ctx context.Context, accessToken string) (*domain.AccountMetadata, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", h.config.MetadataURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "OAuth "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("metadata endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	// user_id is numeric on the wire.
	var meta struct {
		DC          string `json:"dc"`
		UserID      int64  `json:"user_id"`
		AccountName string `json:"accountname"`
		APIEndpoint string `json:"api_endpoint"`
		Login       struct {
			Email     string `json:"email"`
			LoginName string `json:"login_name"`
		} `json:"login"`
	}
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}

	if meta.DC == "" {
		return nil, fmt.Errorf("metadata response has no dc field")
	}

	return &domain.AccountMetadata{
		ServerPrefix: meta.DC,
		AccountID:    strconv.FormatInt(meta.UserID, 10),
		AccountName:  meta.AccountName,
		Email:        meta.Login.Email,
		Username:     meta.Login.LoginName,
		APIEndpoint:  meta.APIEndpoint,
		Raw:          body,
	}, nil
}
