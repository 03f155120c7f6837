package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/camplight-labs/camplight-core/internal/core/domain"
	"github.com/camplight-labs/camplight-core/internal/core/ports/driven"
	"github.com/camplight-labs/camplight-core/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
	Code  string `json:"code,omitempty" example:"StateInvalid"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// DisconnectResponse reports the outcome of a disconnect request
// @Description Disconnect outcome; disconnected is false when no active connection existed
type DisconnectResponse struct {
	Disconnected bool `json:"disconnected" example:"true"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns the readiness status of the API (checks the database connection)
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Failure      503  {object}  ErrorResponse  "Database unreachable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Connection lifecycle endpoints

// handleAuthorize godoc
// @Summary      Start Mailchimp authorization
// @Description  Creates a single-use state token and returns the Mailchimp authorization URL
// @Tags         OAuth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  driving.AuthorizeResponse
// @Failure      401  {object}  ErrorResponse  "Not authenticated"
// @Failure      500  {object}  ErrorResponse  "Failed to start authorization"
// @Router       /oauth/mailchimp/authorize [post]
func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentity(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resp, err := s.oauthService.Initiate(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start authorization")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleCallback godoc
// @Summary      Complete Mailchimp authorization
// @Description  Consumes the state token, exchanges the code, and persists the connection
// @Tags         OAuth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.CallbackRequest  true  "Callback parameters from the provider redirect"
// @Success      200      {object}  domain.ConnectionSummary
// @Failure      400      {object}  ErrorResponse  "Invalid state or provider denial"
// @Failure      401      {object}  ErrorResponse  "Not authenticated"
// @Failure      502      {object}  ErrorResponse  "Provider exchange or metadata fetch failed"
// @Router       /oauth/mailchimp/callback [post]
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentity(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req driving.CallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	summary, err := s.oauthService.CompleteCallback(r.Context(), identity.UserID, req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrStateInvalid):
			writeErrorCode(w, http.StatusBadRequest, "authorization state invalid", domain.CodeStateInvalid)
		case errors.Is(err, domain.ErrTokenExchangeFailed):
			writeErrorCode(w, http.StatusBadGateway, "token exchange failed", domain.CodeTokenExchangeFailed)
		case errors.Is(err, domain.ErrMetadataFetchFailed):
			writeErrorCode(w, http.StatusBadGateway, "account metadata fetch failed", domain.CodeMetadataFetchFailed)
		case errors.Is(err, domain.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "invalid callback parameters")
		default:
			writeError(w, http.StatusInternalServerError, "failed to complete authorization")
		}
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// handleDisconnect godoc
// @Summary      Disconnect Mailchimp
// @Description  Soft-disconnects the user's connection; idempotent
// @Tags         OAuth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  DisconnectResponse
// @Failure      401  {object}  ErrorResponse  "Not authenticated"
// @Router       /oauth/mailchimp/disconnect [post]
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentity(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	disconnected, err := s.oauthService.Disconnect(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to disconnect")
		return
	}

	writeJSON(w, http.StatusOK, DisconnectResponse{Disconnected: disconnected})
}

// handleStatus godoc
// @Summary      Connection status
// @Description  Returns the user's connection summary, reading through to storage
// @Tags         OAuth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.ConnectionSummary
// @Failure      401  {object}  ErrorResponse  "Not authenticated"
// @Failure      404  {object}  ErrorResponse  "Never connected"
// @Failure      409  {object}  ErrorResponse  "Stored credentials corrupted, reconnect required"
// @Router       /oauth/mailchimp/status [get]
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	identity := GetIdentity(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := s.oauthService.Status(r.Context(), identity.UserID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeErrorCode(w, http.StatusNotFound, "not connected", domain.CodeNotConnected)
		case errors.Is(err, domain.ErrCorruptedConnection):
			writeErrorCode(w, http.StatusConflict, "stored credentials corrupted", domain.CodeCorruptedConnection)
		default:
			writeError(w, http.StatusInternalServerError, "failed to read status")
		}
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// Upstream data endpoints. Each handler wraps one upstream operation in the
// call envelope; the HTTP status is 200 for every settled call and the
// envelope's error code carries the failure class.

// handlePing godoc
// @Summary      Upstream health
// @Description  Checks Mailchimp API reachability with the user's connection
// @Tags         Mailchimp
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.CallEnvelope
// @Router       /mailchimp/ping [get]
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	s.callUpstream(w, r, func(ctx context.Context, client driven.MailchimpClient) (any, error) {
		return client.Ping(ctx)
	})
}

// handleAccount godoc
// @Summary      Account profile
// @Description  Fetches the connected Mailchimp account's profile
// @Tags         Mailchimp
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.CallEnvelope
// @Router       /mailchimp/account [get]
func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	s.callUpstream(w, r, func(ctx context.Context, client driven.MailchimpClient) (any, error) {
		return client.GetAccount(ctx)
	})
}

// handleAudiences godoc
// @Summary      List audiences
// @Description  Fetches a page of the account's audiences
// @Tags         Mailchimp
// @Produce      json
// @Security     BearerAuth
// @Param        count   query     int  false  "Page size"
// @Param        offset  query     int  false  "Page offset"
// @Success      200     {object}  domain.CallEnvelope
// @Router       /mailchimp/audiences [get]
func (s *Server) handleAudiences(w http.ResponseWriter, r *http.Request) {
	page := pageParams(r)
	s.callUpstream(w, r, func(ctx context.Context, client driven.MailchimpClient) (any, error) {
		return client.ListAudiences(ctx, page)
	})
}

// handleCampaigns godoc
// @Summary      List campaigns
// @Description  Fetches a page of the account's campaigns
// @Tags         Mailchimp
// @Produce      json
// @Security     BearerAuth
// @Param        count   query     int  false  "Page size"
// @Param        offset  query     int  false  "Page offset"
// @Success      200     {object}  domain.CallEnvelope
// @Router       /mailchimp/campaigns [get]
func (s *Server) handleCampaigns(w http.ResponseWriter, r *http.Request) {
	page := pageParams(r)
	s.callUpstream(w, r, func(ctx context.Context, client driven.MailchimpClient) (any, error) {
		return client.ListCampaigns(ctx, page)
	})
}

// handleCampaignReport godoc
// @Summary      Campaign report
// @Description  Fetches the performance summary for one campaign
// @Tags         Mailchimp
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Campaign ID"
// @Success      200  {object}  domain.CallEnvelope
// @Router       /mailchimp/campaigns/{id}/report [get]
func (s *Server) handleCampaignReport(w http.ResponseWriter, r *http.Request) {
	campaignID := r.PathValue("id")
	if campaignID == "" {
		writeError(w, http.StatusBadRequest, "campaign id is required")
		return
	}

	s.callUpstream(w, r, func(ctx context.Context, client driven.MailchimpClient) (any, error) {
		return client.GetCampaignReport(ctx, campaignID)
	})
}

// callUpstream runs one operation through the call wrapper and writes the
// envelope. Always 200: the envelope, not the transport status, is the
// contract for settled upstream calls.
func (s *Server) callUpstream(w http.ResponseWriter, r *http.Request, op driven.Operation) {
	identity := GetIdentity(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	envelope := s.mailchimpService.Call(r.Context(), identity.UserID, op)
	writeJSON(w, http.StatusOK, envelope)
}

// pageParams reads pagination from the query string.
func pageParams(r *http.Request) domain.PageParams {
	var page domain.PageParams
	if n, err := strconv.Atoi(r.URL.Query().Get("count")); err == nil && n > 0 {
		page.Count = n
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && n >= 0 {
		page.Offset = n
	}
	return page
}

// Response helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeErrorCode(w http.ResponseWriter, status int, message string, code domain.ErrorCode) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: string(code)})
}
