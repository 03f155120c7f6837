package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camplight-labs/camplight-core/internal/core/ports/driven"
	"github.com/camplight-labs/camplight-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string

	// Services
	oauthService     driving.OAuthService
	mailchimpService driving.MailchimpService

	// Infrastructure
	identity driven.IdentityVerifier
	db       Pinger // PostgreSQL health check
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	oauthService driving.OAuthService,
	mailchimpService driving.MailchimpService,
	identity driven.IdentityVerifier,
	db Pinger,
) *Server {
	s := &Server{
		router:           http.NewServeMux(),
		version:          cfg.Version,
		oauthService:     oauthService,
		mailchimpService: mailchimpService,
		identity:         identity,
		db:               db,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.identity)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Connection lifecycle endpoints (authenticated)
	s.router.Handle("POST /api/v1/oauth/mailchimp/authorize",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleAuthorize)))
	s.router.Handle("POST /api/v1/oauth/mailchimp/callback",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleCallback)))
	s.router.Handle("POST /api/v1/oauth/mailchimp/disconnect",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleDisconnect)))
	s.router.Handle("GET /api/v1/oauth/mailchimp/status",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleStatus)))

	// Upstream data endpoints (authenticated)
	s.router.Handle("GET /api/v1/mailchimp/ping",
		authMiddleware.Authenticate(http.HandlerFunc(s.handlePing)))
	s.router.Handle("GET /api/v1/mailchimp/account",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleAccount)))
	s.router.Handle("GET /api/v1/mailchimp/audiences",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleAudiences)))
	s.router.Handle("GET /api/v1/mailchimp/campaigns",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleCampaigns)))
	s.router.Handle("GET /api/v1/mailchimp/campaigns/{id}/report",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleCampaignReport)))
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
