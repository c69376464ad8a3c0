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

	"github.com/meridian-labs/graphkeeper/internal/core/ports/driven"
	"github.com/meridian-labs/graphkeeper/internal/core/ports/driving"
)

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string

	// Services
	authFlowService driving.AuthFlowService
	profileService  driving.ProfileService

	// Infrastructure
	sessionMiddleware *SessionMiddleware
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// SecureCookies sets Secure/SameSite=None on the session cookie.
	// Required in production since the provider posts the callback
	// cross-site.
	SecureCookies bool
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    3000,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	authFlowService driving.AuthFlowService,
	profileService driving.ProfileService,
	sessionStore driven.SessionStore,
) *Server {
	s := &Server{
		router:            http.NewServeMux(),
		version:           cfg.Version,
		authFlowService:   authFlowService,
		profileService:    profileService,
		sessionMiddleware: NewSessionMiddleware(sessionStore, cfg.SecureCookies),
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
	withSession := s.sessionMiddleware.WithSession
	requireAuth := s.sessionMiddleware.RequireAuthenticated("/auth/signin")

	// Health endpoints (no session)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Auth flow endpoints
	s.router.Handle("GET /auth/signin", withSession(http.HandlerFunc(s.handleSignIn)))
	s.router.Handle("GET /auth/signin/basic", withSession(http.HandlerFunc(s.handleSignInBasic)))
	s.router.Handle("POST /auth/redirect", withSession(http.HandlerFunc(s.handleCallback)))
	s.router.Handle("GET /auth/signout", withSession(http.HandlerFunc(s.handleSignOut)))

	// Profile endpoint (requires completed sign-in)
	s.router.Handle("GET /users/profile",
		withSession(requireAuth(http.HandlerFunc(s.handleProfile))))
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

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
