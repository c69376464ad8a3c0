package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/meridian-labs/graphkeeper/internal/core/domain"
	"github.com/meridian-labs/graphkeeper/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// Health endpoints

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Auth flow endpoints

// handleSignIn starts the full-profile authorization flow and redirects
// the browser to the provider.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	session := GetSession(r.Context())

	authURL, err := s.authFlowService.BeginSignIn(r.Context(), session, driving.BeginSignInRequest{
		Scopes:     domain.ScopesFull,
		RedirectTo: "/users/profile",
	})
	if err != nil {
		s.writeFlowError(w, err)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// handleSignInBasic starts the identify-only flow: no scopes beyond the
// OIDC defaults, returning to the root page after login.
func (s *Server) handleSignInBasic(w http.ResponseWriter, r *http.Request) {
	session := GetSession(r.Context())

	authURL, err := s.authFlowService.BeginSignIn(r.Context(), session, driving.BeginSignInRequest{
		Scopes:     domain.ScopesIdentify,
		RedirectTo: "/",
	})
	if err != nil {
		s.writeFlowError(w, err)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// handleCallback receives the provider's form_post redirect with state and
// code, validates it, and completes the token exchange.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}

	session := GetSession(r.Context())

	resp, err := s.authFlowService.CompleteSignIn(r.Context(), session,
		r.PostFormValue("state"), r.PostFormValue("code"))
	if err != nil {
		s.writeFlowError(w, err)
		return
	}

	redirectTo := resp.RedirectTo
	if redirectTo == "" {
		redirectTo = "/"
	}
	http.Redirect(w, r, redirectTo, http.StatusFound)
}

// handleSignOut destroys the session and hands the browser to the
// provider's logout endpoint.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	session := GetSession(r.Context())

	logoutURL, err := s.authFlowService.SignOut(r.Context(), session)
	if err != nil {
		s.writeFlowError(w, err)
		return
	}

	s.sessionMiddleware.clearCookie(w)
	http.Redirect(w, r, logoutURL, http.StatusFound)
}

// Profile endpoint

// handleProfile fetches the signed-in user's profile from Graph and
// persists the session's tokens as a durable record.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	session := GetSession(r.Context())

	profile, err := s.profileService.Fetch(r.Context(), session)
	if err != nil {
		if errors.Is(err, domain.ErrNotAuthenticated) {
			http.Redirect(w, r, "/auth/signin", http.StatusFound)
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, profile)
}

// writeFlowError maps auth flow failures to responses. All of them abort
// the flow; the user restarts it rather than retrying.
func (s *Server) writeFlowError(w http.ResponseWriter, err error) {
	var exchangeErr *domain.TokenExchangeError
	switch {
	case errors.Is(err, domain.ErrStateMissing),
		errors.Is(err, domain.ErrCSRFMismatch),
		errors.Is(err, domain.ErrStateInvalid),
		errors.Is(err, domain.ErrAuthorizationURL):
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.As(err, &exchangeErr):
		writeError(w, http.StatusInternalServerError, exchangeErr.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
