package server

import (
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/sfbridge/sfbridge/internal/errors"
	"github.com/sfbridge/sfbridge/salesforce"
)

// LoginHandler starts the OAuth flow. Validation failures (unknown domain
// type, malformed custom domain) are surfaced immediately; no provider
// redirect happens for them.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		domainType, err := salesforce.ParseDomainType(r.URL.Query().Get("domain"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		customDomain := r.URL.Query().Get("customDomain")

		session := s.ensureSession(w, r)
		authURL, err := s.flow.BeginLogin(r.Context(), session, domainType, customDomain)
		if err != nil {
			s.writeError(w, err)
			return
		}

		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// OAuthCallbackHandler completes the token exchange and bounces the browser
// back to the front end with ?success=1 or ?error=<message>.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		code := query.Get("code")
		providerErr := query.Get("error")
		providerErrDesc := query.Get("error_description")

		session := s.ensureSession(w, r)
		if err := s.flow.CompleteLogin(r.Context(), session, code, providerErr, providerErrDesc); err != nil {
			log.Warn().Err(err).Msg("login failed")
			s.redirectToFrontend(w, r, "error="+url.QueryEscape(userMessage(err)))
			return
		}

		s.redirectToFrontend(w, r, "success=1")
	}
}

// LogoutHandler destroys the session and answers JSON (API-facing POST).
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logout(w, r)
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// LogoutRedirectHandler destroys the session and redirects (browser-facing GET).
func (s *Server) LogoutRedirectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.logout(w, r)
		s.redirectToFrontend(w, r, "")
	}
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if id, ok := s.sessionIDFromRequest(r); ok {
		if err := s.flow.Logout(r.Context(), id); err != nil {
			log.Warn().Err(err).Msg("failed to destroy session on logout")
		}
	}
	s.ClearSessionCookie(w, r)
}

func (s *Server) redirectToFrontend(w http.ResponseWriter, r *http.Request, query string) {
	target := s.config.GetFrontendURL()
	if query != "" {
		target += "?" + query
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// userMessage maps an error to the message encoded into the front-end
// redirect. Known classes get a stable, friendly phrasing; everything else
// passes its message through (the taxonomy guarantees no internals leak).
func userMessage(err error) string {
	switch {
	case errors.Is(err, errors.ErrSessionExpired):
		return "Your login session expired, please try again"
	case errors.Is(err, errors.ErrMissingCode):
		return "The identity provider returned neither a code nor an error"
	case errors.Is(err, errors.ErrSessionPersistence):
		return "Session store unavailable, please try again later"
	default:
		return err.Error()
	}
}
