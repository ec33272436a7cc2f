package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/sfbridge/sfbridge/sessions"
)

// sessionIDFromRequest reads the opaque session identifier from the cookie.
func (s *Server) sessionIDFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(s.config.GetSessionCookieName())
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

// ensureSession returns the browser's current session record, creating a new
// one (and setting the cookie) when none exists. The new record is not saved
// here; the first meaningful transition does that.
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) *sessions.Session {
	if id, ok := s.sessionIDFromRequest(r); ok {
		if session, err := s.sessions.Get(r.Context(), id); err == nil {
			return session
		}
	}

	session := sessions.New(uuid.NewString())
	s.SetSessionCookie(w, r, session.ID)
	return session
}

// SetSessionCookie writes the session cookie. Outside DEV the front end and
// the bridge are deployed cross-origin, which requires SameSite=None and
// Secure; in DEV plain http gets Lax.
func (s *Server) SetSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string) {
	secure := s.env != "DEV" || getScheme(r) == "https"
	sameSite := http.SameSiteLaxMode
	if s.env != "DEV" {
		sameSite = http.SameSiteNoneMode
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetSessionCookieName(),
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		MaxAge:   int(s.config.GetSessionTTL().Seconds()),
	})
}

func (s *Server) ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	secure := s.env != "DEV" || getScheme(r) == "https"
	sameSite := http.SameSiteLaxMode
	if s.env != "DEV" {
		sameSite = http.SameSiteNoneMode
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetSessionCookieName(),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		MaxAge:   -1,
	})
}
