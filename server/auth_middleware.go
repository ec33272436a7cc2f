package server

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/sfbridge/sfbridge/sessions"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeySession stores the authenticated session for downstream handlers
const ContextKeySession ContextKey = "session"

// RequireSession is the session guard: the single gate in front of the
// credential-bearing proxy. It rejects before any upstream call when the
// session is missing, expired or not authenticated, and otherwise hands the
// session (access token + instance host) to the handler via context.
//
// A passing check also slides the session expiry forward.
func (s *Server) RequireSession() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			id, ok := s.sessionIDFromRequest(r)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "no session")
				return
			}

			session, err := s.sessions.Get(r.Context(), id)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "session expired or unknown")
				return
			}
			if !session.IsAuthenticated() {
				writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "login required")
				return
			}

			// Sliding expiry. A failed touch is not fatal to the request;
			// the session just keeps its previous TTL.
			touchCtx, cancel := context.WithTimeout(r.Context(), sessionTouchTimeout)
			if err := s.sessions.Save(touchCtx, session); err != nil {
				log.Warn().Err(err).Str("session_id", session.ID).Msg("failed to slide session expiry")
			}
			cancel()

			ctx := context.WithValue(r.Context(), ContextKeySession, session)
			next(w, r.WithContext(ctx))
		}
	}
}

func sessionFromContext(ctx context.Context) *sessions.Session {
	session, _ := ctx.Value(ContextKeySession).(*sessions.Session)
	return session
}
