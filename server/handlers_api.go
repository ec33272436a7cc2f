package server

import (
	"encoding/json"
	"net/http"

	"github.com/sfbridge/sfbridge/internal/errors"
)

const contentTypeJSON = "application/json; charset=utf-8"

// HealthHandler is the liveness probe. Unauthenticated, never touches the
// session store beyond reporting which backend is in use.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":       "ok",
			"sessionStore": s.sessions.Kind(),
		})
	}
}

// SessionInfoHandler lets the front end render its login state. Anonymous is
// a valid answer, not a 401.
func (s *Server) SessionInfoHandler() http.HandlerFunc {
	type sessionInfo struct {
		Authenticated bool   `json:"authenticated"`
		Username      string `json:"username,omitempty"`
		Email         string `json:"email,omitempty"`
		UserType      string `json:"userType,omitempty"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.sessionIDFromRequest(r)
		if !ok {
			writeJSON(w, http.StatusOK, sessionInfo{})
			return
		}
		session, err := s.sessions.Get(r.Context(), id)
		if err != nil || !session.IsAuthenticated() {
			writeJSON(w, http.StatusOK, sessionInfo{})
			return
		}
		writeJSON(w, http.StatusOK, sessionInfo{
			Authenticated: true,
			Username:      session.Username,
			Email:         session.Email,
			UserType:      session.UserType,
		})
	}
}

// ValidationRulesHandler proxies the rule list using the session's credentials.
func (s *Server) ValidationRulesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session := sessionFromContext(r.Context())
		client := s.newRulesClient(session.InstanceHost, session.AccessToken)

		rules, err := client.ListValidationRules(r.Context())
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rules)
	}
}

// ValidationToggleHandler flips one rule's active flag. The upstream client
// fetches the current state freshly before negating it, so a caller retry
// after a network failure never flips blindly twice.
func (s *Server) ValidationToggleHandler() http.HandlerFunc {
	type toggleRequest struct {
		ID string `json:"id"`
	}
	type toggleResponse struct {
		ID     string `json:"id"`
		Active bool   `json:"active"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req toggleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
			writeJSONError(w, http.StatusBadRequest, "invalid_request", "body must be JSON with a rule id")
			return
		}

		session := sessionFromContext(r.Context())
		client := s.newRulesClient(session.InstanceHost, session.AccessToken)

		rule, err := client.ToggleValidationRule(r.Context(), req.ID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toggleResponse{ID: rule.ID, Active: rule.Active})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]string{
		"error":             code,
		"error_description": description,
	})
}

// writeError converts a taxonomy error into a structured JSON body. The
// distinction that matters most to callers: reauthentication_required means
// "log in again", transient classes mean "retry with backoff".
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errors.ErrInvalidDomain), errors.Is(err, errors.ErrInvalidRequest), errors.Is(err, errors.ErrMissingCode):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, errors.ErrUnauthenticated), errors.Is(err, errors.ErrSessionNotFound), errors.Is(err, errors.ErrSessionExpired):
		writeJSONError(w, http.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, errors.ErrUpstreamAuth):
		writeJSONError(w, http.StatusUnauthorized, "reauthentication_required", err.Error())
	case errors.Is(err, errors.ErrRuleNotFound):
		writeJSONError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, errors.ErrProvider):
		writeJSONError(w, http.StatusBadGateway, "provider_error", err.Error())
	case errors.Is(err, errors.ErrUpstreamTransient):
		writeJSONError(w, http.StatusServiceUnavailable, "upstream_unavailable", err.Error())
	case errors.Is(err, errors.ErrSessionPersistence):
		writeJSONError(w, http.StatusServiceUnavailable, "session_store_unavailable", err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
