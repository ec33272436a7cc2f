package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sfbridge/sfbridge/auth"
	"github.com/sfbridge/sfbridge/internal/config"
	"github.com/sfbridge/sfbridge/internal/errors"
	"github.com/sfbridge/sfbridge/salesforce"
	"github.com/sfbridge/sfbridge/sessions"
)

type stubExchanger struct {
	token *salesforce.Token
	err   error
	calls int
}

func (s *stubExchanger) AuthURL(eps salesforce.Endpoints, challenge string) string {
	return eps.AuthorizationURL + "?code_challenge=" + url.QueryEscape(challenge)
}

func (s *stubExchanger) Exchange(ctx context.Context, eps salesforce.Endpoints, code, verifier string) (*salesforce.Token, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if s.token != nil {
		return s.token, nil
	}
	return &salesforce.Token{
		AccessToken: "tok",
		InstanceURL: "https://acme.my.salesforce.com",
		IdentityURL: "https://login.salesforce.com/id/00D/005",
	}, nil
}

type stubIdentity struct{}

func (stubIdentity) FetchIdentity(ctx context.Context, identityURL, accessToken string) (*salesforce.Identity, error) {
	return &salesforce.Identity{Username: "jane@acme.com", Email: "jane@acme.com", UserType: "STANDARD"}, nil
}

type stubRulesClient struct {
	instanceURL string
	accessToken string
	rules       []salesforce.ValidationRule
	toggled     *salesforce.ValidationRule
	err         error
	calls       int
}

func (c *stubRulesClient) ListValidationRules(ctx context.Context) ([]salesforce.ValidationRule, error) {
	c.calls++
	return c.rules, c.err
}

func (c *stubRulesClient) ToggleValidationRule(ctx context.Context, id string) (*salesforce.ValidationRule, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.toggled, nil
}

func newTestServer(t *testing.T) (*Server, sessions.Repo, *stubExchanger, *stubRulesClient) {
	t.Helper()
	c := config.New()
	repo := sessions.NewInMemoryRepo(time.Minute)
	exchanger := &stubExchanger{}
	flow := auth.NewService(repo, exchanger, stubIdentity{})
	srv := New(c, repo, flow)

	rules := &stubRulesClient{}
	srv.newRulesClient = func(instanceURL, accessToken string) rulesClient {
		rules.instanceURL = instanceURL
		rules.accessToken = accessToken
		return rules
	}
	return srv, repo, exchanger, rules
}

func sessionCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "sfbridge_session" {
			return cookie
		}
	}
	return nil
}

func authenticatedCookie(t *testing.T, repo sessions.Repo) *http.Cookie {
	t.Helper()
	session := sessions.New("authed-session")
	session.AccessToken = "tok"
	session.InstanceHost = "https://acme.my.salesforce.com"
	session.Username = "jane@acme.com"
	session.Authenticated = true
	require.NoError(t, repo.Save(context.Background(), session))
	return &http.Cookie{Name: "sfbridge_session", Value: session.ID}
}

func TestLoginHandler(t *testing.T) {
	t.Run("redirects to provider and sets session cookie", func(t *testing.T) {
		srv, repo, _, _ := newTestServer(t)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login?domain=production", nil))

		resp := rec.Result()
		require.Equal(t, http.StatusFound, resp.StatusCode)
		location := resp.Header.Get("Location")
		require.Contains(t, location, "https://login.salesforce.com/services/oauth2/authorize")

		cookie := sessionCookie(t, resp)
		require.NotNil(t, cookie)
		require.True(t, cookie.HttpOnly)

		stored, err := repo.Get(context.Background(), cookie.Value)
		require.NoError(t, err)
		require.NotEmpty(t, stored.CodeVerifier)
	})

	t.Run("bad custom domain is a 400 with no redirect", func(t *testing.T) {
		srv, _, _, _ := newTestServer(t)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login?domain=custom&customDomain=evil.com", nil))

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Empty(t, rec.Header().Get("Location"))

		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "invalid_request", body["error"])
	})

	t.Run("unknown domain type is a 400", func(t *testing.T) {
		srv, _, _, _ := newTestServer(t)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login?domain=staging", nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestOAuthCallbackHandler(t *testing.T) {
	login := func(t *testing.T, srv *Server) *http.Cookie {
		t.Helper()
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login?domain=production", nil))
		require.Equal(t, http.StatusFound, rec.Code)
		cookie := sessionCookie(t, rec.Result())
		require.NotNil(t, cookie)
		return cookie
	}

	t.Run("success redirects to front end with success flag", func(t *testing.T) {
		srv, repo, _, _ := newTestServer(t)
		cookie := login(t, srv)

		req := httptest.NewRequest(http.MethodGet, "/oauth/callback?code=abc123", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
		require.Contains(t, rec.Header().Get("Location"), "success=1")

		stored, err := repo.Get(context.Background(), cookie.Value)
		require.NoError(t, err)
		require.True(t, stored.IsAuthenticated())
		require.Empty(t, stored.CodeVerifier)
	})

	t.Run("callback without login redirects with session expired error", func(t *testing.T) {
		srv, _, exchanger, _ := newTestServer(t)

		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth/callback?code=abc123", nil))

		require.Equal(t, http.StatusFound, rec.Code)
		require.Contains(t, rec.Header().Get("Location"), "error=")
		require.Contains(t, rec.Header().Get("Location"), url.QueryEscape("expired"))
		require.Zero(t, exchanger.calls, "no token exchange may be attempted without a pending verifier")
	})

	t.Run("provider error is passed through", func(t *testing.T) {
		srv, _, _, _ := newTestServer(t)
		cookie := login(t, srv)

		req := httptest.NewRequest(http.MethodGet, "/oauth/callback?error=access_denied&error_description=user+cancelled", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
		location := rec.Header().Get("Location")
		require.Contains(t, location, url.QueryEscape("access_denied"))
	})

	t.Run("exchange timeout redirects with error and resets session", func(t *testing.T) {
		srv, repo, exchanger, _ := newTestServer(t)
		exchanger.err = errors.Wrapf(errors.ErrUpstreamTransient, "token exchange timed out")
		cookie := login(t, srv)

		req := httptest.NewRequest(http.MethodGet, "/oauth/callback?code=abc123", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
		require.Contains(t, rec.Header().Get("Location"), "error=")

		stored, err := repo.Get(context.Background(), cookie.Value)
		require.NoError(t, err)
		require.False(t, stored.Authenticated)
		require.Empty(t, stored.CodeVerifier)
	})
}

func TestLogoutHandlers(t *testing.T) {
	t.Run("POST destroys session and returns JSON", func(t *testing.T) {
		srv, repo, _, _ := newTestServer(t)
		cookie := authenticatedCookie(t, repo)

		req := httptest.NewRequest(http.MethodPost, "/logout", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]bool
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.True(t, body["success"])

		_, err := repo.Get(context.Background(), cookie.Value)
		require.ErrorIs(t, err, errors.ErrSessionNotFound)

		cleared := sessionCookie(t, rec.Result())
		require.NotNil(t, cleared)
		require.Less(t, cleared.MaxAge, 0)
	})

	t.Run("GET redirects to front end", func(t *testing.T) {
		srv, repo, _, _ := newTestServer(t)
		cookie := authenticatedCookie(t, repo)

		req := httptest.NewRequest(http.MethodGet, "/logout", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusFound, rec.Code)
	})

	t.Run("logout without session still succeeds", func(t *testing.T) {
		srv, _, _, _ := newTestServer(t)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/logout", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestSessionGuard(t *testing.T) {
	t.Run("no cookie is rejected without an upstream call", func(t *testing.T) {
		srv, _, _, rules := newTestServer(t)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/validation-rules", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Zero(t, rules.calls)
	})

	t.Run("unknown session is rejected", func(t *testing.T) {
		srv, _, _, rules := newTestServer(t)
		req := httptest.NewRequest(http.MethodGet, "/api/validation-rules", nil)
		req.AddCookie(&http.Cookie{Name: "sfbridge_session", Value: "bogus"})
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Zero(t, rules.calls)
	})

	t.Run("pending login session is not authenticated", func(t *testing.T) {
		srv, repo, _, rules := newTestServer(t)
		session := sessions.New("pending")
		session.CodeVerifier = "v"
		require.NoError(t, repo.Save(context.Background(), session))

		req := httptest.NewRequest(http.MethodGet, "/api/validation-rules", nil)
		req.AddCookie(&http.Cookie{Name: "sfbridge_session", Value: "pending"})
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Zero(t, rules.calls)
	})

	t.Run("valid session slides expiry", func(t *testing.T) {
		srv, repo, _, _ := newTestServer(t)
		cookie := authenticatedCookie(t, repo)
		before, err := repo.Get(context.Background(), cookie.Value)
		require.NoError(t, err)

		time.Sleep(5 * time.Millisecond)
		req := httptest.NewRequest(http.MethodGet, "/api/validation-rules", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		after, err := repo.Get(context.Background(), cookie.Value)
		require.NoError(t, err)
		require.True(t, after.ExpiresAt.After(before.ExpiresAt))
	})
}

func TestValidationRulesHandler(t *testing.T) {
	t.Run("returns rules with session credentials", func(t *testing.T) {
		srv, repo, _, rules := newTestServer(t)
		rules.rules = []salesforce.ValidationRule{
			{ID: "03d1", Name: "Require_Phone", EntityName: "Account", Active: true},
			{ID: "03d2", Name: "Amount_Positive", EntityName: "Opportunity", Active: false},
		}
		cookie := authenticatedCookie(t, repo)

		req := httptest.NewRequest(http.MethodGet, "/api/validation-rules", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "https://acme.my.salesforce.com", rules.instanceURL)
		require.Equal(t, "tok", rules.accessToken)

		var body []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body, 2)
		require.Equal(t, "Require_Phone", body[0]["name"])
		require.Equal(t, "Account", body[0]["entityName"])
		require.Equal(t, true, body[0]["active"])
	})

	t.Run("expired token maps to reauthentication_required", func(t *testing.T) {
		srv, repo, _, rules := newTestServer(t)
		rules.err = errors.Wrapf(errors.ErrUpstreamAuth, "upstream rejected token (401)")
		cookie := authenticatedCookie(t, repo)

		req := httptest.NewRequest(http.MethodGet, "/api/validation-rules", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "reauthentication_required", body["error"])
	})

	t.Run("transient upstream failure maps to 503", func(t *testing.T) {
		srv, repo, _, rules := newTestServer(t)
		rules.err = errors.Wrapf(errors.ErrUpstreamTransient, "request timed out")
		cookie := authenticatedCookie(t, repo)

		req := httptest.NewRequest(http.MethodGet, "/api/validation-rules", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestValidationToggleHandler(t *testing.T) {
	t.Run("returns the new state", func(t *testing.T) {
		srv, repo, _, rules := newTestServer(t)
		rules.toggled = &salesforce.ValidationRule{ID: "03d1", Name: "Require_Phone", EntityName: "Account", Active: false}
		cookie := authenticatedCookie(t, repo)

		req := httptest.NewRequest(http.MethodPost, "/api/validation-toggle", strings.NewReader(`{"id":"03d1"}`))
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "03d1", body["id"])
		require.Equal(t, false, body["active"])
	})

	t.Run("missing id is a 400", func(t *testing.T) {
		srv, repo, _, rules := newTestServer(t)
		cookie := authenticatedCookie(t, repo)

		req := httptest.NewRequest(http.MethodPost, "/api/validation-toggle", strings.NewReader(`{}`))
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Zero(t, rules.calls)
	})

	t.Run("unknown rule is a 404", func(t *testing.T) {
		srv, repo, _, rules := newTestServer(t)
		rules.err = errors.ErrRuleNotFound
		cookie := authenticatedCookie(t, repo)

		req := httptest.NewRequest(http.MethodPost, "/api/validation-toggle", strings.NewReader(`{"id":"missing"}`))
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealthHandler(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "memory", body["sessionStore"])
}

func TestSessionInfoHandler(t *testing.T) {
	t.Run("anonymous is a valid answer", func(t *testing.T) {
		srv, _, _, _ := newTestServer(t)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, false, body["authenticated"])
	})

	t.Run("authenticated session reports identity", func(t *testing.T) {
		srv, repo, _, _ := newTestServer(t)
		cookie := authenticatedCookie(t, repo)

		req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, true, body["authenticated"])
		require.Equal(t, "jane@acme.com", body["username"])
	})
}

func TestCorsMiddleware(t *testing.T) {
	t.Run("allowed origin gets credentials headers", func(t *testing.T) {
		srv, _, _, _ := newTestServer(t)
		req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
		require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("disallowed origin is a hard deny", func(t *testing.T) {
		srv, _, _, _ := newTestServer(t)
		req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
		req.Header.Set("Origin", "https://evil.example")
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)
		require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight for allowed origin", func(t *testing.T) {
		srv, _, _, _ := newTestServer(t)
		req := httptest.NewRequest(http.MethodOptions, "/api/validation-toggle", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	})
}
