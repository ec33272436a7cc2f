package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sfbridge/sfbridge/auth"
	"github.com/sfbridge/sfbridge/internal/config"
	"github.com/sfbridge/sfbridge/salesforce"
	"github.com/sfbridge/sfbridge/sessions"
)

// rulesClient is the credential-bearing proxy surface the API handlers call.
type rulesClient interface {
	ListValidationRules(ctx context.Context) ([]salesforce.ValidationRule, error)
	ToggleValidationRule(ctx context.Context, id string) (*salesforce.ValidationRule, error)
}

type Server struct {
	env      string
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	flow     *auth.Service
	sessions sessions.Repo

	// newRulesClient builds the upstream client from a session's credentials;
	// swapped out in tests.
	newRulesClient func(instanceURL, accessToken string) rulesClient
}

func New(config config.Config, sessionRepo sessions.Repo, flow *auth.Service) *Server {
	s := &Server{
		mux:      http.NewServeMux(),
		config:   config,
		flow:     flow,
		sessions: sessionRepo,
	}
	s.env = config.GetEnv()
	upstreamTimeout := config.GetUpstreamTimeout()
	s.newRulesClient = func(instanceURL, accessToken string) rulesClient {
		return salesforce.NewClient(instanceURL, accessToken, upstreamTimeout)
	}

	s.initRoutes()
	s.logRoutes()

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			log.Info().Str("method", parts[0]).Str("path", parts[1]).Msg("route registered")
		} else {
			log.Info().Str("path", parts[0]).Msg("route registered")
		}
	}
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}

// sessionTouchTimeout bounds session store writes done on the request path.
const sessionTouchTimeout = 5 * time.Second
