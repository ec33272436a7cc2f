package server

import "net/http"

func (s *Server) initRoutes() {
	// OAuth flow (browser-facing)
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.BrowserMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.BrowserMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteLogout, ChainMiddleware(s.LogoutRedirectHandler(), s.BrowserMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// Proxy API (session-gated; the guard is the single enforcement point
	// in front of the upstream)
	s.RegisterRouteHandler("GET "+RouteAPIValidationRules, ChainMiddleware(s.ValidationRulesHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteHandler("POST "+RouteAPIValidationToggle, ChainMiddleware(s.ValidationToggleHandler(), s.APIMiddleware(s.RequireSession())...))
	s.RegisterRouteHandler("GET "+RouteAPISession, ChainMiddleware(s.SessionInfoHandler(), s.APIMiddleware()...))

	// CORS preflight; the CORS middleware answers before these handlers run.
	s.RegisterRouteHandler("OPTIONS /api/", ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteLogout, ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))

	// Liveness probe: unauthenticated, no session touch.
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
}

// PreflightHandler answers same-origin OPTIONS requests; cross-origin ones
// are short-circuited by the CORS middleware.
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}
