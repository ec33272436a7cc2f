package server

const (
	RouteLogin    = "/login"
	RouteCallback = "/oauth/callback"
	RouteLogout   = "/logout"

	RouteAPIValidationRules  = "/api/validation-rules"
	RouteAPIValidationToggle = "/api/validation-toggle"
	RouteAPISession          = "/api/session"

	RouteHealth = "/health"
)
