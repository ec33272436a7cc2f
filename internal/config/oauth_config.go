package config

import (
	"strings"
	"time"
)

type OAuthConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetRedirectURI() string
	GetScopes() []string
	GetExchangeTimeout() time.Duration
	GetUpstreamTimeout() time.Duration
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

// GetClientID returns the Salesforce connected-app consumer key.
func (OAuth) GetClientID() string {
	return GetEnv("SF_CLIENT_ID", "")
}

// GetClientSecret returns the connected-app consumer secret. Empty is valid
// for public PKCE clients where the connected app does not require a secret.
func (OAuth) GetClientSecret() string {
	return GetEnv("SF_CLIENT_SECRET", "")
}

func (OAuth) GetRedirectURI() string {
	return GetEnv("SF_REDIRECT_URI", "http://localhost:8080/oauth/callback")
}

func (OAuth) GetScopes() []string {
	return strings.Fields(GetEnv("SF_SCOPES", "api refresh_token openid profile email"))
}

// GetExchangeTimeout bounds the token exchange and identity fetch.
func (OAuth) GetExchangeTimeout() time.Duration {
	return 15 * time.Second
}

// GetUpstreamTimeout bounds Tooling API calls (rule list / toggle).
func (OAuth) GetUpstreamTimeout() time.Duration {
	return 20 * time.Second
}
