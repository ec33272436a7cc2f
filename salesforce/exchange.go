package salesforce

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/sfbridge/sfbridge/internal/errors"
	"github.com/sfbridge/sfbridge/pkce"
)

// Exchanger runs the provider-facing legs of the authorization-code flow:
// building the authorization URL and redeeming a code for tokens.
type Exchanger struct {
	clientID     string
	clientSecret string
	redirectURI  string
	scopes       []string
	timeout      time.Duration
}

func NewExchanger(clientID, clientSecret, redirectURI string, scopes []string, timeout time.Duration) *Exchanger {
	return &Exchanger{
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		scopes:       scopes,
		timeout:      timeout,
	}
}

func (e *Exchanger) oauthConfig(eps Endpoints) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     e.clientID,
		ClientSecret: e.clientSecret,
		RedirectURL:  e.redirectURI,
		Scopes:       e.scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  eps.AuthorizationURL,
			TokenURL: eps.TokenURL,
		},
	}
}

// AuthURL builds the provider authorization URL for a PKCE challenge.
// prompt=login forces re-authentication even when the provider still has a
// live SSO session for the user.
func (e *Exchanger) AuthURL(eps Endpoints, challenge string) string {
	return e.oauthConfig(eps).AuthCodeURL("",
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", pkce.Method),
		oauth2.SetAuthURLParam("prompt", "login"),
	)
}

// Exchange redeems an authorization code with its PKCE verifier at the
// domain-appropriate token endpoint.
func (e *Exchanger) Exchange(ctx context.Context, eps Endpoints, code, verifier string) (*Token, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: e.timeout})

	tok, err := e.oauthConfig(eps).Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", verifier),
	)
	if err != nil {
		return nil, classifyExchangeError(err)
	}

	result := &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	}
	if v, ok := tok.Extra("instance_url").(string); ok {
		result.InstanceURL = v
	}
	if v, ok := tok.Extra("id").(string); ok {
		result.IdentityURL = v
	}
	if result.AccessToken == "" || result.InstanceURL == "" {
		return nil, errors.Wrapf(errors.ErrProvider, "token response missing access_token or instance_url")
	}
	return result, nil
}

func classifyExchangeError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		msg := retrieveErr.ErrorCode
		if retrieveErr.ErrorDescription != "" {
			msg += ": " + retrieveErr.ErrorDescription
		}
		if msg == "" {
			msg = string(retrieveErr.Body)
		}
		return errors.Wrapf(errors.ErrProvider, "token exchange rejected (%s)", msg)
	}
	if isTimeout(err) {
		return errors.Wrapf(errors.ErrUpstreamTransient, "token exchange timed out")
	}
	return errors.Wrapf(errors.ErrUpstreamTransient, "token exchange failed: %v", err)
}
