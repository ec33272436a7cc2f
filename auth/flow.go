// Package auth orchestrates the OAuth authorization-code + PKCE flow and the
// session lifecycle around it. A session moves Anonymous → AwaitingCallback →
// Authenticated, and back to Anonymous on logout or any callback failure.
package auth

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/sfbridge/sfbridge/internal/errors"
	"github.com/sfbridge/sfbridge/pkce"
	"github.com/sfbridge/sfbridge/salesforce"
	"github.com/sfbridge/sfbridge/sessions"
)

// Exchanger is the provider-facing half of the flow.
type Exchanger interface {
	AuthURL(eps salesforce.Endpoints, challenge string) string
	Exchange(ctx context.Context, eps salesforce.Endpoints, code, verifier string) (*salesforce.Token, error)
}

// IdentityFetcher resolves the identity document referenced by a token response.
type IdentityFetcher interface {
	FetchIdentity(ctx context.Context, identityURL, accessToken string) (*salesforce.Identity, error)
}

// Service is the OAuth flow controller.
type Service struct {
	repo     sessions.Repo
	exchange Exchanger
	identity IdentityFetcher
}

func NewService(repo sessions.Repo, exchanger Exchanger, identity IdentityFetcher) *Service {
	return &Service{repo: repo, exchange: exchanger, identity: identity}
}

// BeginLogin validates the requested domain, stores a fresh PKCE verifier in
// the session and returns the provider authorization URL.
//
// The session is saved before the URL is handed back: a failed save means the
// transition did not happen and the caller must surface the error instead of
// redirecting into a flow that cannot complete. Calling BeginLogin again
// while a callback is pending simply overwrites the previous verifier; only
// the newest login attempt can complete.
func (s *Service) BeginLogin(ctx context.Context, session *sessions.Session, domainType salesforce.DomainType, customHost string) (string, error) {
	eps, err := salesforce.EndpointsFor(domainType, customHost)
	if err != nil {
		return "", err
	}

	verifier, challenge, err := pkce.Pair()
	if err != nil {
		return "", err
	}

	session.Reset()
	session.CodeVerifier = verifier
	session.DomainType = domainType
	if domainType == salesforce.DomainCustom {
		session.CustomDomainHost = customHost
	}

	if err := s.repo.Save(ctx, session); err != nil {
		log.Error().Err(err).Str("session_id", session.ID).Msg("failed to persist pending login")
		return "", err
	}

	return s.exchange.AuthURL(eps, challenge), nil
}

// CompleteLogin handles the provider callback. Exactly one of code or
// providerErr is expected; neither is a protocol violation.
//
// On success the session is populated atomically: tokens, instance host and
// identity land together, the verifier is deleted, and the session is saved
// before success is reported. On any failure the session returns to Anonymous
// with nothing partially populated.
func (s *Service) CompleteLogin(ctx context.Context, session *sessions.Session, code, providerErr, providerErrDesc string) error {
	// A browser disconnect must not abort the exchange mid-flight; the
	// session has to land in a consistent state either way.
	ctx = context.WithoutCancel(ctx)

	if providerErr != "" {
		s.resetToAnonymous(ctx, session)
		msg := providerErr
		if providerErrDesc != "" {
			msg += ": " + providerErrDesc
		}
		return errors.Wrapf(errors.ErrProvider, "%s", msg)
	}
	if code == "" {
		return errors.ErrMissingCode
	}

	if session == nil || session.CodeVerifier == "" {
		// No pending verifier: the session expired, or this callback was
		// replayed against a session whose login attempt was superseded.
		s.resetToAnonymous(ctx, session)
		return errors.ErrSessionExpired
	}

	eps, err := salesforce.EndpointsFor(session.DomainType, session.CustomDomainHost)
	if err != nil {
		s.resetToAnonymous(ctx, session)
		return errors.ErrSessionExpired
	}

	token, err := s.exchange.Exchange(ctx, eps, code, session.CodeVerifier)
	if err != nil {
		s.resetToAnonymous(ctx, session)
		return err
	}

	identity, err := s.identity.FetchIdentity(ctx, token.IdentityURL, token.AccessToken)
	if err != nil {
		s.resetToAnonymous(ctx, session)
		return err
	}

	session.ClearPendingLogin()
	session.AccessToken = token.AccessToken
	session.RefreshToken = token.RefreshToken
	session.InstanceHost = token.InstanceURL
	session.Username = identity.Username
	session.Email = identity.Email
	session.UserType = identity.UserType
	session.Authenticated = true

	if err := s.repo.Save(ctx, session); err != nil {
		log.Error().Err(err).Str("session_id", session.ID).Msg("failed to persist authenticated session")
		return err
	}

	log.Info().Str("username", session.Username).Str("domain", string(session.DomainType)).Msg("login completed")
	return nil
}

// Logout destroys the whole session record. Idempotent: logging out with no
// active session succeeds trivially.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.repo.Delete(ctx, sessionID)
}

func (s *Service) resetToAnonymous(ctx context.Context, session *sessions.Session) {
	if session == nil {
		return
	}
	session.Reset()
	if err := s.repo.Save(ctx, session); err != nil {
		log.Warn().Err(err).Str("session_id", session.ID).Msg("failed to persist anonymous session state")
	}
}
