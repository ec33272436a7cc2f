package sessions

import (
	"time"

	"github.com/sfbridge/sfbridge/salesforce"
)

// Session is the server-side record behind the browser's session cookie.
//
// CodeVerifier is transient: it exists only between login initiation and the
// OAuth callback, and must never coexist with AccessToken in a stable state.
// Authenticated implies AccessToken and InstanceHost are both non-empty.
type Session struct {
	ID string `json:"id"`

	// Pending login state (AwaitingCallback)
	CodeVerifier     string                `json:"codeVerifier,omitempty"`
	DomainType       salesforce.DomainType `json:"domainType,omitempty"`
	CustomDomainHost string                `json:"customDomainHost,omitempty"`

	// Authenticated state
	AccessToken   string `json:"accessToken,omitempty"`
	RefreshToken  string `json:"refreshToken,omitempty"`
	InstanceHost  string `json:"instanceHost,omitempty"`
	Username      string `json:"username,omitempty"`
	Email         string `json:"email,omitempty"`
	UserType      string `json:"userType,omitempty"`
	Authenticated bool   `json:"authenticated"`

	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func New(id string) *Session {
	return &Session{ID: id, CreatedAt: time.Now()}
}

func (s *Session) IsExpired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// IsAuthenticated is the guard predicate: the flag alone is not enough,
// the credentials it promises must actually be present.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.Authenticated && s.AccessToken != "" && s.InstanceHost != ""
}

// ClearPendingLogin drops the transient PKCE state.
func (s *Session) ClearPendingLogin() {
	s.CodeVerifier = ""
	s.CustomDomainHost = ""
}

// Reset returns the session to the anonymous state.
func (s *Session) Reset() {
	s.ClearPendingLogin()
	s.DomainType = ""
	s.AccessToken = ""
	s.RefreshToken = ""
	s.InstanceHost = ""
	s.Username = ""
	s.Email = ""
	s.UserType = ""
	s.Authenticated = false
}
