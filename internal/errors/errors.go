package errors

import (
	"errors"
	"fmt"
)

// Error taxonomy for the bridge. Handlers classify with errors.Is and map
// each class to a status code or redirect; none of these carry stack traces.
var (
	// Input validation
	ErrInvalidDomain  = errors.New("invalid custom domain")
	ErrInvalidRequest = errors.New("invalid request")

	// OAuth flow
	ErrProvider       = errors.New("identity provider error")
	ErrMissingCode    = errors.New("callback missing authorization code")
	ErrSessionExpired = errors.New("session expired")

	// Upstream API
	ErrUpstreamAuth      = errors.New("reauthentication required")
	ErrUpstreamTransient = errors.New("upstream temporarily unavailable")
	ErrRuleNotFound      = errors.New("validation rule not found")

	// Sessions
	ErrUnauthenticated    = errors.New("not authenticated")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionPersistence = errors.New("session store unavailable")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
