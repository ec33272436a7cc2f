// Package pkce implements the Proof Key for Code Exchange pieces of the
// authorization-code flow (RFC 7636, S256 only).
package pkce

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Method is the code_challenge_method sent to the identity provider.
const Method = "S256"

// verifierBytes yields a 43-character verifier once base64url encoded,
// the RFC minimum and plenty of entropy.
const verifierBytes = 32

// Verifier returns a new cryptographically random code verifier.
// A failing randomness source is not recoverable; callers must abort the
// login attempt rather than substitute weaker randomness.
func Verifier() (string, error) {
	b := make([]byte, verifierBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("pkce: randomness source unavailable: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Challenge derives the S256 code challenge for a verifier. Deterministic:
// the provider recomputes the same transform at token-exchange time.
func Challenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// Pair returns a fresh verifier and its challenge.
func Pair() (verifier, challenge string, err error) {
	verifier, err = Verifier()
	if err != nil {
		return "", "", err
	}
	return verifier, Challenge(verifier), nil
}
