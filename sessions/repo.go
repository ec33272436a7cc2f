package sessions

import "context"

// Repo is the session persistence backend. Implementations apply the store's
// TTL on every Save, which gives sessions a sliding expiry: any successful
// save pushes ExpiresAt forward.
//
// Concurrent saves to the same session are last-write-wins; the bridge
// accepts this weak consistency for the two-tabs case.
type Repo interface {
	// Get returns the session or ErrSessionNotFound when absent or expired.
	Get(ctx context.Context, id string) (*Session, error)

	// Save creates or replaces the session and refreshes its expiry.
	Save(ctx context.Context, session *Session) error

	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// Kind names the backend ("redis" or "memory") for health reporting.
	Kind() string

	// Close releases the backend connection.
	Close() error
}
