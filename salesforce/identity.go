package salesforce

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/sfbridge/sfbridge/internal/errors"
)

// IdentityClient fetches the identity document the token response points at.
type IdentityClient struct {
	httpClient *http.Client
}

func NewIdentityClient(timeout time.Duration) *IdentityClient {
	return &IdentityClient{httpClient: &http.Client{Timeout: timeout}}
}

// FetchIdentity resolves the identity URL from a token response into the
// username/email/userType triple stored on the session.
func (c *IdentityClient) FetchIdentity(ctx context.Context, identityURL, accessToken string) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, identityURL, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "build identity request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, errors.Wrapf(errors.ErrUpstreamTransient, "identity fetch timed out")
		}
		return nil, errors.Wrapf(errors.ErrUpstreamTransient, "identity fetch failed: %v", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return nil, errors.Wrapf(err, "identity fetch")
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return nil, errors.Wrapf(errors.ErrUpstreamTransient, "decode identity response: %v", err)
	}
	return &identity, nil
}
