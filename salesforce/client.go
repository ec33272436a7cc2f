package salesforce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sfbridge/sfbridge/internal/errors"
)

const apiVersion = "v59.0"

// rulesQuery fetches everything the rule list needs in one Tooling API call.
const rulesQuery = "SELECT Id, ValidationName, Active, EntityDefinition.QualifiedApiName " +
	"FROM ValidationRule ORDER BY EntityDefinition.QualifiedApiName, ValidationName"

// Client talks to the Tooling API of one Salesforce org on behalf of one
// authenticated session. It is constructed per request from the session's
// access token and instance host; it holds no state of its own.
type Client struct {
	instanceURL string
	accessToken string
	httpClient  *http.Client
}

func NewClient(instanceURL, accessToken string, timeout time.Duration) *Client {
	return &Client{
		instanceURL: strings.TrimSuffix(instanceURL, "/"),
		accessToken: accessToken,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// ListValidationRules returns the org's validation rules unmodified.
func (c *Client) ListValidationRules(ctx context.Context) ([]ValidationRule, error) {
	endpoint := fmt.Sprintf("%s/services/data/%s/tooling/query?q=%s",
		c.instanceURL, apiVersion, url.QueryEscape(rulesQuery))

	var result struct {
		Records []struct {
			ID               string `json:"Id"`
			ValidationName   string `json:"ValidationName"`
			Active           bool   `json:"Active"`
			EntityDefinition struct {
				QualifiedAPIName string `json:"QualifiedApiName"`
			} `json:"EntityDefinition"`
		} `json:"records"`
	}
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &result); err != nil {
		return nil, errors.Wrapf(err, "list validation rules")
	}

	rules := make([]ValidationRule, 0, len(result.Records))
	for _, rec := range result.Records {
		rules = append(rules, ValidationRule{
			ID:         rec.ID,
			Name:       rec.ValidationName,
			EntityName: rec.EntityDefinition.QualifiedAPIName,
			Active:     rec.Active,
		})
	}
	return rules, nil
}

// GetValidationRule fetches one rule including its full metadata container.
func (c *Client) GetValidationRule(ctx context.Context, id string) (*ValidationRule, error) {
	endpoint := fmt.Sprintf("%s/services/data/%s/tooling/sobjects/ValidationRule/%s",
		c.instanceURL, apiVersion, url.PathEscape(id))

	var record struct {
		ID             string         `json:"Id"`
		ValidationName string         `json:"ValidationName"`
		Active         bool           `json:"Active"`
		FullName       string         `json:"FullName"`
		Metadata       map[string]any `json:"Metadata"`
	}
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &record); err != nil {
		return nil, errors.Wrapf(err, "fetch validation rule %s", id)
	}

	rule := &ValidationRule{
		ID:       record.ID,
		Name:     record.ValidationName,
		Active:   record.Active,
		Metadata: record.Metadata,
	}
	if entity, name, ok := strings.Cut(record.FullName, "."); ok {
		rule.EntityName = entity
		rule.Name = name
	}
	return rule, nil
}

// ToggleValidationRule flips a rule's active flag. The current state is
// fetched fresh inside the call, so retrying after a network failure flips
// relative to whatever actually landed, never blindly twice. The Tooling API
// requires the whole metadata container keyed by the rule's fully-qualified
// name even for this single-field update.
func (c *Client) ToggleValidationRule(ctx context.Context, id string) (*ValidationRule, error) {
	rule, err := c.GetValidationRule(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule.Metadata == nil {
		return nil, errors.Wrapf(errors.ErrUpstreamTransient, "rule %s returned no metadata container", id)
	}

	target := !rule.Active
	metadata := make(map[string]any, len(rule.Metadata))
	for k, v := range rule.Metadata {
		metadata[k] = v
	}
	metadata["active"] = target

	endpoint := fmt.Sprintf("%s/services/data/%s/tooling/sobjects/ValidationRule/%s",
		c.instanceURL, apiVersion, url.PathEscape(id))
	body := map[string]any{
		"Metadata": metadata,
		"FullName": rule.FullName(),
	}
	if err := c.doJSON(ctx, http.MethodPatch, endpoint, body, nil); err != nil {
		return nil, errors.Wrapf(err, "toggle validation rule %s", id)
	}

	rule.Active = target
	rule.Metadata = metadata
	return rule, nil
}

func (c *Client) doJSON(ctx context.Context, method, endpoint string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return errors.Wrapf(errors.ErrUpstreamTransient, "request timed out")
		}
		return errors.Wrapf(errors.ErrUpstreamTransient, "request failed: %v", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp); err != nil {
		return err
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(errors.ErrUpstreamTransient, "decode response: %v", err)
	}
	return nil
}

// classifyStatus maps upstream HTTP failures onto the bridge error taxonomy.
// A rejected token must surface distinctly so the caller re-triggers login
// instead of retrying the same call.
func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return errors.Wrapf(errors.ErrUpstreamAuth, "upstream rejected token (%d): %s", resp.StatusCode, upstreamMessage(resp))
	case resp.StatusCode == http.StatusNotFound:
		return errors.Wrapf(errors.ErrRuleNotFound, "%s", upstreamMessage(resp))
	case resp.StatusCode >= 500:
		return errors.Wrapf(errors.ErrUpstreamTransient, "upstream error (%d): %s", resp.StatusCode, upstreamMessage(resp))
	default:
		return errors.Wrapf(errors.ErrInvalidRequest, "upstream rejected request (%d): %s", resp.StatusCode, upstreamMessage(resp))
	}
}

// upstreamMessage extracts the first error message from a Salesforce error
// payload, which is a JSON array of {message, errorCode}.
func upstreamMessage(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(raw) == 0 {
		return resp.Status
	}
	var payload []struct {
		Message   string `json:"message"`
		ErrorCode string `json:"errorCode"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && len(payload) > 0 {
		if payload[0].ErrorCode != "" {
			return payload[0].ErrorCode + ": " + payload[0].Message
		}
		return payload[0].Message
	}
	return strings.TrimSpace(string(raw))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
