package salesforce

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sfbridge/sfbridge/internal/errors"
)

// DomainType selects which Salesforce login host the OAuth flow runs against.
// It is a closed set of three cases; Custom carries a validated host.
type DomainType string

const (
	DomainProduction DomainType = "production"
	DomainSandbox    DomainType = "sandbox"
	DomainCustom     DomainType = "custom"
)

const (
	productionHost = "login.salesforce.com"
	sandboxHost    = "test.salesforce.com"

	// customDomainSuffix is the only suffix accepted for My Domain hosts.
	customDomainSuffix = ".my.salesforce.com"

	authorizePath = "/services/oauth2/authorize"
	tokenPath     = "/services/oauth2/token"
)

// ParseDomainType validates the domain query parameter.
func ParseDomainType(s string) (DomainType, error) {
	switch DomainType(s) {
	case DomainProduction, DomainSandbox, DomainCustom:
		return DomainType(s), nil
	case "":
		return DomainProduction, nil
	}
	return "", errors.Wrapf(errors.ErrInvalidRequest, "unknown domain type %q", s)
}

// Endpoints is the pair of provider URLs an OAuth flow needs.
type Endpoints struct {
	AuthorizationURL string
	TokenURL         string
}

var hostPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)*$`)

// ValidateCustomHost checks a My Domain host before any redirect is built.
// The host must be a bare hostname (no scheme, port, path or credentials)
// ending in the Salesforce My Domain suffix.
func ValidateCustomHost(host string) error {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "" {
		return errors.Wrapf(errors.ErrInvalidDomain, "custom domain is required")
	}
	if strings.ContainsAny(h, "/:@?#") {
		return errors.Wrapf(errors.ErrInvalidDomain, "%q must be a bare hostname", host)
	}
	if !strings.HasSuffix(h, customDomainSuffix) {
		return errors.Wrapf(errors.ErrInvalidDomain, "%q does not end in %s", host, customDomainSuffix)
	}
	if len(h) > 255 || !hostPattern.MatchString(h) {
		return errors.Wrapf(errors.ErrInvalidDomain, "%q is not a valid hostname", host)
	}
	return nil
}

// EndpointsFor is the single place that maps a domain type to provider URLs.
// customHost is only consulted for DomainCustom and must already be validated.
func EndpointsFor(domainType DomainType, customHost string) (Endpoints, error) {
	var host string
	switch domainType {
	case DomainProduction:
		host = productionHost
	case DomainSandbox:
		host = sandboxHost
	case DomainCustom:
		if err := ValidateCustomHost(customHost); err != nil {
			return Endpoints{}, err
		}
		host = strings.ToLower(strings.TrimSpace(customHost))
	default:
		return Endpoints{}, errors.Wrapf(errors.ErrInvalidRequest, "unknown domain type %q", domainType)
	}
	return Endpoints{
		AuthorizationURL: fmt.Sprintf("https://%s%s", host, authorizePath),
		TokenURL:         fmt.Sprintf("https://%s%s", host, tokenPath),
	}, nil
}
