package salesforce

// ValidationRule is the slice of rule state the bridge passes through.
// Metadata is the full Tooling API metadata container for the rule; the
// update endpoint requires the whole container even for a single-field flip.
type ValidationRule struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	EntityName string         `json:"entityName"`
	Active     bool           `json:"active"`
	Metadata   map[string]any `json:"-"`
}

// FullName is the fully-qualified name the Metadata API keys updates by.
func (r ValidationRule) FullName() string {
	if r.EntityName == "" {
		return r.Name
	}
	return r.EntityName + "." + r.Name
}

// Token is the result of a successful code exchange.
type Token struct {
	AccessToken  string
	RefreshToken string
	InstanceURL  string
	IdentityURL  string
}

// Identity is the subset of the Salesforce identity document the bridge keeps.
type Identity struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	UserType string `json:"user_type"`
}
