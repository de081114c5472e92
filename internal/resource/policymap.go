package resource

import "fmt"

// PolicyRule maps one metric-name glob to an archive policy name.
type PolicyRule struct {
	Pattern string `yaml:"pattern"`
	Policy  string `yaml:"policy"`
}

// PolicyMap is the legacy per-metric archive policy fallback: an ordered
// list of glob rules consulted when a resource definition carries no
// explicit policy override. A nil map is valid and matches nothing.
type PolicyMap struct {
	rules []PolicyRule
}

// NewPolicyMap validates the rules and builds the map. Rule order is
// preserved; the first matching pattern wins.
func NewPolicyMap(rules []PolicyRule) (*PolicyMap, error) {
	for i, r := range rules {
		if r.Pattern == "" {
			return nil, fmt.Errorf("resource: archive policy rule %d: empty pattern", i)
		}
		if err := validatePattern(r.Pattern); err != nil {
			return nil, fmt.Errorf("resource: archive policy rule %d: bad pattern %q: %w", i, r.Pattern, err)
		}
		if r.Policy == "" {
			return nil, fmt.Errorf("resource: archive policy rule %d (%q): empty policy", i, r.Pattern)
		}
	}
	return &PolicyMap{rules: rules}, nil
}

// Get returns the policy of the first rule whose pattern matches the
// metric name, or "" when no rule matches.
func (m *PolicyMap) Get(metricName string) string {
	if m == nil {
		return ""
	}
	for _, r := range m.rules {
		if Match(metricName, r.Pattern) {
			return r.Policy
		}
	}
	return ""
}
