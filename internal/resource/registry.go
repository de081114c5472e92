package resource

import (
	"fmt"

	"github.com/tinytelemetry/metricbridge/internal/model"
)

// Registry is the ordered set of resource definitions plus the archive
// policy resolution chain. It is built once at startup and is safe for
// concurrent lookups thereafter.
type Registry struct {
	definitions   []*Definition
	defaultPolicy string
	legacy        *PolicyMap
}

// NewRegistry validates and compiles every definition. Construction is
// the only place configuration errors are fatal: the process must not
// start routing with a broken registry.
func NewRegistry(definitions []*Definition, defaultPolicy string, legacy *PolicyMap) (*Registry, error) {
	if defaultPolicy == "" {
		defaultPolicy = model.DefaultArchivePolicy
	}
	for i, d := range definitions {
		if d == nil {
			return nil, fmt.Errorf("resource: definition %d is empty", i)
		}
		if err := d.compile(); err != nil {
			return nil, fmt.Errorf("resource: definition %d: %w", i, err)
		}
	}
	return &Registry{
		definitions:   definitions,
		defaultPolicy: defaultPolicy,
		legacy:        legacy,
	}, nil
}

// Find returns the first definition, in declaration order, with a metric
// pattern matching the name, or nil when the metric is unhandled.
func (r *Registry) Find(metricName string) *Definition {
	for _, d := range r.definitions {
		if d.MatchesMetric(metricName) {
			return d
		}
	}
	return nil
}

// MatchesType reports whether any definition of the given resource type
// has a pattern matching the metric name. Unlike Find this is not
// first-match: a definition of the requested type anywhere in the list
// counts.
func (r *Registry) MatchesType(metricName, resourceType string) bool {
	for _, d := range r.definitions {
		if d.ResourceType == resourceType && d.MatchesMetric(metricName) {
			return true
		}
	}
	return false
}

// MetricsBlock builds the full metric→policy mapping declared by the
// definition, one entry per declared pattern, with the effective policy
// resolved per pattern: definition override, then legacy map, then the
// global default.
func (r *Registry) MetricsBlock(d *Definition) map[string]model.MetricSpec {
	block := make(map[string]model.MetricSpec, len(d.Metrics))
	for _, pattern := range d.Metrics {
		block[pattern] = model.MetricSpec{ArchivePolicyName: r.resolvePolicy(d, pattern)}
	}
	return block
}

// PolicyFor returns the effective archive policy for one concrete metric
// name routed through the definition. The same precedence as MetricsBlock
// applies, but keyed on the actual metric name so wildcard-declared
// metrics resolve too.
func (r *Registry) PolicyFor(d *Definition, metricName string) model.MetricSpec {
	return model.MetricSpec{ArchivePolicyName: r.resolvePolicy(d, metricName)}
}

func (r *Registry) resolvePolicy(d *Definition, metricName string) string {
	if d.ArchivePolicy != "" {
		return d.ArchivePolicy
	}
	if p := r.legacy.Get(metricName); p != "" {
		return p
	}
	return r.defaultPolicy
}
