package resource

import (
	"context"
	"fmt"

	"github.com/tinytelemetry/metricbridge/internal/model"
)

// AttributeRule binds a remote resource attribute name to the value to
// extract for it. Path is either a JSONPath expression (string) or a
// scalar literal carried through verbatim.
type AttributeRule struct {
	Name string `yaml:"name" json:"name"`
	Path any    `yaml:"path" json:"path"`
}

// Definition binds a set of metric-name patterns to a remote resource
// type, optional archive policy override, and attribute extraction rules.
type Definition struct {
	ResourceType  string          `yaml:"resource_type" json:"resource_type"`
	Metrics       []string        `yaml:"metrics" json:"metrics"`
	ArchivePolicy string          `yaml:"archive_policy,omitempty" json:"archive_policy,omitempty"`
	Attributes    []AttributeRule `yaml:"attributes,omitempty" json:"attributes,omitempty"`

	// extractors is built by compile, parallel to Attributes.
	extractors []extractor
}

// compile validates the definition's mandatory fields and pre-compiles
// its glob patterns and extraction paths. Any violation is fatal for
// registry construction; nothing here can fail later at routing time.
func (d *Definition) compile() error {
	if d.ResourceType == "" {
		return fmt.Errorf("required field resource_type not specified")
	}
	if len(d.Metrics) == 0 {
		return fmt.Errorf("resource type %q: required field metrics is empty", d.ResourceType)
	}
	for _, pattern := range d.Metrics {
		if pattern == "" {
			return fmt.Errorf("resource type %q: empty metric pattern", d.ResourceType)
		}
		if err := validatePattern(pattern); err != nil {
			return fmt.Errorf("resource type %q: bad metric pattern %q: %w", d.ResourceType, pattern, err)
		}
	}
	d.extractors = make([]extractor, len(d.Attributes))
	for i, rule := range d.Attributes {
		if rule.Name == "" {
			return fmt.Errorf("resource type %q: attribute rule %d: empty name", d.ResourceType, i)
		}
		ex, err := compilePath(rule.Path)
		if err != nil {
			return fmt.Errorf("resource type %q: attribute %q: %w", d.ResourceType, rule.Name, err)
		}
		d.extractors[i] = ex
	}
	return nil
}

// MatchesMetric reports whether any of the definition's patterns matches
// the metric name.
func (d *Definition) MatchesMetric(metricName string) bool {
	for _, pattern := range d.Metrics {
		if Match(metricName, pattern) {
			return true
		}
	}
	return false
}

// ExtractAttributes applies the definition's attribute rules to a sample.
// Rules whose path matches nothing are dropped, so a later null can never
// clobber an earlier value for the same attribute name.
func (d *Definition) ExtractAttributes(ctx context.Context, sample *model.Sample) (map[string]any, error) {
	if len(d.Attributes) == 0 {
		return map[string]any{}, nil
	}
	doc, err := sample.Document()
	if err != nil {
		return nil, fmt.Errorf("resource: %w", err)
	}
	attrs := make(map[string]any, len(d.Attributes))
	for i, rule := range d.Attributes {
		if v := d.extractors[i].extract(ctx, doc); v != nil {
			attrs[rule.Name] = v
		}
	}
	return attrs, nil
}
