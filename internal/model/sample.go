package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Sample represents a single telemetry measurement event used across the
// system. It is the canonical type for delivery surfaces, routing, and the
// remote store workflow.
type Sample struct {
	ResourceID    string         `json:"resource_id"`
	CounterName   string         `json:"counter_name"`
	CounterVolume float64        `json:"counter_volume"`
	CounterUnit   string         `json:"counter_unit,omitempty"`
	CounterType   string         `json:"counter_type,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	ProjectID     string         `json:"project_id"`
	UserID        string         `json:"user_id"`
	Source        string         `json:"source,omitempty"`
	Metadata      map[string]any `json:"resource_metadata,omitempty"`
}

// Measure is one (timestamp, value) pair submitted for a metric.
type Measure struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// MetricSpec is the storage policy attached to a metric at creation time.
type MetricSpec struct {
	ArchivePolicyName string `json:"archive_policy_name"`
}

// Document returns the sample as a generic map/list/scalar tree so that
// attribute extraction paths can address any field, including the nested
// resource_metadata payload. The tree uses the wire field names.
func (s *Sample) Document() (map[string]any, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("model: encode sample: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("model: decode sample document: %w", err)
	}
	return doc, nil
}
