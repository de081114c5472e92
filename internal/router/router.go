// Package router drives the create-or-update workflow: it filters and
// groups incoming sample batches, maps each group to a resource
// definition, and reconciles it against the remote store idempotently.
// One bad group never aborts a batch; only identity resolution failures
// propagate to the caller.
package router

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/tinytelemetry/metricbridge/internal/model"
	"github.com/tinytelemetry/metricbridge/internal/resource"
	"github.com/tinytelemetry/metricbridge/internal/tsdb"
)

// Store is the slice of the store client the router drives.
type Store interface {
	PostMeasures(ctx context.Context, resourceType, resourceID, metricName string, measures []model.Measure) error
	CreateResource(ctx context.Context, resourceType, resourceID string, attributes map[string]any) error
	UpdateResource(ctx context.Context, resourceType, resourceID string, attributes map[string]any) error
	CreateMetric(ctx context.Context, resourceType, resourceID, metricName string, spec model.MetricSpec) error
}

// Conn is the slice of the connection manager the router needs: the
// cached owner id for self-traffic filtering and invalidation after a
// transport failure.
type Conn interface {
	OwnerID(ctx context.Context) (string, error)
	Invalidate()
}

// Config holds the router's filtering knobs.
type Config struct {
	// FilterSelf drops samples generated by the store's own activity.
	FilterSelf bool
	// SelfStorageResourceType is the resource type treated as the
	// store's own object-storage account when a sample's resource id
	// equals the owner id.
	SelfStorageResourceType string
}

// Router dispatches sample batches to the remote store.
type Router struct {
	store    Store
	conn     Conn
	registry *resource.Registry
	cfg      Config
	logger   *zap.Logger
}

// New creates a router. Safe for concurrent Process calls: all shared
// mutable state lives behind the connection manager.
func New(store Store, conn Conn, registry *resource.Registry, cfg Config, logger *zap.Logger) *Router {
	if cfg.SelfStorageResourceType == "" {
		cfg.SelfStorageResourceType = model.DefaultSelfStorageResourceType
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		store:    store,
		conn:     conn,
		registry: registry,
		cfg:      cfg,
		logger:   logger,
	}
}

// Process routes one batch. It returns an error only when the identity
// collaborator fails: owner id resolution for self-traffic filtering,
// or the auth token mid-batch. Every per-group failure is recovered at
// the group boundary and the rest of the batch still runs.
func (r *Router) Process(ctx context.Context, batch []model.Sample) error {
	samples, err := r.filterSelfTraffic(ctx, batch)
	if err != nil {
		return err
	}

	// Stable sort so samples within a group keep their arrival order.
	sort.SliceStable(samples, func(i, j int) bool {
		if samples[i].ResourceID != samples[j].ResourceID {
			return samples[i].ResourceID < samples[j].ResourceID
		}
		return samples[i].CounterName < samples[j].CounterName
	})

	for start := 0; start < len(samples); {
		end := start
		for end < len(samples) && samples[end].ResourceID == samples[start].ResourceID {
			end++
		}
		if err := r.processResource(ctx, samples[start].ResourceID, samples[start:end]); err != nil {
			return err
		}
		start = end
	}
	return nil
}

// processResource walks the consecutive metric groups of one resource.
// needUpdate starts true and is cleared once any group creates the
// resource with its full attributes; later sibling groups then skip the
// update step entirely.
func (r *Router) processResource(ctx context.Context, resourceID string, samples []model.Sample) error {
	needUpdate := true
	for start := 0; start < len(samples); {
		end := start
		for end < len(samples) && samples[end].CounterName == samples[start].CounterName {
			end++
		}
		metricName := samples[start].CounterName

		if rd := r.registry.Find(metricName); rd != nil {
			if err := r.processGroup(ctx, rd, resourceID, metricName, samples[start:end], &needUpdate); err != nil {
				return err
			}
		} else {
			r.logger.Warn("metric not handled by any resource definition",
				zap.String("metric", metricName))
			metricsUnhandled.Inc()
		}
		start = end
	}
	return nil
}

// processGroup is the error boundary around one group's workflow. A
// transport failure invalidates the cached connection so the next group
// rebuilds it; an unexpected workflow error is logged; both abandon
// only this group. An identity failure passes through: without a token
// no group in the batch can be sent, so the whole batch fails and the
// sender can retry it.
func (r *Router) processGroup(ctx context.Context, rd *resource.Definition, resourceID, metricName string, samples []model.Sample, needUpdate *bool) error {
	err := r.runGroup(ctx, rd, resourceID, metricName, samples, needUpdate)
	if err == nil {
		groupsProcessed.Inc()
		return nil
	}
	var identErr *tsdb.IdentityError
	if errors.As(err, &identErr) {
		return fmt.Errorf("router: %w", err)
	}
	groupsAbandoned.Inc()
	var connErr *tsdb.ConnError
	if errors.As(err, &connErr) {
		if errors.Is(err, context.Canceled) {
			// The caller went away mid-request; the shared connection
			// is fine.
			r.logger.Warn("group canceled",
				zap.String("resource_id", resourceID),
				zap.String("metric", metricName))
			return nil
		}
		r.conn.Invalidate()
		storeReconnects.Inc()
		r.logger.Warn("connection error, reconnecting",
			zap.String("resource_id", resourceID),
			zap.String("metric", metricName),
			zap.Error(err))
		return nil
	}
	r.logger.Error("group abandoned",
		zap.String("resource_id", resourceID),
		zap.String("metric", metricName),
		zap.Error(err))
	return nil
}

// runGroup performs the create-or-update workflow for one
// (resource, metric) group. Creating the resource is tried before the
// metric because a missing resource is the common case; that ordering
// saves a round trip on the common path.
func (r *Router) runGroup(ctx context.Context, rd *resource.Definition, resourceID, metricName string, samples []model.Sample, needUpdate *bool) error {
	resourceType := rd.ResourceType
	measures := make([]model.Measure, len(samples))
	for i, s := range samples {
		measures[i] = model.Measure{Timestamp: s.Timestamp, Value: s.CounterVolume}
	}

	err := r.store.PostMeasures(ctx, resourceType, resourceID, metricName, measures)
	switch {
	case errors.Is(err, tsdb.ErrNoSuchMetric):
		attrs, aerr := r.creationAttributes(ctx, rd, resourceID, samples)
		if aerr != nil {
			return aerr
		}
		cerr := r.store.CreateResource(ctx, resourceType, resourceID, attrs)
		switch {
		case cerr == nil:
			// Just created with everything it needs; no update later,
			// not even for sibling metric groups of this resource.
			*needUpdate = false
		case errors.Is(cerr, tsdb.ErrResourceExists):
			merr := r.store.CreateMetric(ctx, resourceType, resourceID, metricName, r.registry.PolicyFor(rd, metricName))
			if merr != nil && !errors.Is(merr, tsdb.ErrMetricExists) {
				return merr
			}
		default:
			return cerr
		}
		// One retry only. If it fails again the group is abandoned.
		if perr := r.store.PostMeasures(ctx, resourceType, resourceID, metricName, measures); perr != nil {
			return perr
		}
	case err != nil:
		return err
	}

	if *needUpdate {
		attrs, aerr := rd.ExtractAttributes(ctx, lastSample(samples))
		if aerr != nil {
			return aerr
		}
		if len(attrs) > 0 {
			if uerr := r.store.UpdateResource(ctx, resourceType, resourceID, attrs); uerr != nil {
				return uerr
			}
		}
	}
	return nil
}

// creationAttributes builds the full first-creation payload from the
// most recent sample of the group: extracted attributes plus identity
// and the complete metrics block of the definition.
func (r *Router) creationAttributes(ctx context.Context, rd *resource.Definition, resourceID string, samples []model.Sample) (map[string]any, error) {
	last := lastSample(samples)
	attrs, err := rd.ExtractAttributes(ctx, last)
	if err != nil {
		return nil, err
	}
	attrs["id"] = resourceID
	attrs["user_id"] = last.UserID
	attrs["project_id"] = last.ProjectID
	attrs["metrics"] = r.registry.MetricsBlock(rd)
	return attrs, nil
}

// filterSelfTraffic drops samples generated by the store's own service
// activity: anything owned by the service project, and anything in the
// service's own storage account. Returns a copy so the caller's batch
// stays untouched by the later sort.
func (r *Router) filterSelfTraffic(ctx context.Context, batch []model.Sample) ([]model.Sample, error) {
	// Idle flushes carry no samples; do not resolve the owner id for
	// them.
	if len(batch) == 0 || !r.cfg.FilterSelf {
		out := make([]model.Sample, len(batch))
		copy(out, batch)
		return out, nil
	}
	ownerID, err := r.conn.OwnerID(ctx)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}
	out := make([]model.Sample, 0, len(batch))
	for _, s := range batch {
		if r.isSelfSample(&s, ownerID) {
			samplesFiltered.Inc()
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *Router) isSelfSample(s *model.Sample, ownerID string) bool {
	if s.ProjectID == ownerID {
		return true
	}
	return s.ResourceID == ownerID &&
		r.registry.MatchesType(s.CounterName, r.cfg.SelfStorageResourceType)
}

func lastSample(samples []model.Sample) *model.Sample {
	return &samples[len(samples)-1]
}
