// Package tsdb implements the wire protocol of the remote time-series
// store: stateless create/update/post operations whose status codes are
// translated into the typed outcomes the routing workflow is built on.
package tsdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/tinytelemetry/metricbridge/internal/identity"
	"github.com/tinytelemetry/metricbridge/internal/model"
)

// maxErrorBody bounds how much of an error response body is kept for
// diagnostics.
const maxErrorBody = 4096

// Client performs protocol operations against the store. It holds no
// per-request state; the shared connection lives in the ConnManager.
type Client struct {
	baseURL  string
	conn     *ConnManager
	provider identity.Provider
	logger   *zap.Logger
}

// NewClient creates a store client for the given base URL.
func NewClient(baseURL string, conn *ConnManager, provider identity.Provider, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = model.DefaultStoreURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		conn:     conn,
		provider: provider,
		logger:   logger,
	}
}

// PostMeasures submits the ordered measures of one (resource, metric)
// group. A 404 means the metric does not exist yet on that resource and
// is surfaced as ErrNoSuchMetric so the caller can run the creation
// ladder.
func (c *Client) PostMeasures(ctx context.Context, resourceType, resourceID, metricName string, measures []model.Measure) error {
	path := fmt.Sprintf("/v1/resource/%s/%s/metric/%s/measures",
		url.PathEscape(resourceType), url.PathEscape(resourceID), url.PathEscape(metricName))
	status, body, err := c.do(ctx, http.MethodPost, path, measures)
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusNotFound:
		c.logger.Debug("metric does not exist",
			zap.String("metric", metricName), zap.String("resource_id", resourceID))
		return ErrNoSuchMetric
	case status/100 != 2:
		return &WorkflowError{
			Op:           "post measures",
			ResourceType: resourceType,
			ResourceID:   resourceID,
			MetricName:   metricName,
			Status:       status,
			Body:         body,
		}
	}
	c.logger.Debug("measures posted",
		zap.String("metric", metricName), zap.String("resource_id", resourceID), zap.Int("count", len(measures)))
	return nil
}

// CreateResource creates the resource with its full attribute set,
// including the declared metrics block. A 409 is surfaced as
// ErrResourceExists: a concurrent actor (or an earlier batch) created
// it first.
func (c *Client) CreateResource(ctx context.Context, resourceType, resourceID string, attributes map[string]any) error {
	path := "/v1/resource/" + url.PathEscape(resourceType)
	status, body, err := c.do(ctx, http.MethodPost, path, attributes)
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusConflict:
		c.logger.Debug("resource already exists", zap.String("resource_id", resourceID))
		return ErrResourceExists
	case status/100 != 2:
		return &WorkflowError{
			Op:           "create resource",
			ResourceType: resourceType,
			ResourceID:   resourceID,
			Status:       status,
			Body:         body,
		}
	}
	c.logger.Debug("resource created", zap.String("resource_id", resourceID))
	return nil
}

// UpdateResource patches the resource with extracted attributes only.
func (c *Client) UpdateResource(ctx context.Context, resourceType, resourceID string, attributes map[string]any) error {
	path := fmt.Sprintf("/v1/resource/%s/%s", url.PathEscape(resourceType), url.PathEscape(resourceID))
	status, body, err := c.do(ctx, http.MethodPatch, path, attributes)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return &WorkflowError{
			Op:           "update resource",
			ResourceType: resourceType,
			ResourceID:   resourceID,
			Status:       status,
			Body:         body,
		}
	}
	c.logger.Debug("resource updated", zap.String("resource_id", resourceID))
	return nil
}

// CreateMetric declares one metric on an existing resource with its
// archive policy. A 409 is surfaced as ErrMetricExists and callers
// treat it as success by another actor.
func (c *Client) CreateMetric(ctx context.Context, resourceType, resourceID, metricName string, spec model.MetricSpec) error {
	path := fmt.Sprintf("/v1/resource/%s/%s/metric", url.PathEscape(resourceType), url.PathEscape(resourceID))
	payload := map[string]model.MetricSpec{metricName: spec}
	status, body, err := c.do(ctx, http.MethodPost, path, payload)
	if err != nil {
		return err
	}
	switch {
	case status == http.StatusConflict:
		c.logger.Debug("metric already exists",
			zap.String("metric", metricName), zap.String("resource_id", resourceID))
		return ErrMetricExists
	case status/100 != 2:
		return &WorkflowError{
			Op:           "create metric",
			ResourceType: resourceType,
			ResourceID:   resourceID,
			MetricName:   metricName,
			Status:       status,
			Body:         body,
		}
	}
	c.logger.Debug("metric created",
		zap.String("metric", metricName), zap.String("resource_id", resourceID))
	return nil
}

// do runs one JSON request and returns the status and (bounded) body.
// Transport failures come back as *ConnError and a missing auth token
// as *IdentityError; everything that produced an HTTP status does not.
func (c *Client) do(ctx context.Context, method, path string, payload any) (int, string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, "", fmt.Errorf("tsdb: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("tsdb: build request: %w", err)
	}
	token, err := c.provider.AuthToken(ctx)
	if err != nil {
		return 0, "", &IdentityError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Auth-Token", token)

	resp, err := c.conn.Client().Do(req)
	if err != nil {
		return 0, "", &ConnError{Err: err}
	}
	defer resp.Body.Close()
	text, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return 0, "", &ConnError{Err: err}
	}
	return resp.StatusCode, string(text), nil
}
