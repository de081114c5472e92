package tsdb

import (
	"errors"
	"fmt"
)

// Control-flow signals. These drive the create-or-update workflow and
// are never failures in themselves: a 404 on measures means "create the
// metric first", a 409 on create means "someone else won the race".
var (
	ErrNoSuchMetric   = errors.New("tsdb: no such metric")
	ErrResourceExists = errors.New("tsdb: resource already exists")
	ErrMetricExists   = errors.New("tsdb: metric already exists")
)

// WorkflowError reports a status code outside the workflow's contract.
// The caller abandons the current group and moves on; the response body
// is carried for diagnostics.
type WorkflowError struct {
	Op           string
	ResourceType string
	ResourceID   string
	MetricName   string
	Status       int
	Body         string
}

func (e *WorkflowError) Error() string {
	if e.MetricName != "" {
		return fmt.Sprintf("tsdb: %s for metric %s of resource %s failed with status %d: %s",
			e.Op, e.MetricName, e.ResourceID, e.Status, e.Body)
	}
	return fmt.Sprintf("tsdb: %s for resource %s failed with status %d: %s",
		e.Op, e.ResourceID, e.Status, e.Body)
}

// IdentityError marks a failure of the identity collaborator: no auth
// token could be obtained, so the request was never sent. Without a
// token no request in the batch can be sent either, so callers treat it
// as fatal for the whole batch rather than for one group.
type IdentityError struct {
	Err error
}

func (e *IdentityError) Error() string {
	return "tsdb: identity: " + e.Err.Error()
}

func (e *IdentityError) Unwrap() error {
	return e.Err
}

// ConnError marks a transport-level failure: the request never produced
// an HTTP status. The caller reacts by invalidating the cached
// connection so the next group rebuilds it.
type ConnError struct {
	Err error
}

func (e *ConnError) Error() string {
	return "tsdb: connection: " + e.Err.Error()
}

func (e *ConnError) Unwrap() error {
	return e.Err
}
