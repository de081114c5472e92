package tsdb

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/tinytelemetry/metricbridge/internal/identity"
)

// DefaultPoolSize bounds concurrent connections per store host.
const DefaultPoolSize = 16

// ConnConfig holds tunable parameters for the connection manager.
type ConnConfig struct {
	// PoolSize caps connections per host. When the pool is exhausted a
	// request blocks until a connection frees up rather than failing,
	// so sizing is backpressure tuning, not an error threshold.
	PoolSize int
}

// ConnManager owns the two lazily-initialized singletons shared across
// batches: the HTTP client talking to the store, and the resolved owner
// id of the service's own project. Both use a fast lock-free read path
// and a lock-guarded initialize-once path, so Process may be driven by
// any number of worker goroutines.
type ConnManager struct {
	poolSize int
	logger   *zap.Logger

	mu     sync.Mutex
	client atomic.Pointer[http.Client]

	provider identity.Provider
	project  string
	ownerMu  sync.Mutex
	ownerID  atomic.Pointer[string]
}

// NewConnManager creates a connection manager resolving the owner id of
// the given project name through the identity provider.
func NewConnManager(provider identity.Provider, project string, cfg ConnConfig, logger *zap.Logger) *ConnManager {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnManager{
		poolSize: poolSize,
		logger:   logger,
		provider: provider,
		project:  project,
	}
}

// Client returns the shared HTTP client, building it on first use.
func (m *ConnManager) Client() *http.Client {
	if c := m.client.Load(); c != nil {
		return c
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.client.Load(); c != nil {
		return c
	}
	c := &http.Client{
		Transport: &http.Transport{
			// MaxConnsPerHost makes an exhausted pool block instead of
			// erroring, which is the backpressure behaviour we want
			// under load.
			MaxConnsPerHost:     m.poolSize,
			MaxIdleConnsPerHost: m.poolSize,
		},
	}
	m.client.Store(c)
	return c
}

// Invalidate drops the cached client so the next Client call rebuilds
// it. Called on transport-level failures only; HTTP error statuses keep
// the connection.
func (m *ConnManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.client.Load(); c != nil {
		c.CloseIdleConnections()
	}
	m.client.Store(nil)
}

// OwnerID returns the owner id of the configured project, resolving it
// through the identity provider on first use. A failed lookup
// propagates to the caller and leaves the connection cache alone; a
// successful one is cached for the process lifetime.
func (m *ConnManager) OwnerID(ctx context.Context) (string, error) {
	if id := m.ownerID.Load(); id != nil {
		return *id, nil
	}
	m.ownerMu.Lock()
	defer m.ownerMu.Unlock()
	if id := m.ownerID.Load(); id != nil {
		return *id, nil
	}
	id, err := m.provider.LookupOwnerID(ctx, m.project)
	if err != nil {
		return "", fmt.Errorf("tsdb: resolve owner of project %q: %w", m.project, err)
	}
	m.ownerID.Store(&id)
	m.logger.Debug("owner id resolved", zap.String("project", m.project), zap.String("owner_id", id))
	return id, nil
}
