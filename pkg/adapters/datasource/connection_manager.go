package datasource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-insight/pkg/logging"
	"github.com/ekaya-inc/ekaya-insight/pkg/retry"
)

const (
	DefaultConnectionTTLMinutes     = 5
	DefaultCleanupInterval          = 1 * time.Minute
	DefaultMaxConnectionsPerProject = 10
	DefaultPoolMaxConns             = 10
	DefaultPoolMinConns             = 1
)

// ConnectionManagerConfig holds configuration for the connection manager
type ConnectionManagerConfig struct {
	TTLMinutes               int
	MaxConnectionsPerProject int
	PoolMaxConns             int32
	PoolMinConns             int32
}

// OpenFunc opens a new pool for a data source.
type OpenFunc func(ctx context.Context, cfg ConnectionManagerConfig) (PoolConnector, error)

// ConnectionManager keeps one pool per project/data source and closes pools
// idle for longer than the TTL.
type ConnectionManager struct {
	mu                       sync.RWMutex
	connections              map[string]*ManagedConnection // key: "{projectId}:{datasourceId}"
	cfg                      ConnectionManagerConfig
	ttl                      time.Duration
	maxConnectionsPerProject int
	retryConfig              *retry.Config
	stopped                  bool
	stopChan                 chan struct{}
	logger                   *zap.Logger
}

// ManagedConnection is a pooled connection plus its bookkeeping.
type ManagedConnection struct {
	connector   PoolConnector
	fingerprint string // hash of the connection string; a changed config replaces the pool
	lastUsed    time.Time
	mu          sync.Mutex
}

// NewConnectionManager creates a connection manager with the given configuration.
// Starts a background cleanup goroutine that runs until Close() is called.
func NewConnectionManager(cfg ConnectionManagerConfig, logger *zap.Logger) *ConnectionManager {
	if cfg.TTLMinutes <= 0 {
		cfg.TTLMinutes = DefaultConnectionTTLMinutes
	}
	if cfg.MaxConnectionsPerProject <= 0 {
		cfg.MaxConnectionsPerProject = DefaultMaxConnectionsPerProject
	}
	if cfg.PoolMaxConns <= 0 {
		cfg.PoolMaxConns = DefaultPoolMaxConns
	}
	if cfg.PoolMinConns <= 0 {
		cfg.PoolMinConns = DefaultPoolMinConns
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	manager := &ConnectionManager{
		connections:              make(map[string]*ManagedConnection),
		cfg:                      cfg,
		ttl:                      time.Duration(cfg.TTLMinutes) * time.Minute,
		maxConnectionsPerProject: cfg.MaxConnectionsPerProject,
		retryConfig:              retry.DefaultConfig(),
		stopChan:                 make(chan struct{}),
		logger:                   logger,
	}

	go manager.cleanupExpiredConnections()
	return manager
}

func connectionKey(projectID, datasourceID uuid.UUID) string {
	return fmt.Sprintf("%s:%s", projectID, datasourceID)
}

// Fingerprint hashes a connection string so it can be compared without keeping secrets around.
func Fingerprint(connString string) string {
	sum := sha256.Sum256([]byte(connString))
	return hex.EncodeToString(sum[:8])
}

// countConnectionsForProject counts active connections for a project.
// Caller must hold m.mu lock.
func (m *ConnectionManager) countConnectionsForProject(projectID string) int {
	count := 0
	for key := range m.connections {
		if strings.HasPrefix(key, projectID+":") {
			count++
		}
	}
	return count
}

// GetOrCreateConnection returns the pooled connection for a data source,
// opening one with open when none exists, the existing one fails its health
// check, or the connection fingerprint changed.
func (m *ConnectionManager) GetOrCreateConnection(
	ctx context.Context,
	projectID, datasourceID uuid.UUID,
	fingerprint string,
	open OpenFunc,
) (PoolConnector, error) {
	key := connectionKey(projectID, datasourceID)

	m.mu.RLock()
	managed, exists := m.connections[key]
	m.mu.RUnlock()

	if exists {
		managed.mu.Lock()
		stale := managed.fingerprint != fingerprint

		var err error
		if !stale {
			healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = managed.connector.Ping(healthCtx)
			cancel()
		}

		if stale || err != nil {
			if err != nil {
				m.logger.Warn("connection unhealthy, recreating",
					zap.String("key", key),
					zap.String("error", logging.SanitizeError(err)),
				)
			}
			managed.mu.Unlock()
			m.removeConnection(key)
			return m.createConnection(ctx, key, projectID, fingerprint, open)
		}

		managed.lastUsed = time.Now()
		managed.mu.Unlock()
		return managed.connector, nil
	}

	return m.createConnection(ctx, key, projectID, fingerprint, open)
}

// createConnection opens a pool with retry on transient failures.
// Caller must NOT hold any locks (this method acquires write lock).
func (m *ConnectionManager) createConnection(
	ctx context.Context,
	key string,
	projectID uuid.UUID,
	fingerprint string,
	open OpenFunc,
) (PoolConnector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil, fmt.Errorf("connection manager is closed")
	}

	// Double-check after acquiring write lock (another goroutine may have created it)
	if managed, exists := m.connections[key]; exists && managed != nil && managed.fingerprint == fingerprint {
		managed.mu.Lock()
		defer managed.mu.Unlock()
		managed.lastUsed = time.Now()
		return managed.connector, nil
	}

	projectConnCount := m.countConnectionsForProject(projectID.String())
	if projectConnCount >= m.maxConnectionsPerProject {
		m.logger.Warn("project reached max connections limit",
			zap.String("project_id", projectID.String()),
			zap.Int("current", projectConnCount),
			zap.Int("max", m.maxConnectionsPerProject),
		)
		return nil, fmt.Errorf("project %s has reached maximum connections limit (%d)", projectID, m.maxConnectionsPerProject)
	}

	connector, err := retry.DoIfRetryable(ctx, m.retryConfig, func() (PoolConnector, error) {
		return open(ctx, m.cfg)
	})
	if err != nil {
		m.logger.Error("failed to open connection",
			zap.String("key", key),
			zap.String("error", logging.SanitizeError(err)),
		)
		return nil, err
	}

	m.connections[key] = &ManagedConnection{
		connector:   connector,
		fingerprint: fingerprint,
		lastUsed:    time.Now(),
	}

	m.logger.Info("created new connection pool",
		zap.String("key", key),
		zap.String("type", connector.GetType()),
		zap.Int("project_total_connections", projectConnCount+1),
	)

	return connector, nil
}

// PostgresPool returns the managed pgx pool for a Postgres data source.
func (m *ConnectionManager) PostgresPool(ctx context.Context, projectID, datasourceID uuid.UUID, connString string) (*pgxpool.Pool, error) {
	connector, err := m.GetOrCreateConnection(ctx, projectID, datasourceID, Fingerprint(connString),
		func(ctx context.Context, cfg ConnectionManagerConfig) (PoolConnector, error) {
			return CreatePostgresPool(ctx, connString, cfg)
		})
	if err != nil {
		return nil, err
	}
	return GetPostgresPool(connector)
}

// SQLPool returns the managed database/sql pool for a data source.
func (m *ConnectionManager) SQLPool(ctx context.Context, projectID, datasourceID uuid.UUID, driverName, dsn, family string) (*sqlx.DB, error) {
	connector, err := m.GetOrCreateConnection(ctx, projectID, datasourceID, Fingerprint(driverName+"|"+dsn),
		func(ctx context.Context, cfg ConnectionManagerConfig) (PoolConnector, error) {
			return OpenSQLPool(ctx, driverName, dsn, family, cfg)
		})
	if err != nil {
		return nil, err
	}
	return GetSQLDB(connector)
}

// removeConnection removes a connection from the pool and closes it.
// Caller must NOT hold m.mu lock (this method acquires write lock).
func (m *ConnectionManager) removeConnection(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if managed, exists := m.connections[key]; exists && managed != nil {
		m.closeConnector(key, managed.connector)
		delete(m.connections, key)
		m.logger.Debug("removed connection", zap.String("key", key))
	}
}

func (m *ConnectionManager) closeConnector(key string, c PoolConnector) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		m.logger.Warn("failed to close connection",
			zap.String("key", key),
			zap.String("error", logging.SanitizeError(err)),
		)
	}
}

// cleanupExpiredConnections runs periodically to remove expired connections.
func (m *ConnectionManager) cleanupExpiredConnections() {
	ticker := time.NewTicker(DefaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.performCleanup()
		case <-m.stopChan:
			return
		}
	}
}

// performCleanup removes connections that haven't been used within TTL.
// Lock order: manager lock, then connection lock.
func (m *ConnectionManager) performCleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}

	now := time.Now()
	var expiredKeys []string

	for key, managed := range m.connections {
		if managed == nil {
			continue
		}
		managed.mu.Lock()
		idle := now.Sub(managed.lastUsed)
		managed.mu.Unlock()

		if idle > m.ttl {
			expiredKeys = append(expiredKeys, key)
			m.logger.Debug("marking connection for cleanup",
				zap.String("key", key),
				zap.Duration("idle_time", idle),
				zap.Duration("ttl", m.ttl),
			)
		}
	}

	for _, key := range expiredKeys {
		m.closeConnector(key, m.connections[key].connector)
		delete(m.connections, key)
	}

	if len(expiredKeys) > 0 {
		m.logger.Info("cleaned up expired connections",
			zap.Int("count", len(expiredKeys)),
			zap.Int("remaining", len(m.connections)),
		)
	}
}

// Close closes all connections in the manager and stops the cleanup goroutine.
// This method is idempotent and safe to call multiple times.
func (m *ConnectionManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil
	}

	m.stopped = true
	close(m.stopChan)

	for key, managed := range m.connections {
		if managed != nil {
			m.closeConnector(key, managed.connector)
		}
	}

	m.connections = make(map[string]*ManagedConnection)
	m.logger.Info("connection manager closed")
	return nil
}

// GetStats returns statistics about the connection manager.
func (m *ConnectionManager) GetStats() ConnectionStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	stats := ConnectionStats{
		TotalConnections:         len(m.connections),
		MaxConnectionsPerProject: m.maxConnectionsPerProject,
		TTLMinutes:               int(m.ttl.Minutes()),
		ConnectionsByProject:     make(map[string]int),
		ConnectionsByType:        make(map[string]int),
	}

	for key, managed := range m.connections {
		projectID, _, _ := strings.Cut(key, ":")
		stats.ConnectionsByProject[projectID]++

		if managed == nil {
			continue
		}
		managed.mu.Lock()
		idleSeconds := int(now.Sub(managed.lastUsed).Seconds())
		stats.ConnectionsByType[managed.connector.GetType()]++
		managed.mu.Unlock()
		if idleSeconds > stats.OldestIdleSeconds {
			stats.OldestIdleSeconds = idleSeconds
		}
	}

	return stats
}

// ConnectionStats contains statistics about the connection manager state.
type ConnectionStats struct {
	TotalConnections         int            `json:"total_connections"`
	MaxConnectionsPerProject int            `json:"max_connections_per_project"`
	TTLMinutes               int            `json:"ttl_minutes"`
	ConnectionsByProject     map[string]int `json:"connections_by_project"`
	ConnectionsByType        map[string]int `json:"connections_by_type"`
	OldestIdleSeconds        int            `json:"oldest_idle_seconds"`
}
