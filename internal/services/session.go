package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgstage/pkg/pgstage"
)

// SessionManager turns a ConnectionConfig into a pool and, for loads, the
// single connection a run executes on.
//
// SessionManager is thread-safe for concurrent use as long as the injected
// connector factory and logger are also thread-safe.
type SessionManager struct {
	connectorFactory pgstage.ConnectorFactory
	logger           pgstage.Logger
}

// NewSessionManager creates a new SessionManager.
//
// Panics if any dependency is nil.
func NewSessionManager(connectorFactory pgstage.ConnectorFactory, logger pgstage.Logger) *SessionManager {
	if connectorFactory == nil {
		panic("connectorFactory cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	return &SessionManager{
		connectorFactory: connectorFactory,
		logger:           logger,
	}
}

var _ pgstage.SessionOpener = (*SessionManager)(nil)

// OpenSession connects and acquires one connection for the whole run.
// Staging relations live in pg_temp, which is scoped to a single backend,
// so every statement of a run must use the returned Session's Conn.
//
// The caller is responsible for closing the session.
func (sm *SessionManager) OpenSession(ctx context.Context, connConfig *pgstage.ConnectionConfig) (*pgstage.Session, error) {
	pool, err := sm.Connect(ctx, connConfig)
	if err != nil {
		return nil, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to acquire connection: %w: %w", pgstage.ErrConnectionFailed, err)
	}

	sm.logger.Verbose("Acquired session connection to '%s'", connConfig.Database)
	return pgstage.NewSession(pool, conn), nil
}

// Connect establishes a connection pool to the target database.
// The returned pool should be closed by the caller.
func (sm *SessionManager) Connect(ctx context.Context, connConfig *pgstage.ConnectionConfig) (*pgxpool.Pool, error) {
	sm.logger.Verbose("Connecting to database '%s' (%s auth)", connConfig.Database, connConfig.AuthMethod)

	connector, err := sm.connectorFactory(connConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connector: %w", err)
	}

	pool, err := connector.Connect(ctx)
	if err != nil {
		if errors.Is(err, pgstage.ErrConnectionFailed) {
			return nil, fmt.Errorf("failed to connect to database %q: %w", connConfig.Database, err)
		}
		return nil, fmt.Errorf("failed to connect to database %q: %w: %w", connConfig.Database, pgstage.ErrConnectionFailed, err)
	}

	return pool, nil
}
