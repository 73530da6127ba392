package pgstage

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionOpener abstracts connection setup for testability.
type SessionOpener interface {
	OpenSession(ctx context.Context, connConfig *ConnectionConfig) (*Session, error)
}

// Session owns the connection pool and the single pooled connection a run
// executes on. Staging relations live in pg_temp, so every statement of a
// run must go through Conn().
//
// Thread-Safety: NOT safe for concurrent use.
//
// Example usage:
//
//	session, err := sessionManager.OpenSession(ctx, connConfig)
//	if err != nil {
//	    return err
//	}
//	defer session.Close()
type Session struct {
	pool *pgxpool.Pool
	conn *pgxpool.Conn
}

// NewSession creates a new Session instance.
//
// Panics if pool or conn is nil.
func NewSession(pool *pgxpool.Pool, conn *pgxpool.Conn) *Session {
	if pool == nil {
		panic("pool cannot be nil")
	}
	if conn == nil {
		panic("conn cannot be nil")
	}

	return &Session{pool: pool, conn: conn}
}

// Pool returns the connection pool for the session.
func (s *Session) Pool() *pgxpool.Pool {
	return s.pool
}

// Conn returns the acquired connection every run statement executes on.
func (s *Session) Conn() *pgxpool.Conn {
	return s.conn
}

// Close releases the connection and closes the pool. It is idempotent.
func (s *Session) Close() error {
	if s.conn != nil {
		s.conn.Release()
		s.conn = nil
	}
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
	return nil
}
