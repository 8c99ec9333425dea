package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// aggregationRunLockID is the advisory lock key for the aggregation run.
// Any value works as long as every deployment of this service agrees on it.
const aggregationRunLockID int64 = 0x636f6465 // "code"

// AdvisoryLocker implements storage.RunLocker with a Postgres session-level
// advisory lock. It pins one pooled connection while the lock is held, since
// pg_advisory_lock ownership is per session, not per pool.
type AdvisoryLocker struct {
	db   *sql.DB
	conn *sql.Conn
}

// NewAdvisoryLocker creates a locker sharing the given connection pool.
func NewAdvisoryLocker(db *sql.DB) *AdvisoryLocker {
	return &AdvisoryLocker{db: db}
}

// TryAcquireRunLock attempts to take the run lock without blocking.
// Returns false when another session holds it.
func (l *AdvisoryLocker) TryAcquireRunLock(ctx context.Context) (bool, error) {
	if l.conn != nil {
		return false, fmt.Errorf("run lock already held by this locker")
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection for run lock: %w", err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", aggregationRunLockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, fmt.Errorf("try advisory lock: %w", err)
	}

	if !acquired {
		conn.Close()
		return false, nil
	}

	l.conn = conn
	return true, nil
}

// ReleaseRunLock releases the advisory lock and returns the pinned
// connection to the pool.
func (l *AdvisoryLocker) ReleaseRunLock(ctx context.Context) error {
	if l.conn == nil {
		return fmt.Errorf("run lock not held")
	}

	conn := l.conn
	l.conn = nil

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", aggregationRunLockID); err != nil {
		conn.Close()
		return fmt.Errorf("advisory unlock: %w", err)
	}
	return conn.Close()
}
