package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SessionAdapter implements storage.SessionCache using PostgreSQL.
type SessionAdapter struct {
	db *sql.DB
}

// NewSessionAdapter creates a new SessionAdapter sharing the given connection.
func NewSessionAdapter(db *sql.DB) *SessionAdapter {
	return &SessionAdapter{db: db}
}

// DeleteExpired removes all session rows whose expiry is strictly before now
// and returns the number of rows removed.
func (a *SessionAdapter) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := a.db.ExecContext(ctx, queryDeleteExpiredSessions, now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted sessions: %w", err)
	}
	return count, nil
}
