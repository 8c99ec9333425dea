package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/codepulse-dev/codepulse/internal/core/storage"
)

// WatermarkAdapter implements storage.WatermarkStore using PostgreSQL.
// The checkpoint log is append-only: every run re-resolves the latest record
// fresh, so there is no cached pointer to go stale across restarts.
type WatermarkAdapter struct {
	db *sql.DB
}

// NewWatermarkAdapter creates a new WatermarkAdapter sharing the given connection.
func NewWatermarkAdapter(db *sql.DB) *WatermarkAdapter {
	return &WatermarkAdapter{db: db}
}

// LatestCheckpoint returns the most recently appended checkpoint, or nil
// when the log is empty (cold start).
func (a *WatermarkAdapter) LatestCheckpoint(ctx context.Context) (*storage.Checkpoint, error) {
	var cp storage.Checkpoint
	err := a.db.QueryRowContext(ctx, queryLatestCheckpoint).Scan(
		&cp.ID,
		&cp.WatermarkStart,
		&cp.WatermarkEnd,
		&cp.RecordCount,
		&cp.IngestedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read latest checkpoint: %w", err)
	}
	return &cp, nil
}

// AppendCheckpoint appends one checkpoint covering [start, end].
func (a *WatermarkAdapter) AppendCheckpoint(ctx context.Context, start, end string, recordCount int64) error {
	_, err := a.db.ExecContext(ctx, queryAppendCheckpoint, start, end, recordCount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("append checkpoint [%s, %s]: %w", start, end, err)
	}

	slog.Info("[WatermarkAdapter] Appended checkpoint",
		"watermark_start", start,
		"watermark_end", end,
		"record_count", recordCount,
	)
	return nil
}
