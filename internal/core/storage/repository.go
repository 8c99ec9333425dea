package storage

import (
	"context"
	"errors"
	"time"

	v1 "github.com/codepulse-dev/codepulse/internal/api/v1"
	"github.com/shopspring/decimal"
)

// ErrDuplicate is returned when a heartbeat with the same (user_id, id) already exists.
var ErrDuplicate = errors.New("heartbeat already exists")

// Checkpoint is one record of the append-only watermark log. It marks a
// contiguous range of heartbeat sequence numbers already folded into summaries.
//
// Watermarks are stored as decimal strings so the log representation does not
// depend on the native integer width of any particular store.
type Checkpoint struct {
	ID             int64
	WatermarkStart string
	WatermarkEnd   string
	RecordCount    int64
	IngestedAt     time.Time
}

// DailyStats is the durable per-user daily summary, keyed by (UserID, Date).
// TotalTime and Heartbeats only ever grow; Languages values sum to TotalTime.
type DailyStats struct {
	UserID     string
	Date       string // YYYY-MM-DD, UTC
	TotalTime  decimal.Decimal
	Heartbeats int64
	Languages  map[string]decimal.Decimal
	UpdatedAt  time.Time
}

// WeeklyStats is the durable per-user weekly summary, keyed by
// (UserID, WeekStart) where WeekStart is the ISO week's Monday.
type WeeklyStats struct {
	UserID     string
	WeekStart  string // YYYY-MM-DD, always a Monday
	TotalTime  decimal.Decimal
	Heartbeats int64
	Languages  map[string]decimal.Decimal
	UpdatedAt  time.Time
}

// UserActivity is the per-user per-day activity marker consumed by
// streak/analytics readers. Derived from daily merges only.
type UserActivity struct {
	UserID    string          `json:"user_id"`
	Date      string          `json:"date"`
	IsActive  bool            `json:"is_active"`
	TotalTime decimal.Decimal `json:"total_time"`
}

// EventStore defines the interface for storing and retrieving heartbeats.
type EventStore interface {
	SaveHeartbeat(ctx context.Context, hb *v1.Heartbeat) error

	// FetchHeartbeatsAfter fetches heartbeats with seq_id strictly greater
	// than afterSeq, ordered ascending by seq_id. afterSeq=0 means "from the
	// beginning". Strict total order prevents batch boundary data loss.
	FetchHeartbeatsAfter(ctx context.Context, afterSeq int64, limit int) ([]*v1.Heartbeat, error)
}

// WatermarkStore persists the append-only checkpoint log.
type WatermarkStore interface {
	// LatestCheckpoint returns the most recently appended checkpoint,
	// ordered by ingestion time. Returns nil when no checkpoint exists yet
	// (cold start: replay from the beginning of the event source).
	LatestCheckpoint(ctx context.Context) (*Checkpoint, error)

	// AppendCheckpoint appends one checkpoint covering [start, end], both
	// decimal-string sequence identifiers. Exactly one append per run that
	// processed at least one heartbeat.
	AppendCheckpoint(ctx context.Context, start, end string, recordCount int64) error
}

// SummaryStore is the destination store for daily/weekly summaries and the
// user activity markers. Upserts are increment-or-create: numeric fields are
// added to the existing record with in-place increments, the languages
// mapping is merged key-wise under the row lock.
type SummaryStore interface {
	GetDaily(ctx context.Context, userID, date string) (*DailyStats, error)
	UpsertDaily(ctx context.Context, userID, date string, totalTime decimal.Decimal, heartbeats int64, languages map[string]decimal.Decimal) error

	GetWeekly(ctx context.Context, userID, weekStart string) (*WeeklyStats, error)
	UpsertWeekly(ctx context.Context, userID, weekStart string, totalTime decimal.Decimal, heartbeats int64, languages map[string]decimal.Decimal) error

	// UpsertUserActivity marks the user active on date and adds
	// totalTimeDelta to the running total.
	UpsertUserActivity(ctx context.Context, userID, date string, totalTimeDelta decimal.Decimal) error

	// GetUserActivityRange returns activity records for [startDate, endDate]
	// inclusive, ordered by date ascending.
	GetUserActivityRange(ctx context.Context, userID, startDate, endDate string) ([]UserActivity, error)
}

// SessionCache holds expiring session rows. Only the sweep side is part of
// the aggregation deployment; failures there are logged, never fatal.
type SessionCache interface {
	// DeleteExpired removes all rows whose expiry is strictly before now
	// and returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// RunLocker provides mutual exclusion between concurrent aggregation runs.
// The engine holds the lock for a full run; a run that cannot acquire it is
// skipped, not failed.
type RunLocker interface {
	// TryAcquireRunLock attempts to take the aggregation run lock without
	// blocking. Returns acquired=false when another run holds it.
	TryAcquireRunLock(ctx context.Context) (acquired bool, err error)
	ReleaseRunLock(ctx context.Context) error
}
