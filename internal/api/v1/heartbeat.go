package v1

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Heartbeat is the atomic activity event of the system: one slice of coding
// time reported by an editor plugin or agent.
type Heartbeat struct {
	// SeqID is a monotonic sequence number assigned on ingestion.
	// It is the watermark identifier used by the aggregation engine and
	// provides strict total ordering for checkpoint pagination.
	// Set by database (BIGSERIAL), not exposed in the public API.
	SeqID int64 `json:"-"`

	// ID is the unique immutable identifier provided by the client.
	// It MUST be unique per UserID to enforce idempotency. When the client
	// omits it, the ingestion service assigns a UUID.
	ID string `json:"id"`

	// UserID identifies the user the activity belongs to.
	// This is the primary dimension for daily/weekly aggregation.
	UserID string `json:"user_id"`

	// RecordedAt is when the activity happened (client-side clock).
	// The UTC calendar date and ISO week of this instant decide which
	// daily/weekly summaries the heartbeat folds into.
	RecordedAt time.Time `json:"recorded_at"`

	// IngestedAt is when the server received the heartbeat (audit trail).
	// Set by the ingestion service, not the client.
	IngestedAt time.Time `json:"ingested_at"`

	// Language is the programming language the time was spent in.
	// May be empty when the client could not detect one; the ingestion
	// service normalizes it before persistence.
	Language string `json:"language"`

	// TimeSpent is the activity duration in seconds. Must be >= 0.
	TimeSpent decimal.Decimal `json:"time_spent"`
}

// Validate ensures the heartbeat has all required attributes.
func (h *Heartbeat) Validate() error {
	if h.UserID == "" {
		return fmt.Errorf("user_id is required")
	}

	if h.RecordedAt.IsZero() {
		return fmt.Errorf("recorded_at is required")
	}

	if h.TimeSpent.IsNegative() {
		return fmt.Errorf("time_spent must not be negative")
	}

	return nil
}
