package stats

import (
	"github.com/codepulse-dev/codepulse/internal/core/storage"
	"github.com/shopspring/decimal"
)

// DailyStatsResponse is the response body for a single daily summary.
type DailyStatsResponse struct {
	UserID     string                     `json:"user_id"`
	Date       string                     `json:"date"`
	TotalTime  decimal.Decimal            `json:"total_time"`
	Heartbeats int64                      `json:"heartbeats"`
	Languages  map[string]decimal.Decimal `json:"languages"`
}

// WeeklyStatsResponse is the response body for a single weekly summary.
// WeekStart is the Monday of the week containing the requested date.
type WeeklyStatsResponse struct {
	UserID     string                     `json:"user_id"`
	WeekStart  string                     `json:"week_start"`
	TotalTime  decimal.Decimal            `json:"total_time"`
	Heartbeats int64                      `json:"heartbeats"`
	Languages  map[string]decimal.Decimal `json:"languages"`
}

// ActivityRangeResponse is the response body for a user activity range query.
type ActivityRangeResponse struct {
	UserID string                 `json:"user_id"`
	Start  string                 `json:"start"`
	End    string                 `json:"end"`
	Days   []storage.UserActivity `json:"days"`
}
