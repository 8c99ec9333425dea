package stats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codepulse-dev/codepulse/internal/aggregation"
	"github.com/codepulse-dev/codepulse/internal/core/storage"
	"github.com/shopspring/decimal"
)

const (
	dateLayout = "2006-01-02"

	// maxActivityRangeDays bounds activity range queries so a single request
	// cannot scan an unbounded slice of the table.
	maxActivityRangeDays = 366
)

// ErrInvalidQuery marks request validation errors that should return HTTP 400.
var ErrInvalidQuery = errors.New("invalid stats query")

// Service implements the read-only stats query layer over the summary store.
// It never writes; summaries are produced exclusively by the aggregation job.
type Service struct {
	store storage.SummaryStore
}

// NewService creates a new stats service.
func NewService(store storage.SummaryStore) *Service {
	if store == nil {
		panic("stats: store must not be nil")
	}
	return &Service{store: store}
}

// GetDailyStats returns the daily summary for a user on a given date.
// A date with no recorded activity yields a zero-valued summary, not an error.
func (s *Service) GetDailyStats(ctx context.Context, userID, date string) (*DailyStatsResponse, error) {
	if err := validateUserAndDate(userID, date); err != nil {
		return nil, err
	}

	daily, err := s.store.GetDaily(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("get daily stats: %w", err)
	}

	resp := &DailyStatsResponse{
		UserID:    userID,
		Date:      date,
		TotalTime: decimal.Zero,
		Languages: map[string]decimal.Decimal{},
	}
	if daily != nil {
		resp.TotalTime = daily.TotalTime
		resp.Heartbeats = daily.Heartbeats
		if daily.Languages != nil {
			resp.Languages = daily.Languages
		}
	}
	return resp, nil
}

// GetWeeklyStats returns the weekly summary for the week containing date.
// The week key is the Monday on or before the date.
func (s *Service) GetWeeklyStats(ctx context.Context, userID, date string) (*WeeklyStatsResponse, error) {
	if userID == "" {
		return nil, invalidQueryf("user_id is required")
	}
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, invalidQueryf("invalid date %q (expected YYYY-MM-DD)", date)
	}
	weekStart := aggregation.WeekStartOf(day)

	weekly, err := s.store.GetWeekly(ctx, userID, weekStart)
	if err != nil {
		return nil, fmt.Errorf("get weekly stats: %w", err)
	}

	resp := &WeeklyStatsResponse{
		UserID:    userID,
		WeekStart: weekStart,
		TotalTime: decimal.Zero,
		Languages: map[string]decimal.Decimal{},
	}
	if weekly != nil {
		resp.TotalTime = weekly.TotalTime
		resp.Heartbeats = weekly.Heartbeats
		if weekly.Languages != nil {
			resp.Languages = weekly.Languages
		}
	}
	return resp, nil
}

// GetUserActivityRange returns per-day activity records for [start, end]
// inclusive, ordered by date ascending. Days without activity are omitted.
func (s *Service) GetUserActivityRange(ctx context.Context, userID, start, end string) (*ActivityRangeResponse, error) {
	if userID == "" {
		return nil, invalidQueryf("user_id is required")
	}
	startDay, err := time.Parse(dateLayout, start)
	if err != nil {
		return nil, invalidQueryf("invalid start date %q (expected YYYY-MM-DD)", start)
	}
	endDay, err := time.Parse(dateLayout, end)
	if err != nil {
		return nil, invalidQueryf("invalid end date %q (expected YYYY-MM-DD)", end)
	}
	if endDay.Before(startDay) {
		return nil, invalidQueryf("end date must not be before start date")
	}
	if endDay.Sub(startDay) > maxActivityRangeDays*24*time.Hour {
		return nil, invalidQueryf("date range exceeds %d days", maxActivityRangeDays)
	}

	days, err := s.store.GetUserActivityRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("get user activity range: %w", err)
	}
	if days == nil {
		days = []storage.UserActivity{}
	}

	return &ActivityRangeResponse{
		UserID: userID,
		Start:  start,
		End:    end,
		Days:   days,
	}, nil
}

func validateUserAndDate(userID, date string) error {
	if userID == "" {
		return invalidQueryf("user_id is required")
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return invalidQueryf("invalid date %q (expected YYYY-MM-DD)", date)
	}
	return nil
}

func invalidQueryf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}
