package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/codepulse-dev/codepulse/internal/core/storage"
	"github.com/shopspring/decimal"
)

// SummaryAdapter implements storage.SummaryStore using PostgreSQL.
//
// Upserts are increment-or-create. total_time and heartbeats are incremented
// in place by SQL; the languages mapping is a composite value, so its merge
// is read-merge-write — performed inside one transaction holding the row
// lock, which serializes concurrent writers on the same key.
type SummaryAdapter struct {
	db *sql.DB
}

// NewSummaryAdapter creates a new SummaryAdapter sharing the given connection.
func NewSummaryAdapter(db *sql.DB) *SummaryAdapter {
	return &SummaryAdapter{db: db}
}

// GetDaily returns the daily summary for (userID, date), or nil if absent.
func (a *SummaryAdapter) GetDaily(ctx context.Context, userID, date string) (*storage.DailyStats, error) {
	stats := storage.DailyStats{UserID: userID, Date: date}
	var languagesJSON []byte

	err := a.db.QueryRowContext(ctx, queryGetDaily, userID, date).Scan(
		&stats.TotalTime,
		&stats.Heartbeats,
		&languagesJSON,
		&stats.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get daily stats %s/%s: %w", userID, date, err)
	}

	stats.Languages, err = unmarshalLanguages(languagesJSON)
	if err != nil {
		return nil, fmt.Errorf("get daily stats %s/%s: %w", userID, date, err)
	}
	return &stats, nil
}

// UpsertDaily merges one daily partial aggregate into the durable record.
func (a *SummaryAdapter) UpsertDaily(
	ctx context.Context,
	userID, date string,
	totalTime decimal.Decimal,
	heartbeats int64,
	languages map[string]decimal.Decimal,
) error {
	err := a.upsertSummary(ctx, summaryStatements{
		selectForUpdate: querySelectDailyForUpdate,
		insert:          queryInsertDaily,
		update:          queryUpdateDaily,
	}, userID, date, totalTime, heartbeats, languages)
	if err != nil {
		return fmt.Errorf("upsert daily stats %s/%s: %w", userID, date, err)
	}
	return nil
}

// GetWeekly returns the weekly summary for (userID, weekStart), or nil if absent.
func (a *SummaryAdapter) GetWeekly(ctx context.Context, userID, weekStart string) (*storage.WeeklyStats, error) {
	stats := storage.WeeklyStats{UserID: userID, WeekStart: weekStart}
	var languagesJSON []byte

	err := a.db.QueryRowContext(ctx, queryGetWeekly, userID, weekStart).Scan(
		&stats.TotalTime,
		&stats.Heartbeats,
		&languagesJSON,
		&stats.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get weekly stats %s/%s: %w", userID, weekStart, err)
	}

	stats.Languages, err = unmarshalLanguages(languagesJSON)
	if err != nil {
		return nil, fmt.Errorf("get weekly stats %s/%s: %w", userID, weekStart, err)
	}
	return &stats, nil
}

// UpsertWeekly merges one weekly partial aggregate into the durable record.
func (a *SummaryAdapter) UpsertWeekly(
	ctx context.Context,
	userID, weekStart string,
	totalTime decimal.Decimal,
	heartbeats int64,
	languages map[string]decimal.Decimal,
) error {
	err := a.upsertSummary(ctx, summaryStatements{
		selectForUpdate: querySelectWeeklyForUpdate,
		insert:          queryInsertWeekly,
		update:          queryUpdateWeekly,
	}, userID, weekStart, totalTime, heartbeats, languages)
	if err != nil {
		return fmt.Errorf("upsert weekly stats %s/%s: %w", userID, weekStart, err)
	}
	return nil
}

type summaryStatements struct {
	selectForUpdate string
	insert          string
	update          string
}

// upsertSummary is the shared read-merge-write for daily and weekly rows.
// The SELECT ... FOR UPDATE locks the row for the life of the transaction,
// so the languages merge cannot lose a concurrent update.
func (a *SummaryAdapter) upsertSummary(
	ctx context.Context,
	stmts summaryStatements,
	userID, dateKey string,
	totalTime decimal.Decimal,
	heartbeats int64,
	languages map[string]decimal.Decimal,
) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var (
		existingTotal      decimal.Decimal
		existingHeartbeats int64
		existingLanguages  []byte
	)
	err = tx.QueryRowContext(ctx, stmts.selectForUpdate, userID, dateKey).
		Scan(&existingTotal, &existingHeartbeats, &existingLanguages)

	now := time.Now().UTC()

	switch {
	case err == sql.ErrNoRows:
		languagesJSON, mErr := marshalLanguages(languages)
		if mErr != nil {
			return mErr
		}
		if _, err := tx.ExecContext(ctx, stmts.insert,
			userID, dateKey, totalTime, heartbeats, languagesJSON, now,
		); err != nil {
			return fmt.Errorf("insert: %w", err)
		}

	case err != nil:
		return fmt.Errorf("select for update: %w", err)

	default:
		existing, uErr := unmarshalLanguages(existingLanguages)
		if uErr != nil {
			return uErr
		}
		mergedJSON, mErr := marshalLanguages(mergeLanguages(existing, languages))
		if mErr != nil {
			return mErr
		}
		if _, err := tx.ExecContext(ctx, stmts.update,
			userID, dateKey, totalTime, heartbeats, mergedJSON, now,
		); err != nil {
			return fmt.Errorf("update: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// UpsertUserActivity marks the user active on date and adds totalTimeDelta
// to the running total. Single statement, so both fields are atomic.
func (a *SummaryAdapter) UpsertUserActivity(ctx context.Context, userID, date string, totalTimeDelta decimal.Decimal) error {
	_, err := a.db.ExecContext(ctx, queryUpsertUserActivity, userID, date, totalTimeDelta)
	if err != nil {
		return fmt.Errorf("upsert user activity %s/%s: %w", userID, date, err)
	}
	return nil
}

// GetUserActivityRange returns activity records for [startDate, endDate]
// inclusive, ordered by date ascending.
func (a *SummaryAdapter) GetUserActivityRange(ctx context.Context, userID, startDate, endDate string) ([]storage.UserActivity, error) {
	rows, err := a.db.QueryContext(ctx, queryUserActivityRange, userID, startDate, endDate)
	if err != nil {
		return nil, fmt.Errorf("query user activity range: %w", err)
	}
	defer rows.Close()

	var result []storage.UserActivity
	for rows.Next() {
		var ua storage.UserActivity
		if err := rows.Scan(&ua.UserID, &ua.Date, &ua.IsActive, &ua.TotalTime); err != nil {
			return nil, fmt.Errorf("scan user activity row: %w", err)
		}
		result = append(result, ua)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user activity rows: %w", err)
	}

	return result, nil
}
