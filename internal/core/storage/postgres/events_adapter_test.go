package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	v1 "github.com/codepulse-dev/codepulse/internal/api/v1"
	"github.com/codepulse-dev/codepulse/internal/core/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestAdapter_SaveHeartbeat(t *testing.T) {
	now := time.Date(2024, 1, 8, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		heartbeat  *v1.Heartbeat
		mockResult func(mock sqlmock.Sqlmock, hb *v1.Heartbeat)
		assertions func(t *testing.T, hb *v1.Heartbeat, err error)
	}{
		{
			name: "success sets seq id",
			heartbeat: &v1.Heartbeat{
				ID:         "hb-1",
				UserID:     "u1",
				RecordedAt: now,
				IngestedAt: now,
				Language:   "go",
				TimeSpent:  decimal.NewFromInt(100),
			},
			mockResult: func(mock sqlmock.Sqlmock, hb *v1.Heartbeat) {
				mock.ExpectQuery(regexp.QuoteMeta(querySaveHeartbeat)).
					WithArgs(
						hb.ID,
						hb.UserID,
						hb.RecordedAt,
						hb.IngestedAt,
						hb.Language,
						sqlmock.AnyArg(),
					).
					WillReturnRows(sqlmock.NewRows([]string{"seq_id"}).AddRow(int64(42)))
			},
			assertions: func(t *testing.T, hb *v1.Heartbeat, err error) {
				require.NoError(t, err)
				require.Equal(t, int64(42), hb.SeqID)
			},
		},
		{
			name: "duplicate maps to ErrDuplicate",
			heartbeat: &v1.Heartbeat{
				ID:         "hb-dup",
				UserID:     "u1",
				RecordedAt: now,
				IngestedAt: now,
				Language:   "go",
				TimeSpent:  decimal.NewFromInt(10),
			},
			mockResult: func(mock sqlmock.Sqlmock, hb *v1.Heartbeat) {
				mock.ExpectQuery(regexp.QuoteMeta(querySaveHeartbeat)).
					WithArgs(
						hb.ID,
						hb.UserID,
						hb.RecordedAt,
						hb.IngestedAt,
						hb.Language,
						sqlmock.AnyArg(),
					).
					WillReturnRows(sqlmock.NewRows([]string{"seq_id"}))
			},
			assertions: func(t *testing.T, hb *v1.Heartbeat, err error) {
				require.ErrorIs(t, err, storage.ErrDuplicate)
				require.Equal(t, int64(0), hb.SeqID)
			},
		},
		{
			name: "query error propagates",
			heartbeat: &v1.Heartbeat{
				ID:         "hb-err",
				UserID:     "u1",
				RecordedAt: now,
				IngestedAt: now,
				TimeSpent:  decimal.NewFromInt(10),
			},
			mockResult: func(mock sqlmock.Sqlmock, hb *v1.Heartbeat) {
				mock.ExpectQuery(regexp.QuoteMeta(querySaveHeartbeat)).
					WillReturnError(errors.New("connection reset"))
			},
			assertions: func(t *testing.T, hb *v1.Heartbeat, err error) {
				require.ErrorContains(t, err, "failed to save heartbeat")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			adapter, mock, db := newMockAdapter(t)
			defer db.Close()

			tc.mockResult(mock, tc.heartbeat)

			err := adapter.SaveHeartbeat(context.Background(), tc.heartbeat)
			tc.assertions(t, tc.heartbeat, err)

			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestAdapter_FetchHeartbeatsAfter(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	recordedAt := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	ingestedAt := recordedAt.Add(2 * time.Second)

	mock.ExpectQuery(regexp.QuoteMeta(queryFetchHeartbeatsAfter)).
		WithArgs(int64(100), 2).
		WillReturnRows(sqlmock.NewRows(heartbeatRowColumns()).
			AddRow(int64(101), "hb-101", "u1", recordedAt, ingestedAt, "go", "120").
			AddRow(int64(102), "hb-102", "u1", recordedAt.Add(time.Minute), ingestedAt, "rust", "30"))

	events, err := adapter.FetchHeartbeatsAfter(context.Background(), 100, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)

	require.Equal(t, int64(101), events[0].SeqID)
	require.Equal(t, "u1", events[0].UserID)
	require.Equal(t, "go", events[0].Language)
	require.Equal(t, "120", events[0].TimeSpent.String())
	require.Equal(t, int64(102), events[1].SeqID)
	require.Equal(t, "30", events[1].TimeSpent.String())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdapter_FetchHeartbeatsAfter_Empty(t *testing.T) {
	adapter, mock, db := newMockAdapter(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(queryFetchHeartbeatsAfter)).
		WithArgs(int64(7), 100).
		WillReturnRows(sqlmock.NewRows(heartbeatRowColumns()))

	events, err := adapter.FetchHeartbeatsAfter(context.Background(), 7, 100)
	require.NoError(t, err)
	require.Empty(t, events)
	require.NoError(t, mock.ExpectationsWereMet())
}

func newMockAdapter(t *testing.T) (*Adapter, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	adapter := &Adapter{
		db:                db,
		stmtSaveHeartbeat: mustPrepareStmt(t, db, mock, querySaveHeartbeat),
		stmtFetchAfterSeq: mustPrepareStmt(t, db, mock, queryFetchHeartbeatsAfter),
	}

	return adapter, mock, db
}

func mustPrepareStmt(t *testing.T, db *sql.DB, mock sqlmock.Sqlmock, query string) *sql.Stmt {
	t.Helper()

	mock.ExpectPrepare(regexp.QuoteMeta(query))
	stmt, err := db.Prepare(query)
	require.NoError(t, err)
	return stmt
}

func heartbeatRowColumns() []string {
	return []string{
		"seq_id",
		"id",
		"user_id",
		"recorded_at",
		"ingested_at",
		"language",
		"time_spent",
	}
}
