package aggregation

import (
	"testing"
	"time"

	v1 "github.com/codepulse-dev/codepulse/internal/api/v1"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekStartOf(t *testing.T) {
	tests := []struct {
		name string
		ts   time.Time
		want string
	}{
		{
			name: "monday maps to itself",
			ts:   time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC),
			want: "2024-01-08",
		},
		{
			name: "sunday maps to preceding monday",
			ts:   time.Date(2024, 1, 14, 23, 59, 0, 0, time.UTC),
			want: "2024-01-08",
		},
		{
			name: "wednesday maps back two days",
			ts:   time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			want: "2024-01-08",
		},
		{
			name: "saturday maps back five days",
			ts:   time.Date(2024, 1, 13, 6, 30, 0, 0, time.UTC),
			want: "2024-01-08",
		},
		{
			name: "week start crossing a month boundary",
			ts:   time.Date(2024, 2, 2, 12, 0, 0, 0, time.UTC),
			want: "2024-01-29",
		},
		{
			name: "non-utc instant is normalized to utc first",
			ts:   time.Date(2024, 1, 15, 0, 30, 0, 0, time.FixedZone("UTC+2", 2*3600)), // Sunday 22:30 UTC
			want: "2024-01-08",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, WeekStartOf(tc.ts))
		})
	}
}

func TestDayOf(t *testing.T) {
	// 23:30 UTC+2 is 21:30 UTC the same day; 00:30 UTC+2 is the prior UTC day.
	assert.Equal(t, "2024-01-08", DayOf(time.Date(2024, 1, 8, 23, 30, 0, 0, time.FixedZone("UTC+2", 2*3600))))
	assert.Equal(t, "2024-01-07", DayOf(time.Date(2024, 1, 8, 0, 30, 0, 0, time.FixedZone("UTC+2", 2*3600))))
}

func TestFold_GroupsByUserAndDate(t *testing.T) {
	monday := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)

	events := []*v1.Heartbeat{
		{SeqID: 1, UserID: "u1", RecordedAt: monday, Language: "go", TimeSpent: decimal.NewFromInt(100)},
		{SeqID: 2, UserID: "u1", RecordedAt: monday, Language: "rust", TimeSpent: decimal.NewFromInt(50)},
		{SeqID: 3, UserID: "u1", RecordedAt: tuesday, Language: "go", TimeSpent: decimal.NewFromInt(25)},
		{SeqID: 4, UserID: "u2", RecordedAt: monday, Language: "go", TimeSpent: decimal.NewFromInt(10)},
	}

	daily, weekly := Fold(events)

	require.Len(t, daily, 3)
	u1Monday := daily[Key{"u1", "2024-01-08"}]
	require.NotNil(t, u1Monday)
	assert.Equal(t, "150", u1Monday.TotalTime.String())
	assert.Equal(t, int64(2), u1Monday.Heartbeats)
	assert.Equal(t, "100", u1Monday.Languages["go"].String())
	assert.Equal(t, "50", u1Monday.Languages["rust"].String())

	// All four events are in the same ISO week, two distinct users.
	require.Len(t, weekly, 2)
	u1Week := weekly[Key{"u1", "2024-01-08"}]
	require.NotNil(t, u1Week)
	assert.Equal(t, "175", u1Week.TotalTime.String())
	assert.Equal(t, int64(3), u1Week.Heartbeats)
	assert.Equal(t, "125", u1Week.Languages["go"].String())

	u2Week := weekly[Key{"u2", "2024-01-08"}]
	require.NotNil(t, u2Week)
	assert.Equal(t, "10", u2Week.TotalTime.String())
}

func TestFold_EmptyLanguageIsItsOwnBucket(t *testing.T) {
	monday := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	events := []*v1.Heartbeat{
		{SeqID: 1, UserID: "u1", RecordedAt: monday, Language: "", TimeSpent: decimal.NewFromInt(30)},
		{SeqID: 2, UserID: "u1", RecordedAt: monday, Language: "", TimeSpent: decimal.NewFromInt(12)},
	}

	daily, _ := Fold(events)
	agg := daily[Key{"u1", "2024-01-08"}]
	require.NotNil(t, agg)
	assert.Equal(t, "42", agg.Languages[""].String())
	assert.True(t, agg.Languages[""].Equal(agg.TotalTime))
}

func TestFold_OrderIndependent(t *testing.T) {
	monday := time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)
	events := []*v1.Heartbeat{
		{SeqID: 1, UserID: "u1", RecordedAt: monday, Language: "go", TimeSpent: decimal.NewFromInt(1)},
		{SeqID: 2, UserID: "u1", RecordedAt: monday, Language: "go", TimeSpent: decimal.NewFromInt(2)},
		{SeqID: 3, UserID: "u1", RecordedAt: monday, Language: "rust", TimeSpent: decimal.NewFromInt(3)},
	}
	reversed := []*v1.Heartbeat{events[2], events[1], events[0]}

	dailyA, _ := Fold(events)
	dailyB, _ := Fold(reversed)

	key := Key{"u1", "2024-01-08"}
	assert.True(t, dailyA[key].TotalTime.Equal(dailyB[key].TotalTime))
	assert.Equal(t, dailyA[key].Heartbeats, dailyB[key].Heartbeats)
	assert.True(t, dailyA[key].Languages["go"].Equal(dailyB[key].Languages["go"]))
	assert.True(t, dailyA[key].Languages["rust"].Equal(dailyB[key].Languages["rust"]))
}

func TestSortedKeys(t *testing.T) {
	aggregates := map[Key]*Aggregate{
		{"u2", "2024-01-08"}: newAggregate(),
		{"u1", "2024-01-09"}: newAggregate(),
		{"u1", "2024-01-08"}: newAggregate(),
	}

	keys := sortedKeys(aggregates)
	assert.Equal(t, []Key{
		{"u1", "2024-01-08"},
		{"u1", "2024-01-09"},
		{"u2", "2024-01-08"},
	}, keys)
}
