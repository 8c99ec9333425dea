package aggregation

import (
	"sort"
	"time"

	v1 "github.com/codepulse-dev/codepulse/internal/api/v1"
	"github.com/shopspring/decimal"
)

// dateLayout is the canonical key format for daily and weekly buckets.
const dateLayout = "2006-01-02"

// Key uniquely identifies one in-memory partial aggregate.
// Date is the UTC calendar day for daily aggregates and the ISO week-start
// Monday for weekly aggregates.
type Key struct {
	UserID string
	Date   string
}

// Aggregate is the transient partial summary folded from one batch.
// It exists only for the duration of a run, then is merged into the durable
// summary store and discarded.
type Aggregate struct {
	TotalTime  decimal.Decimal
	Heartbeats int64
	Languages  map[string]decimal.Decimal
}

func newAggregate() *Aggregate {
	return &Aggregate{
		TotalTime: decimal.Zero,
		Languages: make(map[string]decimal.Decimal),
	}
}

// add folds one heartbeat's contribution into the aggregate.
// Absent language entries are treated as zero.
func (a *Aggregate) add(language string, timeSpent decimal.Decimal) {
	a.TotalTime = a.TotalTime.Add(timeSpent)
	a.Heartbeats++

	current, ok := a.Languages[language]
	if !ok {
		current = decimal.Zero
	}
	a.Languages[language] = current.Add(timeSpent)
}

// DayOf returns the UTC calendar date key of an instant.
func DayOf(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// WeekStartOf returns the ISO week-start key of an instant: the Monday on or
// before the instant's UTC date, at midnight UTC. Sunday maps to the Monday
// six days prior.
func WeekStartOf(t time.Time) string {
	u := t.UTC()
	day := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)

	back := int(day.Weekday()) - int(time.Monday)
	if day.Weekday() == time.Sunday {
		back = 6
	}
	return day.AddDate(0, 0, -back).Format(dateLayout)
}

// Fold reduces a batch of heartbeats into daily and weekly partial
// aggregates. The reduction is commutative per key, so event order does not
// affect the result; the batch arrives in ascending seq order regardless,
// keeping runs reproducible.
func Fold(events []*v1.Heartbeat) (daily, weekly map[Key]*Aggregate) {
	daily = make(map[Key]*Aggregate)
	weekly = make(map[Key]*Aggregate)

	for _, evt := range events {
		dayKey := Key{UserID: evt.UserID, Date: DayOf(evt.RecordedAt)}
		agg, ok := daily[dayKey]
		if !ok {
			agg = newAggregate()
			daily[dayKey] = agg
		}
		agg.add(evt.Language, evt.TimeSpent)

		weekKey := Key{UserID: evt.UserID, Date: WeekStartOf(evt.RecordedAt)}
		agg, ok = weekly[weekKey]
		if !ok {
			agg = newAggregate()
			weekly[weekKey] = agg
		}
		agg.add(evt.Language, evt.TimeSpent)
	}

	return daily, weekly
}

// sortedKeys returns the aggregate keys in deterministic order so merge
// traversal is reproducible in tests and logs.
func sortedKeys(aggregates map[Key]*Aggregate) []Key {
	keys := make([]Key, 0, len(aggregates))
	for k := range aggregates {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].UserID != keys[j].UserID {
			return keys[i].UserID < keys[j].UserID
		}
		return keys[i].Date < keys[j].Date
	})
	return keys
}
