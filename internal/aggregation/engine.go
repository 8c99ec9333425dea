package aggregation

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/codepulse-dev/codepulse/internal/core/storage"
)

const defaultBatchSize = 10000

// JobParameter controls throughput for one aggregation run.
type JobParameter struct {
	BatchSize int
}

// DefaultJobOptions returns safe defaults for cron-based processing.
func DefaultJobOptions() JobParameter {
	return JobParameter{BatchSize: defaultBatchSize}
}

func (o JobParameter) normalized() JobParameter {
	n := o
	if n.BatchSize <= 0 {
		n.BatchSize = defaultBatchSize
	}
	return n
}

// Run processes heartbeats since the last checkpoint and merges them into the
// daily/weekly summaries. Uses default options.
func Run(
	ctx context.Context,
	eventStore storage.EventStore,
	watermarkStore storage.WatermarkStore,
	summaryStore storage.SummaryStore,
	locker storage.RunLocker,
) error {
	_, err := RunReturningCount(ctx, eventStore, watermarkStore, summaryStore, locker, DefaultJobOptions())
	return err
}

// RunReturningCount executes one aggregation run and returns the number of
// heartbeats processed. The scheduler uses the count to decide whether more
// backlog remains.
//
// The run is: resolve watermark -> fetch batch -> fold in memory -> merge
// each partial aggregate into the summary store -> append one checkpoint
// covering the fetched range. No checkpoint is written until every merge
// succeeded, so a failure partway leaves the watermark untouched and the
// next run refetches the same batch. The refetched batch is re-merged in
// full: already-merged keys from the failed run are counted again. This is
// the documented at-least-once trade-off; the checkpoint contract only
// guarantees that *successful* runs never overlap.
//
// locker may be nil (tests, embedded callers). With a locker, a run that
// cannot acquire the lock is skipped without error: another instance is
// active and will cover the same range.
func RunReturningCount(
	ctx context.Context,
	eventStore storage.EventStore,
	watermarkStore storage.WatermarkStore,
	summaryStore storage.SummaryStore,
	locker storage.RunLocker,
	opts JobParameter,
) (int, error) {
	opts = opts.normalized()

	if locker != nil {
		acquired, err := locker.TryAcquireRunLock(ctx)
		if err != nil {
			return 0, fmt.Errorf("acquire run lock: %w", err)
		}
		if !acquired {
			slog.Info("[Engine] Run lock held elsewhere, skipping run")
			return 0, nil
		}
		defer func() {
			if err := locker.ReleaseRunLock(ctx); err != nil {
				slog.Error("[Engine] Failed to release run lock", "error", err)
			}
		}()
	}

	cursor, err := resolveWatermark(ctx, watermarkStore)
	if err != nil {
		return 0, err
	}

	events, err := eventStore.FetchHeartbeatsAfter(ctx, cursor, opts.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch heartbeats: %w", err)
	}

	if len(events) == 0 {
		slog.Debug("[Engine] No new heartbeats since last checkpoint", "cursor", cursor)
		return 0, nil
	}

	slog.Info("[Engine] Processing heartbeats",
		"count", len(events),
		"from_cursor", cursor,
		"batch_size", opts.BatchSize,
	)

	daily, weekly := Fold(events)

	if err := mergeAggregates(ctx, summaryStore, daily, weekly); err != nil {
		return 0, err
	}

	start := events[0].SeqID
	end := events[len(events)-1].SeqID
	if err := watermarkStore.AppendCheckpoint(
		ctx,
		strconv.FormatInt(start, 10),
		strconv.FormatInt(end, 10),
		int64(len(events)),
	); err != nil {
		return 0, fmt.Errorf("append checkpoint: %w", err)
	}

	slog.Info("[Engine] Run complete",
		"heartbeats_processed", len(events),
		"daily_aggregates", len(daily),
		"weekly_aggregates", len(weekly),
		"cursor_advanced", fmt.Sprintf("%d -> %d", cursor, end),
	)

	return len(events), nil
}

// resolveWatermark reads the latest checkpoint and returns the exclusive
// lower bound for this run, 0 on cold start.
//
// A watermark that does not parse as an integer is corruption and aborts the
// run. Silently restarting from zero would double-count every summary and
// silently skipping forward would lose data; neither is acceptable.
func resolveWatermark(ctx context.Context, watermarkStore storage.WatermarkStore) (int64, error) {
	cp, err := watermarkStore.LatestCheckpoint(ctx)
	if err != nil {
		return 0, fmt.Errorf("read latest checkpoint: %w", err)
	}
	if cp == nil {
		return 0, nil
	}

	cursor, err := strconv.ParseInt(cp.WatermarkEnd, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt checkpoint %d: parse watermark end %q: %w", cp.ID, cp.WatermarkEnd, err)
	}
	return cursor, nil
}

// mergeAggregates merges every partial aggregate into the durable summaries.
// Keys are visited in sorted order so failures are reproducible. Daily keys
// also upsert the user activity marker for that date.
func mergeAggregates(
	ctx context.Context,
	summaryStore storage.SummaryStore,
	daily, weekly map[Key]*Aggregate,
) error {
	for _, key := range sortedKeys(daily) {
		agg := daily[key]
		if err := summaryStore.UpsertDaily(ctx, key.UserID, key.Date, agg.TotalTime, agg.Heartbeats, agg.Languages); err != nil {
			return fmt.Errorf("merge daily %s/%s: %w", key.UserID, key.Date, err)
		}
		if err := summaryStore.UpsertUserActivity(ctx, key.UserID, key.Date, agg.TotalTime); err != nil {
			return fmt.Errorf("merge user activity %s/%s: %w", key.UserID, key.Date, err)
		}
	}

	for _, key := range sortedKeys(weekly) {
		agg := weekly[key]
		if err := summaryStore.UpsertWeekly(ctx, key.UserID, key.Date, agg.TotalTime, agg.Heartbeats, agg.Languages); err != nil {
			return fmt.Errorf("merge weekly %s/%s: %w", key.UserID, key.Date, err)
		}
	}

	return nil
}
