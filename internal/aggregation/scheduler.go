package aggregation

import (
	"context"
	"log/slog"
	"time"

	"github.com/codepulse-dev/codepulse/internal/core/storage"
)

// Scheduler runs the aggregation engine on a periodic interval.
// It is stateless: each tick independently resolves the watermark, so a
// restarted process resumes exactly where the checkpoint log says.
type Scheduler struct {
	interval       time.Duration
	eventStore     storage.EventStore
	watermarkStore storage.WatermarkStore
	summaryStore   storage.SummaryStore
	locker         storage.RunLocker
	opts           JobParameter
}

// NewScheduler creates a periodic scheduler for the aggregation engine.
func NewScheduler(
	interval time.Duration,
	eventStore storage.EventStore,
	watermarkStore storage.WatermarkStore,
	summaryStore storage.SummaryStore,
	locker storage.RunLocker,
	opts JobParameter,
) *Scheduler {
	return &Scheduler{
		interval:       interval,
		eventStore:     eventStore,
		watermarkStore: watermarkStore,
		summaryStore:   summaryStore,
		locker:         locker,
		opts:           opts.normalized(),
	}
}

// Start begins periodic aggregation. Runs until the context is cancelled,
// then performs one final drain so shutdown does not strand a backlog.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[Scheduler] Starting aggregation scheduler",
		"interval", s.interval,
		"batch_size", s.opts.BatchSize,
	)

	// Initial drain to catch up with any backlog from downtime.
	s.drainBacklog(ctx)

	for {
		select {
		case <-ticker.C:
			s.drainBacklog(ctx)
		case <-ctx.Done():
			slog.Info("[Scheduler] Stopping (context cancelled)")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			slog.Info("[Scheduler] Running final drain before shutdown...")
			s.drainBacklog(shutdownCtx)
			slog.Info("[Scheduler] Final drain complete")

			return nil
		}
	}
}

// drainBacklog processes pending heartbeats in batches until the backlog is
// empty. This prevents unbounded staleness during burst ingestion.
func (s *Scheduler) drainBacklog(ctx context.Context) {
	batchCount := 0
	maxConsecutiveBatches := 100 // safety limit against an infinite loop

	for batchCount < maxConsecutiveBatches {
		select {
		case <-ctx.Done():
			slog.Info("[Scheduler] Drain interrupted by context cancellation",
				"batches_processed", batchCount,
			)
			return
		default:
		}

		processed, err := RunReturningCount(ctx, s.eventStore, s.watermarkStore, s.summaryStore, s.locker, s.opts)
		if err != nil {
			slog.Error("[Scheduler] Aggregation run failed",
				"error", err,
				"batch_number", batchCount+1,
			)
			return
		}

		batchCount++

		// A short batch means the backlog is drained.
		if processed < s.opts.BatchSize {
			if batchCount > 1 {
				slog.Info("[Scheduler] Backlog drained", "total_batches", batchCount)
			}
			return
		}

		slog.Info("[Scheduler] Backlog detected, continuing to drain", "batches_so_far", batchCount)
	}

	slog.Warn("[Scheduler] Max consecutive batches reached, pausing drain",
		"max_batches", maxConsecutiveBatches,
		"note", "Will resume on next tick",
	)
}
