package sessioncache

import (
	"context"
	"log/slog"
	"time"

	"github.com/codepulse-dev/codepulse/internal/core/storage"
)

// Sweeper periodically removes expired session rows from the cache table.
// Sweep failures are logged and retried on the next tick; an unreachable
// cache must never take the aggregation pipeline down with it.
type Sweeper struct {
	interval time.Duration
	cache    storage.SessionCache
	nowFn    func() time.Time
}

// NewSweeper creates a periodic sweeper for the session cache.
func NewSweeper(interval time.Duration, cache storage.SessionCache) *Sweeper {
	if cache == nil {
		panic("sessioncache: cache must not be nil")
	}
	return &Sweeper{
		interval: interval,
		cache:    cache,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Start begins periodic sweeping. Runs until the context is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[Sweeper] Starting session cache sweeper", "interval", s.interval)

	// Initial sweep to clear anything that expired during downtime.
	s.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			slog.Info("[Sweeper] Stopping (context cancelled)")
			return nil
		}
	}
}

// sweep deletes all sessions expired as of now. Errors are non-fatal.
func (s *Sweeper) sweep(ctx context.Context) {
	removed, err := s.cache.DeleteExpired(ctx, s.nowFn())
	if err != nil {
		slog.Error("[Sweeper] Session sweep failed", "error", err)
		return
	}

	if removed > 0 {
		slog.Info("[Sweeper] Removed expired sessions", "count", removed)
	}
}
