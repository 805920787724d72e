// Package scheduler runs the periodic stats reconciliation in the
// background of the server process.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"swap/internal/observability"
	"swap/internal/service"
)

// Runner periodically triggers a full stats reconciliation. Overlap is
// prevented by the reconciler itself; a tick that fires while a run is
// still in flight is skipped, not queued.
type Runner struct {
	stats    *service.StatsService
	interval time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewRunner creates a Runner that reconciles every interval.
func NewRunner(stats *service.StatsService, interval time.Duration, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = observability.Logger
	}
	return &Runner{
		stats:    stats,
		interval: interval,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start launches the background loop. The first run happens after one
// full interval, not at startup.
func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)

	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.logger.Info("stats sync scheduler started",
			slog.Duration("interval", r.interval),
		)
		for {
			select {
			case <-ctx.Done():
				r.logger.Info("stats sync scheduler stopped")
				return
			case <-ticker.C:
				r.runOnce(ctx)
			}
		}
	}()
}

func (r *Runner) runOnce(ctx context.Context) {
	result, err := r.stats.Reconcile(ctx, nil, nil)
	if err != nil {
		if err == service.ErrReconcileRunning {
			r.logger.Warn("skipping scheduled stats sync, previous run still in progress")
			return
		}
		r.logger.Error("scheduled stats sync failed",
			slog.String("error", err.Error()),
		)
		return
	}
	r.logger.Info("scheduled stats sync complete",
		slog.String("run_id", result.RunID),
		slog.Int("processed", result.Processed),
		slog.Int("failed", result.Failed),
		slog.Duration("duration", result.Duration),
	)
}

// Stop cancels the loop and waits for the in-flight run, if any, to
// observe the cancellation.
func (r *Runner) Stop() {
	r.once.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}
		<-r.done
	})
}
