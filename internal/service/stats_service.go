package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"swap/internal/cache"
	"swap/internal/models"
	"swap/internal/observability"
	"swap/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ErrReconcileRunning is returned when a reconciliation run is requested
// while another one is still active. Overlapping runs are refused, not
// queued: a second concurrent recomputation can do no better than the
// first and only wastes resources.
var ErrReconcileRunning = &models.AppError{
	Code:    "RECONCILE_RUNNING",
	Message: "A stats reconciliation run is already in progress",
}

// ReconcileResult summarizes one reconciliation run.
type ReconcileResult struct {
	RunID     string
	Processed int
	Failed    int
	Duration  time.Duration
}

// ReconcileProgress is invoked once per user after that user's counters
// have been recomputed (or failed). Used by the operator CLI for per-user
// confirmation output. May be nil.
type ReconcileProgress func(userID uint, snap repository.StatsSnapshot, err error)

// StatsService recomputes per-user aggregate counters from the source
// tables and overwrites the counter store. It is the sole source of
// absolute truth for the counters; the observer's incremental deltas are
// a latency optimization layered on top of it.
type StatsService struct {
	statsRepo repository.StatsRepository
	logger    *slog.Logger

	mu sync.Mutex // overlap guard
}

// NewStatsService returns a new StatsService.
func NewStatsService(statsRepo repository.StatsRepository, logger *slog.Logger) *StatsService {
	if logger == nil {
		logger = observability.Logger
	}
	return &StatsService{statsRepo: statsRepo, logger: logger}
}

// Reconcile recomputes counters for one user (userID non-nil) or every
// user. A failure for one user is logged and counted but never aborts
// the rest of the batch. Running it twice with no intervening writes
// yields identical counters: the per-user write is a pure function of
// the source tables.
func (s *StatsService) Reconcile(ctx context.Context, userID *uint, progress ReconcileProgress) (ReconcileResult, error) {
	if !s.mu.TryLock() {
		return ReconcileResult{}, ErrReconcileRunning
	}
	defer s.mu.Unlock()

	runID := uuid.NewString()
	span, ctx := observability.NewSpan(ctx, "stats.reconcile")
	span.AddAttributes(attribute.String("run_id", runID))
	defer span.End()

	start := time.Now()
	result := ReconcileResult{RunID: runID}

	var ids []uint
	if userID != nil {
		ids = []uint{*userID}
	} else {
		var err error
		ids, err = s.statsRepo.UserIDs(ctx)
		if err != nil {
			span.SetError(err)
			observability.StatsReconcileRuns.WithLabelValues("error").Inc()
			return result, models.NewInternalError(err)
		}
	}
	span.AddAttributes(attribute.Int("user_count", len(ids)))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			span.SetError(err)
			observability.StatsReconcileRuns.WithLabelValues("cancelled").Inc()
			return result, err
		}

		snap, err := s.reconcileUser(ctx, id)
		if err != nil {
			result.Failed++
			observability.StatsReconcileUserFailures.Inc()
			s.logger.ErrorContext(ctx, "stats reconciliation failed for user",
				slog.String("run_id", runID),
				slog.Uint64("user_id", uint64(id)),
				slog.String("error", err.Error()),
			)
		} else {
			result.Processed++
		}
		if progress != nil {
			progress(id, snap, err)
		}
	}

	result.Duration = time.Since(start)
	observability.StatsReconcileDuration.Observe(result.Duration.Seconds())
	observability.StatsReconcileRuns.WithLabelValues("ok").Inc()

	s.logger.InfoContext(ctx, "stats reconciliation completed",
		slog.String("run_id", runID),
		slog.Int("processed", result.Processed),
		slog.Int("failed", result.Failed),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

// reconcileUser recomputes all six counters by counting source rows and
// overwrites them, plus stats_last_updated, in one atomic update.
func (s *StatsService) reconcileUser(ctx context.Context, userID uint) (repository.StatsSnapshot, error) {
	snap, err := s.statsRepo.SourceCounts(ctx, userID)
	if err != nil {
		return repository.StatsSnapshot{}, err
	}
	if err := s.statsRepo.Overwrite(ctx, userID, snap, time.Now().UTC()); err != nil {
		return snap, err
	}
	cache.InvalidateUser(ctx, userID)
	return snap, nil
}
