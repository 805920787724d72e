package service

import (
	"context"
	"log/slog"

	"swap/internal/events"
	"swap/internal/models"
	"swap/internal/observability"
	"swap/internal/repository"
)

// StatsObserver keeps the per-user listing counters approximately in
// sync with listing lifecycle events, using targeted atomic deltas
// rather than recomputation.
//
// Counter updates here are best effort: a failure is logged and counted,
// never surfaced to the user mutating their listing. The reconciler is
// the correctness backstop and overwrites any drift on its next run.
type StatsObserver struct {
	statsRepo repository.StatsRepository
	logger    *slog.Logger
}

// NewStatsObserver returns a new StatsObserver.
func NewStatsObserver(statsRepo repository.StatsRepository, logger *slog.Logger) *StatsObserver {
	if logger == nil {
		logger = observability.Logger
	}
	return &StatsObserver{statsRepo: statsRepo, logger: logger}
}

// Register subscribes the observer to listing lifecycle events.
func (o *StatsObserver) Register(bus *events.Bus) {
	events.Subscribe(bus, o.onListingCreated)
	events.Subscribe(bus, o.onListingStatusChanged)
	events.Subscribe(bus, o.onListingDeleted)
}

func (o *StatsObserver) onListingCreated(ctx context.Context, ev events.ListingCreated) error {
	if err := o.statsRepo.ApplyListingCreated(ctx, ev.UserID); err != nil {
		return o.fail(ctx, "created", ev.UserID, ev.ListingID, err)
	}
	return nil
}

func (o *StatsObserver) onListingStatusChanged(ctx context.Context, ev events.ListingStatusChanged) error {
	// Transitions into or out of "sold" are handled exclusively by the
	// sale confirmation path. Reacting to them here would double-count
	// the same sale.
	if ev.From == models.ListingStatusSold || ev.To == models.ListingStatusSold {
		return nil
	}

	switch {
	case ev.From == models.ListingStatusActive && ev.To == models.ListingStatusArchived:
		if err := o.statsRepo.ApplyListingArchived(ctx, ev.UserID); err != nil {
			return o.fail(ctx, "archived", ev.UserID, ev.ListingID, err)
		}
	case ev.From == models.ListingStatusArchived && ev.To == models.ListingStatusActive:
		if err := o.statsRepo.ApplyListingReactivated(ctx, ev.UserID); err != nil {
			return o.fail(ctx, "reactivated", ev.UserID, ev.ListingID, err)
		}
	}
	return nil
}

func (o *StatsObserver) onListingDeleted(ctx context.Context, ev events.ListingDeleted) error {
	wasActive := ev.Status == models.ListingStatusActive
	if err := o.statsRepo.ApplyListingDeleted(ctx, ev.UserID, wasActive); err != nil {
		return o.fail(ctx, "deleted", ev.UserID, ev.ListingID, err)
	}
	return nil
}

func (o *StatsObserver) fail(ctx context.Context, transition string, userID, listingID uint, err error) error {
	observability.StatsObserverFailures.WithLabelValues(transition).Inc()
	o.logger.ErrorContext(ctx, "stats counter update failed",
		slog.String("transition", transition),
		slog.Uint64("user_id", uint64(userID)),
		slog.Uint64("listing_id", uint64(listingID)),
		slog.String("error", err.Error()),
	)
	return err
}
