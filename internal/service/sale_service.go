package service

import (
	"context"
	"log/slog"
	"strings"

	"swap/internal/cache"
	"swap/internal/events"
	"swap/internal/models"
	"swap/internal/observability"
	"swap/internal/repository"

	"gorm.io/gorm"
)

// SaleService is the single authorized path that flips a listing to
// "sold". It records the purchase and increments items_sold/items_bought
// exactly once per confirmed sale. The stats observer deliberately
// ignores transitions into "sold" so that sale counters have exactly one
// writer on the incremental path.
type SaleService struct {
	db          *gorm.DB
	listingRepo repository.ListingRepository
	statsRepo   repository.StatsRepository
	bus         *events.Bus
}

// NewSaleService returns a new SaleService.
func NewSaleService(db *gorm.DB, listingRepo repository.ListingRepository, statsRepo repository.StatsRepository, bus *events.Bus) *SaleService {
	return &SaleService{db: db, listingRepo: listingRepo, statsRepo: statsRepo, bus: bus}
}

// Confirm completes a sale of listingID to buyerID.
func (s *SaleService) Confirm(ctx context.Context, listingID, buyerID uint) (*models.Purchase, error) {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.UserID == buyerID {
		return nil, models.NewValidationError("Cannot buy your own listing")
	}
	if listing.Status != models.ListingStatusActive {
		return nil, models.NewValidationError("Listing is not available for sale")
	}

	purchase := &models.Purchase{
		UserID:     buyerID,
		ListingID:  listingID,
		PriceCents: listing.PriceCents,
	}
	if err := s.db.WithContext(ctx).Create(purchase).Error; err != nil {
		if isDuplicatePurchase(err) {
			return nil, models.NewValidationError("Listing has already been sold")
		}
		return nil, models.NewInternalError(err)
	}

	previous, err := s.listingRepo.UpdateStatus(ctx, listingID, models.ListingStatusSold)
	if err != nil {
		return nil, err
	}
	cache.InvalidateListing(ctx, listingID)

	// Exactly-once on this path: the unique purchase row above is the
	// idempotency anchor for the two increments.
	if err := s.statsRepo.ApplySale(ctx, listing.UserID, buyerID); err != nil {
		// Self-heals on the next reconciliation run.
		observability.Logger.ErrorContext(ctx, "sale counter update failed",
			slog.Uint64("listing_id", uint64(listingID)),
			slog.Uint64("buyer_id", uint64(buyerID)),
			slog.String("error", err.Error()),
		)
	}

	events.Publish(ctx, s.bus, events.ListingStatusChanged{
		ListingID: listingID,
		UserID:    listing.UserID,
		From:      previous,
		To:        models.ListingStatusSold,
	})
	return purchase, nil
}

func isDuplicatePurchase(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}
