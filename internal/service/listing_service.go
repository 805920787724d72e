// Package service provides application business logic (listings, sales,
// chat, stats).
package service

import (
	"context"

	"swap/internal/cache"
	"swap/internal/events"
	"swap/internal/models"
	"swap/internal/repository"
)

// ListingService provides listing lifecycle business logic. Every
// mutation publishes a lifecycle event after the row change is durable;
// counter bookkeeping rides on those events and can never fail the
// mutation itself.
type ListingService struct {
	listingRepo repository.ListingRepository
	bus         *events.Bus
}

// CreateListingInput is the input for creating a listing.
type CreateListingInput struct {
	UserID      uint
	Title       string
	Description string
	PriceCents  int64
	Category    string
}

// NewListingService returns a new ListingService.
func NewListingService(listingRepo repository.ListingRepository, bus *events.Bus) *ListingService {
	return &ListingService{listingRepo: listingRepo, bus: bus}
}

// Create persists a new active listing owned by in.UserID.
func (s *ListingService) Create(ctx context.Context, in CreateListingInput) (*models.Listing, error) {
	if in.Title == "" {
		return nil, models.NewValidationError("Listing title is required")
	}
	if in.PriceCents < 0 {
		return nil, models.NewValidationError("Listing price cannot be negative")
	}

	listing := &models.Listing{
		UserID:      in.UserID,
		Title:       in.Title,
		Description: in.Description,
		PriceCents:  in.PriceCents,
		Category:    in.Category,
		Status:      models.ListingStatusActive,
	}
	if err := s.listingRepo.Create(ctx, listing); err != nil {
		return nil, err
	}

	events.Publish(ctx, s.bus, events.ListingCreated{
		ListingID: listing.ID,
		UserID:    listing.UserID,
	})
	return listing, nil
}

// Archive hides the listing from the marketplace.
func (s *ListingService) Archive(ctx context.Context, actorID, listingID uint) (*models.Listing, error) {
	return s.setStatus(ctx, actorID, listingID, models.ListingStatusArchived)
}

// Reactivate returns an archived listing to the marketplace.
func (s *ListingService) Reactivate(ctx context.Context, actorID, listingID uint) (*models.Listing, error) {
	return s.setStatus(ctx, actorID, listingID, models.ListingStatusActive)
}

func (s *ListingService) setStatus(ctx context.Context, actorID, listingID uint, status models.ListingStatus) (*models.Listing, error) {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.UserID != actorID {
		return nil, models.NewForbiddenError("Only the owner can modify a listing")
	}
	if listing.Status == models.ListingStatusSold {
		return nil, models.NewValidationError("Sold listings cannot change status")
	}

	previous, err := s.listingRepo.UpdateStatus(ctx, listingID, status)
	if err != nil {
		return nil, err
	}
	listing.Status = status
	cache.InvalidateListing(ctx, listingID)

	if previous != status {
		events.Publish(ctx, s.bus, events.ListingStatusChanged{
			ListingID: listingID,
			UserID:    listing.UserID,
			From:      previous,
			To:        status,
		})
	}
	return listing, nil
}

// Delete removes the listing in any state.
func (s *ListingService) Delete(ctx context.Context, actorID, listingID uint) error {
	listing, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.UserID != actorID {
		return models.NewForbiddenError("Only the owner can delete a listing")
	}

	deleted, err := s.listingRepo.Delete(ctx, listingID)
	if err != nil {
		return err
	}
	cache.InvalidateListing(ctx, listingID)

	events.Publish(ctx, s.bus, events.ListingDeleted{
		ListingID: listingID,
		UserID:    deleted.UserID,
		Status:    deleted.Status,
	})
	return nil
}

// Get returns a listing by id.
func (s *ListingService) Get(ctx context.Context, listingID uint) (*models.Listing, error) {
	return s.listingRepo.GetByID(ctx, listingID)
}
