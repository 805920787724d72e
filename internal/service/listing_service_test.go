package service

import (
	"context"
	"testing"

	"swap/internal/events"
	"swap/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// listingRepoStub is a stub for repository.ListingRepository.
type listingRepoStub struct {
	createFn       func(context.Context, *models.Listing) error
	getByIDFn      func(context.Context, uint) (*models.Listing, error)
	updateStatusFn func(context.Context, uint, models.ListingStatus) (models.ListingStatus, error)
	deleteFn       func(context.Context, uint) (*models.Listing, error)
	listByUserFn   func(context.Context, uint, int, int) ([]models.Listing, error)
	searchFn       func(context.Context, string, int, int) ([]models.Listing, error)
}

func (s *listingRepoStub) Create(ctx context.Context, listing *models.Listing) error {
	return s.createFn(ctx, listing)
}
func (s *listingRepoStub) GetByID(ctx context.Context, id uint) (*models.Listing, error) {
	return s.getByIDFn(ctx, id)
}
func (s *listingRepoStub) UpdateStatus(ctx context.Context, id uint, status models.ListingStatus) (models.ListingStatus, error) {
	return s.updateStatusFn(ctx, id, status)
}
func (s *listingRepoStub) Delete(ctx context.Context, id uint) (*models.Listing, error) {
	return s.deleteFn(ctx, id)
}
func (s *listingRepoStub) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Listing, error) {
	return s.listByUserFn(ctx, userID, limit, offset)
}
func (s *listingRepoStub) Search(ctx context.Context, category string, limit, offset int) ([]models.Listing, error) {
	return s.searchFn(ctx, category, limit, offset)
}

func noopListingRepo() *listingRepoStub {
	return &listingRepoStub{
		createFn: func(context.Context, *models.Listing) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Listing, error) {
			return &models.Listing{ID: id, UserID: 1, Status: models.ListingStatusActive}, nil
		},
		updateStatusFn: func(_ context.Context, _ uint, _ models.ListingStatus) (models.ListingStatus, error) {
			return models.ListingStatusActive, nil
		},
		deleteFn: func(_ context.Context, id uint) (*models.Listing, error) {
			return &models.Listing{ID: id, UserID: 1, Status: models.ListingStatusActive}, nil
		},
		listByUserFn: func(context.Context, uint, int, int) ([]models.Listing, error) { return nil, nil },
		searchFn:     func(context.Context, string, int, int) ([]models.Listing, error) { return nil, nil },
	}
}

func TestListingService_CreatePublishesEvent(t *testing.T) {
	repo := noopListingRepo()
	repo.createFn = func(_ context.Context, listing *models.Listing) error {
		listing.ID = 33
		return nil
	}

	bus := events.NewBus(nil)
	var created events.ListingCreated
	events.Subscribe(bus, func(_ context.Context, ev events.ListingCreated) error {
		created = ev
		return nil
	})

	svc := NewListingService(repo, bus)
	listing, err := svc.Create(context.Background(), CreateListingInput{
		UserID: 7, Title: "Road bike", PriceCents: 12000,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusActive, listing.Status)
	assert.Equal(t, uint(33), created.ListingID)
	assert.Equal(t, uint(7), created.UserID)
}

func TestListingService_CreateValidation(t *testing.T) {
	svc := NewListingService(noopListingRepo(), events.NewBus(nil))

	_, err := svc.Create(context.Background(), CreateListingInput{UserID: 1, Title: ""})
	assert.Error(t, err)

	_, err = svc.Create(context.Background(), CreateListingInput{UserID: 1, Title: "x", PriceCents: -1})
	assert.Error(t, err)
}

func TestListingService_ArchivePublishesTransition(t *testing.T) {
	repo := noopListingRepo()
	repo.updateStatusFn = func(_ context.Context, _ uint, _ models.ListingStatus) (models.ListingStatus, error) {
		return models.ListingStatusActive, nil // previous status
	}

	bus := events.NewBus(nil)
	var changed events.ListingStatusChanged
	events.Subscribe(bus, func(_ context.Context, ev events.ListingStatusChanged) error {
		changed = ev
		return nil
	})

	svc := NewListingService(repo, bus)
	_, err := svc.Archive(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, models.ListingStatusActive, changed.From)
	assert.Equal(t, models.ListingStatusArchived, changed.To)
}

func TestListingService_NoEventWhenStatusUnchanged(t *testing.T) {
	repo := noopListingRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Listing, error) {
		return &models.Listing{ID: id, UserID: 1, Status: models.ListingStatusArchived}, nil
	}
	repo.updateStatusFn = func(_ context.Context, _ uint, _ models.ListingStatus) (models.ListingStatus, error) {
		return models.ListingStatusArchived, nil // already archived
	}

	bus := events.NewBus(nil)
	published := false
	events.Subscribe(bus, func(_ context.Context, _ events.ListingStatusChanged) error {
		published = true
		return nil
	})

	svc := NewListingService(repo, bus)
	_, err := svc.Archive(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.False(t, published, "archiving an archived listing is a no-op for counters")
}

func TestListingService_SoldListingsAreImmutable(t *testing.T) {
	repo := noopListingRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Listing, error) {
		return &models.Listing{ID: id, UserID: 1, Status: models.ListingStatusSold}, nil
	}

	svc := NewListingService(repo, events.NewBus(nil))

	_, err := svc.Archive(context.Background(), 1, 10)
	assert.Error(t, err)
	_, err = svc.Reactivate(context.Background(), 1, 10)
	assert.Error(t, err)
}

func TestListingService_OwnerChecks(t *testing.T) {
	svc := NewListingService(noopListingRepo(), events.NewBus(nil))

	_, err := svc.Archive(context.Background(), 99, 10)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)

	err = svc.Delete(context.Background(), 99, 10)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
}

func TestListingService_DeleteCarriesStatusAtDeletion(t *testing.T) {
	repo := noopListingRepo()
	repo.deleteFn = func(_ context.Context, id uint) (*models.Listing, error) {
		return &models.Listing{ID: id, UserID: 1, Status: models.ListingStatusArchived}, nil
	}
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Listing, error) {
		return &models.Listing{ID: id, UserID: 1, Status: models.ListingStatusArchived}, nil
	}

	bus := events.NewBus(nil)
	var deleted events.ListingDeleted
	events.Subscribe(bus, func(_ context.Context, ev events.ListingDeleted) error {
		deleted = ev
		return nil
	})

	svc := NewListingService(repo, bus)
	require.NoError(t, svc.Delete(context.Background(), 1, 10))
	assert.Equal(t, models.ListingStatusArchived, deleted.Status)
}
