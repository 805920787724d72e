package repository

import (
	"context"
	"errors"

	"swap/internal/models"

	"gorm.io/gorm"
)

// ListingRepository defines persistence operations for listings.
//
// UpdateStatus and Delete return the listing's previous status so callers
// can publish lifecycle events carrying the before/after transition.
type ListingRepository interface {
	Create(ctx context.Context, listing *models.Listing) error
	GetByID(ctx context.Context, id uint) (*models.Listing, error)
	UpdateStatus(ctx context.Context, id uint, status models.ListingStatus) (models.ListingStatus, error)
	Delete(ctx context.Context, id uint) (*models.Listing, error)
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Listing, error)
	Search(ctx context.Context, category string, limit, offset int) ([]models.Listing, error)
}

type listingRepository struct {
	db *gorm.DB
}

// NewListingRepository returns a new ListingRepository implementation.
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) Create(ctx context.Context, listing *models.Listing) error {
	if listing.Status == "" {
		listing.Status = models.ListingStatusActive
	}
	if err := r.db.WithContext(ctx).Create(listing).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *listingRepository) GetByID(ctx context.Context, id uint) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).First(&listing, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Listing", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &listing, nil
}

func (r *listingRepository) UpdateStatus(ctx context.Context, id uint, status models.ListingStatus) (models.ListingStatus, error) {
	listing, err := r.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	previous := listing.Status
	if previous == status {
		return previous, nil
	}
	if err := r.db.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ?", id).
		Update("status", status).Error; err != nil {
		return "", models.NewInternalError(err)
	}
	return previous, nil
}

// Delete soft-deletes the listing and returns the row as it was at
// deletion time, status included.
func (r *listingRepository) Delete(ctx context.Context, id uint) (*models.Listing, error) {
	listing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Delete(&models.Listing{}, id).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return listing, nil
}

func (r *listingRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Listing, error) {
	var listings []models.Listing
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&listings).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return listings, nil
}

func (r *listingRepository) Search(ctx context.Context, category string, limit, offset int) ([]models.Listing, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", models.ListingStatusActive)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	var listings []models.Listing
	if err := query.
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&listings).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return listings, nil
}
