package repository

import (
	"context"
	"time"

	"swap/internal/models"

	"gorm.io/gorm"
)

// StatsSnapshot holds one user's aggregate counters as recomputed from
// the source tables.
type StatsSnapshot struct {
	TotalListings  int
	ActiveListings int
	ItemsSold      int
	ItemsBought    int
	FollowersCount int
	FollowingCount int
}

// StatsRepository is the counter store: the per-user row of denormalized
// aggregate statistics on the users table.
//
// The Apply* methods are the observer's incremental write path. Every one
// of them is a single atomic column-level UPDATE (never read-modify-write
// in the application), so concurrent listing mutations for the same user
// cannot lose updates. Overwrite is the reconciler's write path: one
// atomic multi-column UPDATE per user so readers never observe a
// partially-updated counter set.
type StatsRepository interface {
	ApplyListingCreated(ctx context.Context, userID uint) error
	ApplyListingArchived(ctx context.Context, userID uint) error
	ApplyListingReactivated(ctx context.Context, userID uint) error
	ApplyListingDeleted(ctx context.Context, userID uint, wasActive bool) error
	ApplySale(ctx context.Context, sellerID, buyerID uint) error
	SourceCounts(ctx context.Context, userID uint) (StatsSnapshot, error)
	Overwrite(ctx context.Context, userID uint, snap StatsSnapshot, at time.Time) error
	UserIDs(ctx context.Context) ([]uint, error)
}

type statsRepository struct {
	db *gorm.DB
}

// NewStatsRepository returns a StatsRepository backed by the users table.
func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) users(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.User{})
}

// ApplyListingCreated bumps both listing counters in one UPDATE so a
// reader can never see total and active move independently for a create.
func (r *statsRepository) ApplyListingCreated(ctx context.Context, userID uint) error {
	return r.users(ctx).
		Where("id = ?", userID).
		UpdateColumns(map[string]interface{}{
			"total_listings":  gorm.Expr("total_listings + 1"),
			"active_listings": gorm.Expr("active_listings + 1"),
		}).Error
}

// ApplyListingArchived decrements active_listings, guarded so the column
// never goes below zero even if an earlier decrement was double-applied.
func (r *statsRepository) ApplyListingArchived(ctx context.Context, userID uint) error {
	return r.users(ctx).
		Where("id = ? AND active_listings > 0", userID).
		UpdateColumn("active_listings", gorm.Expr("active_listings - 1")).Error
}

func (r *statsRepository) ApplyListingReactivated(ctx context.Context, userID uint) error {
	return r.users(ctx).
		Where("id = ?", userID).
		UpdateColumn("active_listings", gorm.Expr("active_listings + 1")).Error
}

// ApplyListingDeleted drops total_listings (floored at zero) and, when
// the listing was active at deletion time, active_listings as well.
// Deleting an archived or sold listing must not touch active_listings.
func (r *statsRepository) ApplyListingDeleted(ctx context.Context, userID uint, wasActive bool) error {
	if err := r.users(ctx).
		Where("id = ? AND total_listings > 0", userID).
		UpdateColumn("total_listings", gorm.Expr("total_listings - 1")).Error; err != nil {
		return err
	}
	if !wasActive {
		return nil
	}
	return r.users(ctx).
		Where("id = ? AND active_listings > 0", userID).
		UpdateColumn("active_listings", gorm.Expr("active_listings - 1")).Error
}

// ApplySale increments items_sold for the seller and items_bought for the
// buyer. Called exactly once per confirmed sale, by the sale service only.
func (r *statsRepository) ApplySale(ctx context.Context, sellerID, buyerID uint) error {
	if err := r.users(ctx).
		Where("id = ?", sellerID).
		UpdateColumn("items_sold", gorm.Expr("items_sold + 1")).Error; err != nil {
		return err
	}
	return r.users(ctx).
		Where("id = ?", buyerID).
		UpdateColumn("items_bought", gorm.Expr("items_bought + 1")).Error
}

// SourceCounts recomputes every counter for one user by counting rows in
// the authoritative tables. It deliberately never reads the counter
// columns themselves.
func (r *statsRepository) SourceCounts(ctx context.Context, userID uint) (StatsSnapshot, error) {
	var snap StatsSnapshot

	counts := []struct {
		dest  *int
		query *gorm.DB
	}{
		{&snap.TotalListings, r.db.WithContext(ctx).Model(&models.Listing{}).
			Where("user_id = ?", userID)},
		{&snap.ActiveListings, r.db.WithContext(ctx).Model(&models.Listing{}).
			Where("user_id = ? AND status = ?", userID, models.ListingStatusActive)},
		{&snap.ItemsSold, r.db.WithContext(ctx).Model(&models.Listing{}).
			Where("user_id = ? AND status = ?", userID, models.ListingStatusSold)},
		{&snap.ItemsBought, r.db.WithContext(ctx).Model(&models.Purchase{}).
			Where("user_id = ?", userID)},
		{&snap.FollowersCount, r.db.WithContext(ctx).Model(&models.Follow{}).
			Where("followed_id = ?", userID)},
		{&snap.FollowingCount, r.db.WithContext(ctx).Model(&models.Follow{}).
			Where("follower_id = ?", userID)},
	}

	for _, c := range counts {
		var n int64
		if err := c.query.Count(&n).Error; err != nil {
			return StatsSnapshot{}, err
		}
		*c.dest = int(n)
	}
	return snap, nil
}

// Overwrite replaces all six counters and stamps stats_last_updated in a
// single UPDATE. Last writer wins against concurrent observer deltas;
// the next reconciliation run absorbs any resulting drift.
func (r *statsRepository) Overwrite(ctx context.Context, userID uint, snap StatsSnapshot, at time.Time) error {
	return r.users(ctx).
		Where("id = ?", userID).
		UpdateColumns(map[string]interface{}{
			"total_listings":     snap.TotalListings,
			"active_listings":    snap.ActiveListings,
			"items_sold":         snap.ItemsSold,
			"items_bought":       snap.ItemsBought,
			"followers_count":    snap.FollowersCount,
			"following_count":    snap.FollowingCount,
			"stats_last_updated": at,
		}).Error
}

func (r *statsRepository) UserIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
