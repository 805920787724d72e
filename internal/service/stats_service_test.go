package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"swap/internal/database"
	"swap/internal/models"
	"swap/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupStatsDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.Models()...))
	return db
}

func createStatsUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hashed",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func fetchUser(t *testing.T, db *gorm.DB, id uint) *models.User {
	t.Helper()
	var user models.User
	require.NoError(t, db.First(&user, id).Error)
	return &user
}

func TestStatsService_ReconcileRecomputesFromSource(t *testing.T) {
	db := setupStatsDB(t)
	seller := createStatsUser(t, db, "seller")
	buyer := createStatsUser(t, db, "buyer")
	fan := createStatsUser(t, db, "fan")

	// 2 active, 1 archived, 1 sold listing for the seller
	for _, status := range []models.ListingStatus{
		models.ListingStatusActive, models.ListingStatusActive,
		models.ListingStatusArchived, models.ListingStatusSold,
	} {
		require.NoError(t, db.Create(&models.Listing{
			UserID: seller.ID, Title: "item", Status: status,
		}).Error)
	}
	var soldListing models.Listing
	require.NoError(t, db.Where("status = ?", models.ListingStatusSold).First(&soldListing).Error)
	require.NoError(t, db.Create(&models.Purchase{UserID: buyer.ID, ListingID: soldListing.ID}).Error)

	require.NoError(t, db.Create(&models.Follow{FollowerID: fan.ID, FollowedID: seller.ID}).Error)
	require.NoError(t, db.Create(&models.Follow{FollowerID: seller.ID, FollowedID: buyer.ID}).Error)

	svc := NewStatsService(repository.NewStatsRepository(db), nil)
	result, err := svc.Reconcile(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 0, result.Failed)
	assert.NotEmpty(t, result.RunID)

	got := fetchUser(t, db, seller.ID)
	assert.Equal(t, 4, got.TotalListings)
	assert.Equal(t, 2, got.ActiveListings)
	assert.Equal(t, 1, got.ItemsSold)
	assert.Equal(t, 0, got.ItemsBought)
	assert.Equal(t, 1, got.FollowersCount)
	assert.Equal(t, 1, got.FollowingCount)
	require.NotNil(t, got.StatsLastUpdated)

	gotBuyer := fetchUser(t, db, buyer.ID)
	assert.Equal(t, 1, gotBuyer.ItemsBought)
	assert.Equal(t, 1, gotBuyer.FollowersCount)
}

func TestStatsService_ReconcileOverwritesDrift(t *testing.T) {
	db := setupStatsDB(t)
	user := createStatsUser(t, db, "drifted")

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.Listing{
			UserID: user.ID, Title: "item", Status: models.ListingStatusActive,
		}).Error)
	}

	// Simulate observer drift: the stored counter disagrees with source
	require.NoError(t, db.Model(user).UpdateColumn("active_listings", 5).Error)

	svc := NewStatsService(repository.NewStatsRepository(db), nil)
	_, err := svc.Reconcile(context.Background(), &user.ID, nil)
	require.NoError(t, err)

	got := fetchUser(t, db, user.ID)
	assert.Equal(t, 3, got.ActiveListings)
	assert.Equal(t, 3, got.TotalListings)
}

func TestStatsService_ReconcileIsIdempotent(t *testing.T) {
	db := setupStatsDB(t)
	user := createStatsUser(t, db, "stable")
	require.NoError(t, db.Create(&models.Listing{
		UserID: user.ID, Title: "item", Status: models.ListingStatusActive,
	}).Error)

	svc := NewStatsService(repository.NewStatsRepository(db), nil)

	_, err := svc.Reconcile(context.Background(), nil, nil)
	require.NoError(t, err)
	first := fetchUser(t, db, user.ID)

	_, err = svc.Reconcile(context.Background(), nil, nil)
	require.NoError(t, err)
	second := fetchUser(t, db, user.ID)

	assert.Equal(t, first.TotalListings, second.TotalListings)
	assert.Equal(t, first.ActiveListings, second.ActiveListings)
	assert.Equal(t, first.ItemsSold, second.ItemsSold)
	assert.Equal(t, first.ItemsBought, second.ItemsBought)
	assert.Equal(t, first.FollowersCount, second.FollowersCount)
	assert.Equal(t, first.FollowingCount, second.FollowingCount)
}

func TestStatsService_PerUserFailureDoesNotAbortRun(t *testing.T) {
	repo := noopStatsRepo()
	repo.userIDsFn = func(context.Context) ([]uint, error) { return []uint{1, 2, 3}, nil }
	repo.sourceCountsFn = func(_ context.Context, userID uint) (repository.StatsSnapshot, error) {
		if userID == 2 {
			return repository.StatsSnapshot{}, errors.New("row lock timeout")
		}
		return repository.StatsSnapshot{TotalListings: int(userID)}, nil
	}

	var processed []uint
	svc := NewStatsService(repo, nil)
	result, err := svc.Reconcile(context.Background(), nil, func(userID uint, _ repository.StatsSnapshot, err error) {
		if err == nil {
			processed = append(processed, userID)
		}
	})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []uint{1, 3}, processed)
}

func TestStatsService_RefusesOverlappingRuns(t *testing.T) {
	repo := noopStatsRepo()

	started := make(chan struct{})
	release := make(chan struct{})
	var startedOnce sync.Once
	repo.userIDsFn = func(context.Context) ([]uint, error) { return []uint{1}, nil }
	repo.sourceCountsFn = func(context.Context, uint) (repository.StatsSnapshot, error) {
		startedOnce.Do(func() { close(started) })
		<-release
		return repository.StatsSnapshot{}, nil
	}

	svc := NewStatsService(repo, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = svc.Reconcile(context.Background(), nil, nil)
	}()

	<-started
	_, err := svc.Reconcile(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrReconcileRunning)

	close(release)
	wg.Wait()

	// Once the first run finishes, a new run is accepted again
	_, err = svc.Reconcile(context.Background(), nil, nil)
	assert.NoError(t, err)
}

func TestStatsService_ReconcileHonorsCancellation(t *testing.T) {
	repo := noopStatsRepo()
	repo.userIDsFn = func(context.Context) ([]uint, error) { return []uint{1, 2, 3}, nil }

	var calls int
	repo.sourceCountsFn = func(context.Context, uint) (repository.StatsSnapshot, error) {
		calls++
		return repository.StatsSnapshot{}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := NewStatsService(repo, nil)
	_, err := svc.Reconcile(ctx, nil, nil)

	assert.Error(t, err)
	assert.Equal(t, 0, calls)
}
