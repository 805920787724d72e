package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix    = "user:%d"
	ListingKeyPrefix = "listing:%d"
)

const (
	UserTTL    = 5 * time.Minute
	ListingTTL = 10 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func ListingKey(listingID uint) string {
	return fmt.Sprintf(ListingKeyPrefix, listingID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidateUser drops the cached user row. Called after counter
// overwrites so stale aggregates don't outlive a reconciliation run.
func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateListing(ctx context.Context, listingID uint) {
	Invalidate(ctx, ListingKey(listingID))
}
