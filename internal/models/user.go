// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a user in the Swap marketplace.
//
// The stats columns (TotalListings through FollowingCount) are denormalized
// aggregates. They have exactly two writers: the listing observer, which
// applies incremental atomic deltas on the hot path, and the stats
// reconciler, which periodically overwrites all of them from the source
// tables. No other code computes or mutates them.
type User struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	Username    string         `gorm:"unique;not null" json:"username"`
	Email       string         `gorm:"unique;not null" json:"email"`
	Password    string         `gorm:"not null" json:"-"`
	DisplayName string         `json:"display_name"`
	Bio         string         `json:"bio"`
	Avatar      string         `json:"avatar"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	TotalListings    int        `gorm:"not null;default:0" json:"total_listings"`
	ActiveListings   int        `gorm:"not null;default:0" json:"active_listings"`
	ItemsSold        int        `gorm:"not null;default:0" json:"items_sold"`
	ItemsBought      int        `gorm:"not null;default:0" json:"items_bought"`
	FollowersCount   int        `gorm:"not null;default:0" json:"followers_count"`
	FollowingCount   int        `gorm:"not null;default:0" json:"following_count"`
	StatsLastUpdated *time.Time `json:"stats_last_updated,omitempty"`

	Listings []Listing `gorm:"foreignKey:UserID" json:"listings,omitempty"`
}

// Name returns the user-facing display name, falling back to the username.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
