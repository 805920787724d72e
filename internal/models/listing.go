package models

import (
	"time"

	"gorm.io/gorm"
)

// ListingStatus represents the lifecycle state of a listing.
type ListingStatus string

const (
	// ListingStatusActive indicates a listing visible in the marketplace.
	ListingStatusActive ListingStatus = "active"
	// ListingStatusArchived indicates a listing hidden by its owner.
	ListingStatusArchived ListingStatus = "archived"
	// ListingStatusSold indicates a completed sale. Only the sale service
	// may move a listing into this state.
	ListingStatusSold ListingStatus = "sold"
)

// Listing represents an item offered for sale on Swap.
type Listing struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	User        *User          `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Title       string         `gorm:"not null" json:"title"`
	Description string         `gorm:"type:text" json:"description"`
	PriceCents  int64          `gorm:"not null;default:0" json:"price_cents"`
	Category    string         `gorm:"index" json:"category"`
	Status      ListingStatus  `gorm:"type:varchar(20);default:'active';index:idx_listings_status" json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// Purchase records a confirmed sale from the buyer's side. It is the
// source of truth for the items_bought counter during reconciliation.
type Purchase struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"` // buyer
	ListingID  uint      `gorm:"not null;uniqueIndex" json:"listing_id"`
	Listing    *Listing  `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
	PriceCents int64     `gorm:"not null;default:0" json:"price_cents"`
	CreatedAt  time.Time `json:"created_at"`
}

// Follow is a directed follower relationship between two users.
type Follow struct {
	FollowerID uint      `gorm:"primaryKey;autoIncrement:false" json:"follower_id"`
	FollowedID uint      `gorm:"primaryKey;autoIncrement:false" json:"followed_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Follow) TableName() string {
	return "follows"
}
