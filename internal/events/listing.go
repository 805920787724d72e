package events

import "swap/internal/models"

// ListingCreated fires after a listing row has been persisted.
type ListingCreated struct {
	ListingID uint
	UserID    uint
}

// ListingStatusChanged fires after a listing's status column changed.
// From and To carry the before/after values so subscribers can react to
// specific transitions without re-reading the row.
type ListingStatusChanged struct {
	ListingID uint
	UserID    uint
	From      models.ListingStatus
	To        models.ListingStatus
}

// ListingDeleted fires after a listing has been deleted. Status is the
// listing's status at the moment of deletion.
type ListingDeleted struct {
	ListingID uint
	UserID    uint
	Status    models.ListingStatus
}
