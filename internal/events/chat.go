package events

import "swap/internal/models"

// MessageSent fires after a chat message row has been durably persisted.
// Session carries the two fixed participant ids so subscribers do not
// need to reload it.
type MessageSent struct {
	Message *models.Message
	Session *models.ChatSession
}

// MessageEdited fires after a message body edit has been persisted.
type MessageEdited struct {
	Message *models.Message
	Session *models.ChatSession
}

// MessageDeleted fires after a message has been soft-deleted.
type MessageDeleted struct {
	MessageID uint
	SessionID uint
	SenderID  uint
}

// MessageRead fires after a participant's read cursor advanced.
type MessageRead struct {
	SessionID uint
	UserID    uint
}

// OfferSent fires after an offer message has been persisted.
type OfferSent struct {
	Message *models.Message
	Session *models.ChatSession
	Offer   *models.OfferMetadata
}

// OfferAccepted fires after the listing owner accepted an offer.
type OfferAccepted struct {
	Message *models.Message
	Session *models.ChatSession
	Offer   *models.OfferMetadata
}

// OfferRejected fires after the listing owner rejected an offer.
type OfferRejected struct {
	Message *models.Message
	Session *models.ChatSession
	Offer   *models.OfferMetadata
}
