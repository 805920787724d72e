package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// ChatSession represents a 1-on-1 conversation between two fixed users.
// The participant pair is symmetric and never changes for the lifetime
// of the session.
type ChatSession struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	UserOneID uint           `gorm:"not null;index:idx_chat_sessions_pair" json:"user_one_id"`
	UserTwoID uint           `gorm:"not null;index:idx_chat_sessions_pair" json:"user_two_id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Messages []Message `gorm:"foreignKey:SessionID" json:"messages,omitempty"`
}

// OtherParticipant returns the session participant that is not userID.
func (s *ChatSession) OtherParticipant(userID uint) uint {
	if s.UserOneID == userID {
		return s.UserTwoID
	}
	return s.UserOneID
}

// HasParticipant reports whether userID is one of the two fixed participants.
func (s *ChatSession) HasParticipant(userID uint) bool {
	return s.UserOneID == userID || s.UserTwoID == userID
}

// ChatParticipant tracks per-user read state within a session. Rows are
// created lazily the first time a message flows through the session.
type ChatParticipant struct {
	SessionID  uint       `gorm:"primaryKey;autoIncrement:false" json:"session_id"`
	UserID     uint       `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	JoinedAt   time.Time  `gorm:"autoCreateTime" json:"joined_at"`
	LastReadAt *time.Time `json:"last_read_at,omitempty"`
}

// Message types understood by clients.
const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeOffer = "offer"
)

// Message represents a chat message within a session.
type Message struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	SessionID uint            `gorm:"not null;index" json:"session_id"`
	Session   *ChatSession    `gorm:"foreignKey:SessionID" json:"session,omitempty"`
	SenderID  uint            `gorm:"not null;index" json:"sender_id"`
	Sender    *User           `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Body      string          `gorm:"type:text;not null" json:"body"`
	Type      string          `gorm:"default:'text'" json:"type"`
	Metadata  json.RawMessage `gorm:"type:json" json:"metadata,omitempty"`
	IsRead    bool            `gorm:"default:false" json:"is_read"`
	ReadAt    *time.Time      `json:"read_at,omitempty"`
	EditedAt  *time.Time      `json:"edited_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
}

// Offer lifecycle states carried in offer message metadata.
const (
	OfferStatusPending  = "pending"
	OfferStatusAccepted = "accepted"
	OfferStatusRejected = "rejected"
)

// OfferMetadata is the structured payload of an offer message. It is
// serialized into Message.Metadata at the persistence boundary.
type OfferMetadata struct {
	ListingID   uint   `json:"listing_id"`
	AmountCents int64  `json:"amount_cents"`
	Status      string `json:"status"`
}

// OfferFromMessage decodes offer metadata from a message. Returns an
// error for non-offer messages or malformed metadata.
func OfferFromMessage(msg *Message) (*OfferMetadata, error) {
	if msg.Type != MessageTypeOffer {
		return nil, NewValidationError("Message is not an offer")
	}
	var offer OfferMetadata
	if err := json.Unmarshal(msg.Metadata, &offer); err != nil {
		return nil, NewInternalError(err)
	}
	return &offer, nil
}

// ApplyToMessage writes the offer metadata back onto the message.
func (o *OfferMetadata) ApplyToMessage(msg *Message) error {
	raw, err := json.Marshal(o)
	if err != nil {
		return NewInternalError(err)
	}
	msg.Metadata = raw
	return nil
}
