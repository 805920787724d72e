package models

import (
	"encoding/json"
	"time"
)

// Notification types.
const (
	NotificationTypeChatMessage = "chat_message"
)

// Notification is an offline notification persisted for later delivery.
// Exactly one row is created per inbound chat message, for the recipient
// only (never the sender).
type Notification struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"not null;index" json:"user_id"` // recipient
	Title     string          `gorm:"not null" json:"title"`
	Body      string          `gorm:"type:text" json:"body"`
	Type      string          `gorm:"not null;index" json:"type"`
	Data      json.RawMessage `gorm:"type:json" json:"data,omitempty"`
	IsRead    bool            `gorm:"default:false" json:"is_read"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ChatNotificationData is the structured payload of a chat notification.
// Clients use it for deep-linking into the session. It lives as a struct
// in application code and is serialized only at the persistence boundary.
type ChatNotificationData struct {
	SessionID uint `json:"session_id"`
	MessageID uint `json:"message_id"`
	SenderID  uint `json:"sender_id"`
}

// Encode serializes the payload for storage in Notification.Data.
func (d ChatNotificationData) Encode() (json.RawMessage, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, NewInternalError(err)
	}
	return raw, nil
}

// DecodeChatNotificationData round-trips a stored payload back into its
// structured form.
func DecodeChatNotificationData(raw json.RawMessage) (*ChatNotificationData, error) {
	var d ChatNotificationData
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, NewInternalError(err)
	}
	return &d, nil
}
