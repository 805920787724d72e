package notifications

import (
	"context"

	"swap/internal/events"
	"swap/internal/models"
)

// Relay forwards chat domain events to the real-time broadcaster. It is
// a pure fan-out subscriber: it never fails the publishing operation.
type Relay struct {
	broadcaster *Broadcaster
}

// NewRelay returns a Relay backed by the given broadcaster.
func NewRelay(broadcaster *Broadcaster) *Relay {
	return &Relay{broadcaster: broadcaster}
}

// Register subscribes the relay to every chat event.
func (r *Relay) Register(bus *events.Bus) {
	events.Subscribe(bus, r.onMessageSent)
	events.Subscribe(bus, r.onMessageEdited)
	events.Subscribe(bus, r.onMessageDeleted)
	events.Subscribe(bus, r.onMessageRead)
	events.Subscribe(bus, r.onOfferSent)
	events.Subscribe(bus, r.onOfferAccepted)
	events.Subscribe(bus, r.onOfferRejected)
}

func messagePayload(m *models.Message) map[string]interface{} {
	payload := map[string]interface{}{
		"message_id": m.ID,
		"session_id": m.SessionID,
		"sender_id":  m.SenderID,
		"body":       m.Body,
		"type":       m.Type,
	}
	if m.EditedAt != nil {
		payload["edited_at"] = m.EditedAt
	}
	return payload
}

func offerPayload(m *models.Message, offer *models.OfferMetadata) map[string]interface{} {
	payload := messagePayload(m)
	payload["listing_id"] = offer.ListingID
	payload["amount_cents"] = offer.AmountCents
	payload["offer_status"] = offer.Status
	return payload
}

func (r *Relay) onMessageSent(ctx context.Context, e events.MessageSent) error {
	r.broadcaster.Publish(ctx, EventMessageSent, e.Message.SessionID, messagePayload(e.Message))
	return nil
}

func (r *Relay) onMessageEdited(ctx context.Context, e events.MessageEdited) error {
	r.broadcaster.Publish(ctx, EventMessageEdited, e.Message.SessionID, messagePayload(e.Message))
	return nil
}

func (r *Relay) onMessageDeleted(ctx context.Context, e events.MessageDeleted) error {
	r.broadcaster.Publish(ctx, EventMessageDeleted, e.SessionID, map[string]interface{}{
		"message_id": e.MessageID,
		"session_id": e.SessionID,
		"sender_id":  e.SenderID,
	})
	return nil
}

func (r *Relay) onMessageRead(ctx context.Context, e events.MessageRead) error {
	r.broadcaster.Publish(ctx, EventMessageRead, e.SessionID, map[string]interface{}{
		"session_id": e.SessionID,
		"user_id":    e.UserID,
	})
	return nil
}

func (r *Relay) onOfferSent(ctx context.Context, e events.OfferSent) error {
	r.broadcaster.Publish(ctx, EventOfferSent, e.Message.SessionID, offerPayload(e.Message, e.Offer))
	return nil
}

func (r *Relay) onOfferAccepted(ctx context.Context, e events.OfferAccepted) error {
	r.broadcaster.Publish(ctx, EventOfferAccepted, e.Message.SessionID, offerPayload(e.Message, e.Offer))
	return nil
}

func (r *Relay) onOfferRejected(ctx context.Context, e events.OfferRejected) error {
	r.broadcaster.Publish(ctx, EventOfferRejected, e.Message.SessionID, offerPayload(e.Message, e.Offer))
	return nil
}
