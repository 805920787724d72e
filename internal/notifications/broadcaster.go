// Package notifications provides real-time event publishing and the push
// delivery boundary.
package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"swap/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Realtime event names published to session channels. Clients subscribe
// to a session's channel and dispatch on these.
const (
	EventMessageSent   = "message.sent"
	EventMessageEdited = "message.edited"
	EventMessageDeleted = "message.deleted"
	EventMessageRead   = "message.read"
	EventOfferSent     = "offer.sent"
	EventOfferAccepted = "offer.accepted"
	EventOfferRejected = "offer.rejected"
)

// Broadcaster publishes domain events to per-session real-time channels.
// Publishes are fire-and-forget: the transport gives no delivery
// guarantee and failures are logged, never propagated.
type Broadcaster struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewBroadcaster creates a Broadcaster using the provided Redis client.
// A nil client disables publishing entirely.
func NewBroadcaster(rdb *redis.Client, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = observability.Logger
	}
	return &Broadcaster{rdb: rdb, logger: logger}
}

// SessionChannel derives the channel name for a chat session.
func SessionChannel(sessionID uint) string {
	return "private-chat." + strconv.FormatUint(uint64(sessionID), 10)
}

// Publish sends (event, payload) to the session's channel.
func (b *Broadcaster) Publish(ctx context.Context, event string, sessionID uint, payload map[string]interface{}) {
	if b.rdb == nil {
		return
	}
	envelope := map[string]interface{}{
		"event":   event,
		"payload": payload,
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		observability.RealtimePublishFailures.WithLabelValues(event).Inc()
		b.logger.ErrorContext(ctx, "failed to marshal realtime event",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := b.rdb.Publish(ctx, SessionChannel(sessionID), string(raw)).Err(); err != nil {
		observability.RealtimePublishFailures.WithLabelValues(event).Inc()
		b.logger.ErrorContext(ctx, "failed to publish realtime event",
			slog.String("event", event),
			slog.Uint64("session_id", uint64(sessionID)),
			slog.String("error", err.Error()),
		)
	}
}

// StartSessionSubscriber subscribes to every session channel and calls
// onMessage for each incoming message. Used by delivery-side workers.
func (b *Broadcaster) StartSessionSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if b.rdb == nil {
		return nil
	}
	sub := b.rdb.PSubscribe(ctx, "private-chat.*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				onMessage(msg.Channel, msg.Payload)
			}
		}
	}()

	return nil
}
