package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"swap/internal/events"
	"swap/internal/models"
	"swap/internal/notifications"
	"swap/internal/observability"
	"swap/internal/repository"
)

// notificationBodyLimit is the preview length for offline notifications.
const notificationBodyLimit = 60

// MessagePipeline performs the side effects of a sent message: read-state
// bookkeeping, offline notification persistence, and push dispatch.
//
// The pipeline runs synchronously after the message row is durable, as
// one failure domain separate from message persistence: the first failing
// step is logged with the message id and swallowed, and nothing already
// done is rolled back. Notifications are best-effort, at-most-once; a
// failure here is never retried and never reaches the sender.
type MessagePipeline struct {
	chatRepo  repository.ChatRepository
	userRepo  repository.UserRepository
	notifRepo repository.NotificationRepository
	push      notifications.PushSender
	logger    *slog.Logger

	now func() time.Time
}

// NewMessagePipeline returns a new MessagePipeline.
func NewMessagePipeline(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	notifRepo repository.NotificationRepository,
	push notifications.PushSender,
	logger *slog.Logger,
) *MessagePipeline {
	if logger == nil {
		logger = observability.Logger
	}
	return &MessagePipeline{
		chatRepo:  chatRepo,
		userRepo:  userRepo,
		notifRepo: notifRepo,
		push:      push,
		logger:    logger,
		now:       time.Now,
	}
}

// Register subscribes the pipeline to message events.
func (p *MessagePipeline) Register(bus *events.Bus) {
	events.Subscribe(bus, p.onMessageSent)
}

func (p *MessagePipeline) onMessageSent(ctx context.Context, ev events.MessageSent) error {
	if err := p.run(ctx, ev.Message, ev.Session); err != nil {
		p.logger.ErrorContext(ctx, "message side-effect pipeline failed",
			slog.Uint64("message_id", uint64(ev.Message.ID)),
			slog.String("error", err.Error()),
		)
	}
	// Swallowed by design: the message is already sent and visible.
	return nil
}

func (p *MessagePipeline) run(ctx context.Context, msg *models.Message, session *models.ChatSession) error {
	span, ctx := observability.NewSpan(ctx, "chat.message_pipeline")
	defer span.End()

	if err := p.bootstrapParticipants(ctx, msg, session); err != nil {
		observability.MessagePipelineFailures.WithLabelValues("participants").Inc()
		span.SetError(err)
		return fmt.Errorf("participant bootstrap: %w", err)
	}
	if err := p.persistNotification(ctx, msg, session); err != nil {
		observability.MessagePipelineFailures.WithLabelValues("notification").Inc()
		span.SetError(err)
		return fmt.Errorf("notification persistence: %w", err)
	}
	if err := p.push.Send(ctx, msg, session.OtherParticipant(msg.SenderID)); err != nil {
		observability.MessagePipelineFailures.WithLabelValues("push").Inc()
		span.SetError(err)
		return fmt.Errorf("push dispatch: %w", err)
	}
	return nil
}

// bootstrapParticipants lazily creates the participant rows for both
// fixed session members, then advances the sender's read cursor: sending
// a message implicitly marks your own view as caught up.
func (p *MessagePipeline) bootstrapParticipants(ctx context.Context, msg *models.Message, session *models.ChatSession) error {
	for _, userID := range []uint{session.UserOneID, session.UserTwoID} {
		if err := p.chatRepo.EnsureParticipant(ctx, session.ID, userID); err != nil {
			return err
		}
	}
	return p.chatRepo.TouchLastRead(ctx, session.ID, msg.SenderID, p.now())
}

// persistNotification creates exactly one offline notification, for the
// participant who is not the sender.
func (p *MessagePipeline) persistNotification(ctx context.Context, msg *models.Message, session *models.ChatSession) error {
	recipientID := session.OtherParticipant(msg.SenderID)

	sender, err := p.userRepo.GetByID(ctx, msg.SenderID)
	if err != nil {
		return err
	}

	data, err := models.ChatNotificationData{
		SessionID: session.ID,
		MessageID: msg.ID,
		SenderID:  msg.SenderID,
	}.Encode()
	if err != nil {
		return err
	}

	return p.notifRepo.Create(ctx, &models.Notification{
		UserID: recipientID,
		Title:  fmt.Sprintf("New message from %s", sender.Name()),
		Body:   truncateBody(msg.Body, notificationBodyLimit),
		Type:   models.NotificationTypeChatMessage,
		Data:   data,
		IsRead: false,
	})
}

// truncateBody shortens text to limit runes, marking the cut with an
// ellipsis. Text at or under the limit is returned unmodified.
func truncateBody(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
