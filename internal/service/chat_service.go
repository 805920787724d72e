package service

import (
	"context"
	"encoding/json"
	"time"

	"swap/internal/events"
	"swap/internal/models"
	"swap/internal/observability"
	"swap/internal/repository"
)

const maxMessageBodyLen = 10000 // 10K characters

// ChatService provides chat session and message business logic. Message
// persistence is the trigger for the side-effect pipeline and the
// realtime relay, both of which subscribe to the events this service
// publishes after each durable write.
type ChatService struct {
	chatRepo repository.ChatRepository
	userRepo repository.UserRepository
	bus      *events.Bus
}

// SendMessageInput is the input for sending a message.
type SendMessageInput struct {
	SenderID  uint
	SessionID uint
	Body      string
	Type      string
	Metadata  json.RawMessage
}

// SendOfferInput is the input for sending a purchase offer.
type SendOfferInput struct {
	SenderID    uint
	SessionID   uint
	ListingID   uint
	AmountCents int64
	Body        string
}

// NewChatService returns a new ChatService.
func NewChatService(chatRepo repository.ChatRepository, userRepo repository.UserRepository, bus *events.Bus) *ChatService {
	return &ChatService{chatRepo: chatRepo, userRepo: userRepo, bus: bus}
}

// OpenSession returns the 1-on-1 session between the two users, creating
// it on first contact.
func (s *ChatService) OpenSession(ctx context.Context, userID, otherUserID uint) (*models.ChatSession, error) {
	if userID == otherUserID {
		return nil, models.NewValidationError("Cannot open a chat session with yourself")
	}
	return s.chatRepo.GetOrCreateSession(ctx, userID, otherUserID)
}

// SendMessage sends a message in a session.
func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (*models.Message, error) {
	if in.Body == "" {
		return nil, models.NewValidationError("Message body is required")
	}
	if len(in.Body) > maxMessageBodyLen {
		return nil, models.NewValidationError("Message body too long (max 10000 characters)")
	}
	if in.Type == "" {
		in.Type = models.MessageTypeText
	}
	if in.Metadata == nil {
		in.Metadata = json.RawMessage("{}")
	}

	session, err := s.chatRepo.GetSession(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if !session.HasParticipant(in.SenderID) {
		return nil, models.NewForbiddenError("You are not a participant in this session")
	}

	message := &models.Message{
		SessionID: in.SessionID,
		SenderID:  in.SenderID,
		Body:      in.Body,
		Type:      in.Type,
		Metadata:  in.Metadata,
	}
	if err := s.chatRepo.CreateMessage(ctx, message); err != nil {
		return nil, err
	}
	observability.MessageThroughput.WithLabelValues(message.Type).Inc()

	events.Publish(ctx, s.bus, events.MessageSent{Message: message, Session: session})
	return message, nil
}

// SendOffer sends a purchase offer as an offer-typed message.
func (s *ChatService) SendOffer(ctx context.Context, in SendOfferInput) (*models.Message, error) {
	if in.ListingID == 0 {
		return nil, models.NewValidationError("Offer requires a listing")
	}
	if in.AmountCents <= 0 {
		return nil, models.NewValidationError("Offer amount must be positive")
	}
	if in.Body == "" {
		in.Body = "Made an offer"
	}

	offer := &models.OfferMetadata{
		ListingID:   in.ListingID,
		AmountCents: in.AmountCents,
		Status:      models.OfferStatusPending,
	}
	raw, err := json.Marshal(offer)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	message, err := s.SendMessage(ctx, SendMessageInput{
		SenderID:  in.SenderID,
		SessionID: in.SessionID,
		Body:      in.Body,
		Type:      models.MessageTypeOffer,
		Metadata:  raw,
	})
	if err != nil {
		return nil, err
	}

	session, err := s.chatRepo.GetSession(ctx, in.SessionID)
	if err != nil {
		return message, nil
	}
	events.Publish(ctx, s.bus, events.OfferSent{Message: message, Session: session, Offer: offer})
	return message, nil
}

// RespondToOffer accepts or rejects a pending offer. Only the session
// participant who did not send the offer may respond.
func (s *ChatService) RespondToOffer(ctx context.Context, actorID, messageID uint, accept bool) (*models.Message, error) {
	message, err := s.chatRepo.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	offer, err := models.OfferFromMessage(message)
	if err != nil {
		return nil, err
	}
	if offer.Status != models.OfferStatusPending {
		return nil, models.NewValidationError("Offer has already been resolved")
	}

	session, err := s.chatRepo.GetSession(ctx, message.SessionID)
	if err != nil {
		return nil, err
	}
	if !session.HasParticipant(actorID) || actorID == message.SenderID {
		return nil, models.NewForbiddenError("Only the offer recipient can respond")
	}

	if accept {
		offer.Status = models.OfferStatusAccepted
	} else {
		offer.Status = models.OfferStatusRejected
	}
	if err := offer.ApplyToMessage(message); err != nil {
		return nil, err
	}
	if err := s.chatRepo.UpdateMessage(ctx, message); err != nil {
		return nil, models.NewInternalError(err)
	}

	if accept {
		events.Publish(ctx, s.bus, events.OfferAccepted{Message: message, Session: session, Offer: offer})
	} else {
		events.Publish(ctx, s.bus, events.OfferRejected{Message: message, Session: session, Offer: offer})
	}
	return message, nil
}

// EditMessage replaces the body of the sender's own message.
func (s *ChatService) EditMessage(ctx context.Context, actorID, messageID uint, body string) (*models.Message, error) {
	if body == "" {
		return nil, models.NewValidationError("Message body is required")
	}
	message, err := s.chatRepo.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if message.SenderID != actorID {
		return nil, models.NewForbiddenError("Only the sender can edit a message")
	}

	now := time.Now().UTC()
	message.Body = body
	message.EditedAt = &now
	if err := s.chatRepo.UpdateMessage(ctx, message); err != nil {
		return nil, models.NewInternalError(err)
	}

	session, err := s.chatRepo.GetSession(ctx, message.SessionID)
	if err != nil {
		return message, nil
	}
	events.Publish(ctx, s.bus, events.MessageEdited{Message: message, Session: session})
	return message, nil
}

// DeleteMessage soft-deletes the sender's own message.
func (s *ChatService) DeleteMessage(ctx context.Context, actorID, messageID uint) error {
	message, err := s.chatRepo.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if message.SenderID != actorID {
		return models.NewForbiddenError("Only the sender can delete a message")
	}
	if err := s.chatRepo.DeleteMessage(ctx, messageID); err != nil {
		return models.NewInternalError(err)
	}

	events.Publish(ctx, s.bus, events.MessageDeleted{
		MessageID: messageID,
		SessionID: message.SessionID,
		SenderID:  message.SenderID,
	})
	return nil
}

// MarkRead advances the user's read cursor to now.
func (s *ChatService) MarkRead(ctx context.Context, sessionID, userID uint) error {
	session, err := s.chatRepo.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.HasParticipant(userID) {
		return models.NewForbiddenError("You are not a participant in this session")
	}

	if err := s.chatRepo.EnsureParticipant(ctx, sessionID, userID); err != nil {
		return models.NewInternalError(err)
	}
	if err := s.chatRepo.TouchLastRead(ctx, sessionID, userID, time.Now().UTC()); err != nil {
		return models.NewInternalError(err)
	}

	events.Publish(ctx, s.bus, events.MessageRead{SessionID: sessionID, UserID: userID})
	return nil
}

// GetMessages returns a page of session messages in chronological order.
func (s *ChatService) GetMessages(ctx context.Context, sessionID, userID uint, limit, offset int) ([]*models.Message, error) {
	session, err := s.chatRepo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.HasParticipant(userID) {
		return nil, models.NewForbiddenError("You are not a participant in this session")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.chatRepo.GetMessages(ctx, sessionID, limit, offset)
}
