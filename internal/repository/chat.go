package repository

import (
	"context"
	"errors"
	"time"

	"swap/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRepository defines the interface for chat data operations
type ChatRepository interface {
	GetOrCreateSession(ctx context.Context, userOneID, userTwoID uint) (*models.ChatSession, error)
	GetSession(ctx context.Context, id uint) (*models.ChatSession, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id uint) (*models.Message, error)
	UpdateMessage(ctx context.Context, msg *models.Message) error
	DeleteMessage(ctx context.Context, id uint) error
	GetMessages(ctx context.Context, sessionID uint, limit, offset int) ([]*models.Message, error)
	EnsureParticipant(ctx context.Context, sessionID, userID uint) error
	GetParticipant(ctx context.Context, sessionID, userID uint) (*models.ChatParticipant, error)
	TouchLastRead(ctx context.Context, sessionID, userID uint, at time.Time) error
}

// chatRepository implements ChatRepository
type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

// GetOrCreateSession finds the session for an unordered user pair,
// creating it if none exists yet.
func (r *chatRepository) GetOrCreateSession(ctx context.Context, userOneID, userTwoID uint) (*models.ChatSession, error) {
	var session models.ChatSession
	err := r.db.WithContext(ctx).
		Where("(user_one_id = ? AND user_two_id = ?) OR (user_one_id = ? AND user_two_id = ?)",
			userOneID, userTwoID, userTwoID, userOneID).
		First(&session).Error
	if err == nil {
		return &session, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewInternalError(err)
	}

	session = models.ChatSession{UserOneID: userOneID, UserTwoID: userTwoID}
	if err := r.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return &session, nil
}

func (r *chatRepository) GetSession(ctx context.Context, id uint) (*models.ChatSession, error) {
	var session models.ChatSession
	if err := r.db.WithContext(ctx).First(&session, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Chat session", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &session, nil
}

func (r *chatRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *chatRepository) GetMessage(ctx context.Context, id uint) (*models.Message, error) {
	var msg models.Message
	if err := r.db.WithContext(ctx).First(&msg, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Message", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &msg, nil
}

func (r *chatRepository) UpdateMessage(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Save(msg).Error
}

func (r *chatRepository) DeleteMessage(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Message{}, id).Error
}

func (r *chatRepository) GetMessages(ctx context.Context, sessionID uint, limit, offset int) ([]*models.Message, error) {
	var messages []*models.Message
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Preload("Sender").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Fetched DESC to get the latest page; clients expect chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, nil
}

// EnsureParticipant lazily creates the participant row. Calling it when
// the row already exists is a no-op.
func (r *chatRepository) EnsureParticipant(ctx context.Context, sessionID, userID uint) error {
	participant := models.ChatParticipant{
		SessionID: sessionID,
		UserID:    userID,
	}
	// Use OnConflict to silently ignore duplicate key errors
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&participant).Error
}

func (r *chatRepository) GetParticipant(ctx context.Context, sessionID, userID uint) (*models.ChatParticipant, error) {
	var participant models.ChatParticipant
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		First(&participant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Chat participant", userID)
		}
		return nil, models.NewInternalError(err)
	}
	return &participant, nil
}

func (r *chatRepository) TouchLastRead(ctx context.Context, sessionID, userID uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.ChatParticipant{}).
		Where("session_id = ? AND user_id = ?", sessionID, userID).
		Update("last_read_at", at).Error
}
