package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"swap/internal/events"
	"swap/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chatRepoStub is a stub for repository.ChatRepository.
type chatRepoStub struct {
	getOrCreateSessionFn func(context.Context, uint, uint) (*models.ChatSession, error)
	getSessionFn         func(context.Context, uint) (*models.ChatSession, error)
	createMessageFn      func(context.Context, *models.Message) error
	getMessageFn         func(context.Context, uint) (*models.Message, error)
	updateMessageFn      func(context.Context, *models.Message) error
	deleteMessageFn      func(context.Context, uint) error
	getMessagesFn        func(context.Context, uint, int, int) ([]*models.Message, error)
	ensureParticipantFn  func(context.Context, uint, uint) error
	getParticipantFn     func(context.Context, uint, uint) (*models.ChatParticipant, error)
	touchLastReadFn      func(context.Context, uint, uint, time.Time) error
}

func (s *chatRepoStub) GetOrCreateSession(ctx context.Context, userOneID, userTwoID uint) (*models.ChatSession, error) {
	return s.getOrCreateSessionFn(ctx, userOneID, userTwoID)
}
func (s *chatRepoStub) GetSession(ctx context.Context, id uint) (*models.ChatSession, error) {
	return s.getSessionFn(ctx, id)
}
func (s *chatRepoStub) CreateMessage(ctx context.Context, msg *models.Message) error {
	return s.createMessageFn(ctx, msg)
}
func (s *chatRepoStub) GetMessage(ctx context.Context, id uint) (*models.Message, error) {
	return s.getMessageFn(ctx, id)
}
func (s *chatRepoStub) UpdateMessage(ctx context.Context, msg *models.Message) error {
	return s.updateMessageFn(ctx, msg)
}
func (s *chatRepoStub) DeleteMessage(ctx context.Context, id uint) error {
	return s.deleteMessageFn(ctx, id)
}
func (s *chatRepoStub) GetMessages(ctx context.Context, sessionID uint, limit, offset int) ([]*models.Message, error) {
	return s.getMessagesFn(ctx, sessionID, limit, offset)
}
func (s *chatRepoStub) EnsureParticipant(ctx context.Context, sessionID, userID uint) error {
	return s.ensureParticipantFn(ctx, sessionID, userID)
}
func (s *chatRepoStub) GetParticipant(ctx context.Context, sessionID, userID uint) (*models.ChatParticipant, error) {
	return s.getParticipantFn(ctx, sessionID, userID)
}
func (s *chatRepoStub) TouchLastRead(ctx context.Context, sessionID, userID uint, at time.Time) error {
	return s.touchLastReadFn(ctx, sessionID, userID, at)
}

func noopChatRepo() *chatRepoStub {
	return &chatRepoStub{
		getOrCreateSessionFn: func(context.Context, uint, uint) (*models.ChatSession, error) {
			return &models.ChatSession{}, nil
		},
		getSessionFn: func(context.Context, uint) (*models.ChatSession, error) {
			return &models.ChatSession{}, nil
		},
		createMessageFn: func(context.Context, *models.Message) error { return nil },
		getMessageFn: func(context.Context, uint) (*models.Message, error) {
			return &models.Message{}, nil
		},
		updateMessageFn: func(context.Context, *models.Message) error { return nil },
		deleteMessageFn: func(context.Context, uint) error { return nil },
		getMessagesFn: func(context.Context, uint, int, int) ([]*models.Message, error) {
			return nil, nil
		},
		ensureParticipantFn: func(context.Context, uint, uint) error { return nil },
		getParticipantFn: func(context.Context, uint, uint) (*models.ChatParticipant, error) {
			return &models.ChatParticipant{}, nil
		},
		touchLastReadFn: func(context.Context, uint, uint, time.Time) error { return nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	createFn        func(context.Context, *models.User) error
	listFn          func(context.Context, int, int) ([]models.User, error)
	followFn        func(context.Context, uint, uint) error
	unfollowFn      func(context.Context, uint, uint) error
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *userRepoStub) Follow(ctx context.Context, followerID, followedID uint) error {
	return s.followFn(ctx, followerID, followedID)
}
func (s *userRepoStub) Unfollow(ctx context.Context, followerID, followedID uint) error {
	return s.unfollowFn(ctx, followerID, followedID)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Username: "someone"}, nil
		},
		getByUsernameFn: func(context.Context, string) (*models.User, error) {
			return &models.User{}, nil
		},
		createFn:   func(context.Context, *models.User) error { return nil },
		listFn:     func(context.Context, int, int) ([]models.User, error) { return nil, nil },
		followFn:   func(context.Context, uint, uint) error { return nil },
		unfollowFn: func(context.Context, uint, uint) error { return nil },
	}
}

// notifRepoStub is a stub for repository.NotificationRepository.
type notifRepoStub struct {
	createFn      func(context.Context, *models.Notification) error
	listForUserFn func(context.Context, uint, bool, int, int) ([]models.Notification, error)
	markReadFn    func(context.Context, uint) error
	unreadCountFn func(context.Context, uint) (int64, error)
}

func (s *notifRepoStub) Create(ctx context.Context, n *models.Notification) error {
	return s.createFn(ctx, n)
}
func (s *notifRepoStub) ListForUser(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Notification, error) {
	return s.listForUserFn(ctx, userID, unreadOnly, limit, offset)
}
func (s *notifRepoStub) MarkRead(ctx context.Context, id uint) error {
	return s.markReadFn(ctx, id)
}
func (s *notifRepoStub) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.unreadCountFn(ctx, userID)
}

func noopNotifRepo() *notifRepoStub {
	return &notifRepoStub{
		createFn: func(context.Context, *models.Notification) error { return nil },
		listForUserFn: func(context.Context, uint, bool, int, int) ([]models.Notification, error) {
			return nil, nil
		},
		markReadFn:    func(context.Context, uint) error { return nil },
		unreadCountFn: func(context.Context, uint) (int64, error) { return 0, nil },
	}
}

// pushStub records push sends and can be made to fail.
type pushStub struct {
	sent []uint // recipient IDs
	err  error
}

func (p *pushStub) Send(_ context.Context, _ *models.Message, recipientID uint) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, recipientID)
	return nil
}

func pipelineFixture() (*chatRepoStub, *userRepoStub, *notifRepoStub, *pushStub, *MessagePipeline) {
	chatRepo := noopChatRepo()
	userRepo := noopUserRepo()
	notifRepo := noopNotifRepo()
	push := &pushStub{}
	p := NewMessagePipeline(chatRepo, userRepo, notifRepo, push, nil)
	return chatRepo, userRepo, notifRepo, push, p
}

func TestMessagePipeline_BootstrapsParticipantsAndMarksSenderRead(t *testing.T) {
	chatRepo, _, _, _, p := pipelineFixture()

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	type ensured struct{ sessionID, userID uint }
	var ensuredRows []ensured
	chatRepo.ensureParticipantFn = func(_ context.Context, sessionID, userID uint) error {
		ensuredRows = append(ensuredRows, ensured{sessionID, userID})
		return nil
	}
	var touchedUser uint
	var touchedAt time.Time
	chatRepo.touchLastReadFn = func(_ context.Context, _, userID uint, at time.Time) error {
		touchedUser = userID
		touchedAt = at
		return nil
	}

	bus := events.NewBus(nil)
	p.Register(bus)

	session := &models.ChatSession{ID: 10, UserOneID: 1, UserTwoID: 2}
	msg := &models.Message{ID: 100, SessionID: 10, SenderID: 2, Body: "hi"}
	events.Publish(context.Background(), bus, events.MessageSent{Message: msg, Session: session})

	assert.Equal(t, []ensured{{10, 1}, {10, 2}}, ensuredRows)
	assert.Equal(t, uint(2), touchedUser, "only the sender's read cursor moves")
	assert.Equal(t, now, touchedAt)
}

func TestMessagePipeline_PersistsNotificationForRecipientOnly(t *testing.T) {
	_, userRepo, notifRepo, push, p := pipelineFixture()

	userRepo.getByIDFn = func(_ context.Context, id uint) (*models.User, error) {
		return &models.User{ID: id, Username: "alice", DisplayName: "Alice"}, nil
	}

	var created []*models.Notification
	notifRepo.createFn = func(_ context.Context, n *models.Notification) error {
		created = append(created, n)
		return nil
	}

	bus := events.NewBus(nil)
	p.Register(bus)

	session := &models.ChatSession{ID: 10, UserOneID: 1, UserTwoID: 2}
	msg := &models.Message{ID: 100, SessionID: 10, SenderID: 1, Body: "want to trade?"}
	events.Publish(context.Background(), bus, events.MessageSent{Message: msg, Session: session})

	require.Len(t, created, 1)
	n := created[0]
	assert.Equal(t, uint(2), n.UserID, "notification goes to the non-sender")
	assert.Equal(t, "New message from Alice", n.Title)
	assert.Equal(t, "want to trade?", n.Body)
	assert.Equal(t, models.NotificationTypeChatMessage, n.Type)
	assert.False(t, n.IsRead)

	data, err := models.DecodeChatNotificationData(n.Data)
	require.NoError(t, err)
	assert.Equal(t, uint(10), data.SessionID)
	assert.Equal(t, uint(100), data.MessageID)
	assert.Equal(t, uint(1), data.SenderID)

	assert.Equal(t, []uint{2}, push.sent)
}

func TestMessagePipeline_TruncatesLongBodies(t *testing.T) {
	_, _, notifRepo, _, p := pipelineFixture()

	var created *models.Notification
	notifRepo.createFn = func(_ context.Context, n *models.Notification) error {
		created = n
		return nil
	}

	bus := events.NewBus(nil)
	p.Register(bus)

	body := strings.Repeat("a", 75)
	session := &models.ChatSession{ID: 1, UserOneID: 1, UserTwoID: 2}
	events.Publish(context.Background(), bus, events.MessageSent{
		Message: &models.Message{ID: 1, SessionID: 1, SenderID: 1, Body: body},
		Session: session,
	})

	require.NotNil(t, created)
	assert.Equal(t, strings.Repeat("a", 60)+"...", created.Body)
}

func TestTruncateBody(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  string
	}{
		{"under limit", "hello", 60, "hello"},
		{"exactly at limit", strings.Repeat("x", 60), 60, strings.Repeat("x", 60)},
		{"over limit", strings.Repeat("x", 61), 60, strings.Repeat("x", 60) + "..."},
		{"multibyte runes", strings.Repeat("é", 70), 60, strings.Repeat("é", 60) + "..."},
		{"empty", "", 60, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, truncateBody(tt.in, tt.limit))
		})
	}
}

func TestMessagePipeline_FailureIsSwallowed(t *testing.T) {
	chatRepo, _, notifRepo, push, p := pipelineFixture()

	chatRepo.ensureParticipantFn = func(context.Context, uint, uint) error {
		return errors.New("deadlock detected")
	}
	var notified bool
	notifRepo.createFn = func(context.Context, *models.Notification) error {
		notified = true
		return nil
	}

	bus := events.NewBus(nil)
	p.Register(bus)

	session := &models.ChatSession{ID: 1, UserOneID: 1, UserTwoID: 2}
	assert.NotPanics(t, func() {
		events.Publish(context.Background(), bus, events.MessageSent{
			Message: &models.Message{ID: 1, SessionID: 1, SenderID: 1, Body: "hi"},
			Session: session,
		})
	})

	// First failing step aborts the rest of the pipeline
	assert.False(t, notified)
	assert.Empty(t, push.sent)
}

func TestMessagePipeline_PushFailureLeavesEarlierStepsIntact(t *testing.T) {
	chatRepo, _, notifRepo, push, p := pipelineFixture()
	push.err = errors.New("provider 503")

	var participants int
	chatRepo.ensureParticipantFn = func(context.Context, uint, uint) error {
		participants++
		return nil
	}
	var notified bool
	notifRepo.createFn = func(context.Context, *models.Notification) error {
		notified = true
		return nil
	}

	bus := events.NewBus(nil)
	p.Register(bus)

	session := &models.ChatSession{ID: 1, UserOneID: 1, UserTwoID: 2}
	events.Publish(context.Background(), bus, events.MessageSent{
		Message: &models.Message{ID: 1, SessionID: 1, SenderID: 1, Body: "hi"},
		Session: session,
	})

	// Push failing must not roll back what already happened
	assert.Equal(t, 2, participants)
	assert.True(t, notified)
}
