// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"swap/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var listingCategories = []string{
	"textbooks", "electronics", "furniture", "clothing", "bikes",
	"kitchen", "music", "tickets", "sports", "misc",
}

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by seed presets and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:   db,
		opts: opts,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateUser constructs and persists a sample user. Optional override
// functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username:    gofakeit.Username() + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
		Email:       gofakeit.Email(),
		DisplayName: gofakeit.Name(),
		Bio:         gofakeit.Sentence(10),
		Avatar:      fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
	}

	// Password handling: allow skipping bcrypt in dev fast mode
	if f.opts.SkipBcrypt {
		user.Password = "password123"
	} else {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		user.Password = string(hashedPassword)
	}

	for _, override := range overrides {
		override(user)
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreateListing constructs and persists a listing for the given user
// with a realistic created_at spread.
func (f *Factory) CreateListing(user *models.User, overrides ...func(*models.Listing)) (*models.Listing, error) {
	listing := &models.Listing{
		UserID:      user.ID,
		Title:       gofakeit.ProductName(),
		Description: gofakeit.Paragraph(1, 3, 8, "\n"),
		PriceCents:  int64(gofakeit.Number(500, 50000)),
		Category:    listingCategories[f.rng.Intn(len(listingCategories))],
		Status:      models.ListingStatusActive,
	}

	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	daysBack := f.rng.Intn(maxDays)
	hoursBack := f.rng.Intn(24)
	listing.CreatedAt = time.Now().
		Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(hoursBack)*time.Hour)

	for _, override := range overrides {
		override(listing)
	}

	if err := f.db.Create(listing).Error; err != nil {
		return nil, err
	}
	return listing, nil
}

// CreatePurchase records a sale: the listing moves to sold and a
// purchase row is written for the buyer.
func (f *Factory) CreatePurchase(listing *models.Listing, buyer *models.User) (*models.Purchase, error) {
	purchase := &models.Purchase{
		UserID:     buyer.ID,
		ListingID:  listing.ID,
		PriceCents: listing.PriceCents,
	}
	if err := f.db.Create(purchase).Error; err != nil {
		return nil, err
	}
	err := f.db.Model(listing).Update("status", models.ListingStatusSold).Error
	return purchase, err
}

// CreateFollow persists a directed follow edge, ignoring duplicates.
func (f *Factory) CreateFollow(follower, followed *models.User) error {
	follow := &models.Follow{FollowerID: follower.ID, FollowedID: followed.ID}
	return f.db.Where(follow).FirstOrCreate(follow).Error
}

// CreateSession persists a chat session between two users.
func (f *Factory) CreateSession(userOne, userTwo *models.User) (*models.ChatSession, error) {
	session := &models.ChatSession{UserOneID: userOne.ID, UserTwoID: userTwo.ID}
	if err := f.db.Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

// CreateMessage persists a text message in a session.
func (f *Factory) CreateMessage(session *models.ChatSession, sender *models.User, overrides ...func(*models.Message)) (*models.Message, error) {
	message := &models.Message{
		SessionID: session.ID,
		SenderID:  sender.ID,
		Body:      gofakeit.Sentence(f.rng.Intn(12) + 3),
		Type:      models.MessageTypeText,
		Metadata:  json.RawMessage("{}"),
	}
	for _, override := range overrides {
		override(message)
	}
	if err := f.db.Create(message).Error; err != nil {
		return nil, err
	}
	return message, nil
}
