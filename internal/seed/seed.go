package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"swap/internal/models"
	"swap/internal/repository"
	"swap/internal/service"

	"gorm.io/gorm"
)

// Options configuration for the seeder.
type Options struct {
	NumUsers    int
	NumListings int
	MaxDays     int
	ShouldClean bool
	SkipBcrypt  bool
}

// Seed populates the database with test data: users, listings, a spread
// of follows, some completed purchases, and chat sessions with messages.
// It finishes with a full stats reconciliation so the denormalized
// counters match the seeded source rows.
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("Seeding database with %d users and %d listings...", opts.NumUsers, opts.NumListings)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("Warning: could not clear all existing data, continuing anyway")
		}
	}

	f := NewFactory(db, opts)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user, err := f.CreateUser()
		if err != nil {
			return fmt.Errorf("failed to create users: %w", err)
		}
		users = append(users, user)
	}
	log.Printf("created %d users", len(users))

	if len(users) < 2 {
		return nil
	}

	listings := make([]*models.Listing, 0, opts.NumListings)
	for i := 0; i < opts.NumListings; i++ {
		owner := users[rng.Intn(len(users))]
		listing, err := f.CreateListing(owner)
		if err != nil {
			return fmt.Errorf("failed to create listings: %w", err)
		}
		listings = append(listings, listing)
	}
	log.Printf("created %d listings", len(listings))

	// Roughly a fifth of the listings end up sold
	sold := 0
	for _, listing := range listings {
		if rng.Intn(5) != 0 {
			continue
		}
		buyer := users[rng.Intn(len(users))]
		if buyer.ID == listing.UserID {
			continue
		}
		if _, err := f.CreatePurchase(listing, buyer); err != nil {
			return fmt.Errorf("failed to create purchases: %w", err)
		}
		sold++
	}
	log.Printf("recorded %d purchases", sold)

	// Sparse follow mesh
	follows := 0
	for _, follower := range users {
		for i := 0; i < rng.Intn(4); i++ {
			followed := users[rng.Intn(len(users))]
			if followed.ID == follower.ID {
				continue
			}
			if err := f.CreateFollow(follower, followed); err != nil {
				return fmt.Errorf("failed to create follows: %w", err)
			}
			follows++
		}
	}
	log.Printf("created %d follows", follows)

	// A few conversations between random pairs
	sessions := 0
	for i := 0; i < len(users)/2; i++ {
		a := users[rng.Intn(len(users))]
		b := users[rng.Intn(len(users))]
		if a.ID == b.ID {
			continue
		}
		session, err := f.CreateSession(a, b)
		if err != nil {
			return fmt.Errorf("failed to create chat sessions: %w", err)
		}
		for m := 0; m < rng.Intn(8)+2; m++ {
			sender := a
			if rng.Intn(2) == 0 {
				sender = b
			}
			if _, err := f.CreateMessage(session, sender); err != nil {
				return fmt.Errorf("failed to create messages: %w", err)
			}
		}
		sessions++
	}
	log.Printf("created %d chat sessions", sessions)

	// Bring the counters in line with what was just written
	stats := service.NewStatsService(repository.NewStatsRepository(db), nil)
	result, err := stats.Reconcile(context.Background(), nil, nil)
	if err != nil {
		return fmt.Errorf("failed to reconcile seeded stats: %w", err)
	}
	log.Printf("reconciled stats for %d users", result.Processed)

	log.Println("Seeding complete")
	return nil
}

func clearData(db *gorm.DB) error {
	// Children before parents
	tables := []string{
		"messages", "chat_participants", "chat_sessions",
		"notifications", "purchases", "follows", "listings", "users",
	}
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return err
		}
	}
	return nil
}
