// Command seed populates the development database with demo data.
package main

import (
	"flag"
	"log"

	"swap/internal/cache"
	"swap/internal/config"
	"swap/internal/database"
	"swap/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 25, "number of users to create")
	numListings := flag.Int("listings", 100, "number of listings to create")
	clean := flag.Bool("clean", false, "delete existing data first")
	fast := flag.Bool("fast", false, "skip bcrypt hashing for faster seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	cache.InitRedis(cfg.RedisURL)

	if err := seed.Seed(db, seed.Options{
		NumUsers:    *numUsers,
		NumListings: *numListings,
		ShouldClean: *clean,
		SkipBcrypt:  *fast,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
}
