// Command statsync recomputes per-user statistics from the source tables.
//
// Usage:
//
//	statsync           reconcile every user
//	statsync <user-id> reconcile a single user
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"swap/internal/cache"
	"swap/internal/config"
	"swap/internal/database"
	"swap/internal/observability"
	"swap/internal/repository"
	"swap/internal/service"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	// Cache invalidation after each overwrite is best-effort; without
	// Redis the run still completes.
	cache.InitRedis(cfg.RedisURL)

	var userID *uint
	if len(os.Args) > 1 {
		id, err := strconv.ParseUint(os.Args[1], 10, 32)
		if err != nil {
			log.Fatalf("Invalid user id %q: %v", os.Args[1], err)
		}
		uid := uint(id)
		userID = &uid
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	statsRepo := repository.NewStatsRepository(db)
	stats := service.NewStatsService(statsRepo, observability.Logger)

	result, err := stats.Reconcile(ctx, userID, func(id uint, snap repository.StatsSnapshot, err error) {
		if err != nil {
			fmt.Printf("Failed to sync stats for user %d: %v\n", id, err)
			return
		}
		fmt.Printf("Synced stats for user %d (listings: %d total / %d active, sold: %d, bought: %d, followers: %d, following: %d)\n",
			id, snap.TotalListings, snap.ActiveListings, snap.ItemsSold,
			snap.ItemsBought, snap.FollowersCount, snap.FollowingCount)
	})
	if err != nil {
		log.Fatalf("Reconciliation failed: %v", err)
	}

	fmt.Printf("Synced stats for %d users (%d failed) in %s\n",
		result.Processed, result.Failed, result.Duration.Round(time.Millisecond))
	if result.Failed > 0 {
		os.Exit(1)
	}
}
