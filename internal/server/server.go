// Package server wires the application together and exposes its HTTP
// surface: health probes and Prometheus metrics.
package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"swap/internal/cache"
	"swap/internal/config"
	"swap/internal/database"
	"swap/internal/events"
	"swap/internal/notifications"
	"swap/internal/observability"
	"swap/internal/repository"
	"swap/internal/scheduler"
	"swap/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus

	bus         *events.Bus
	broadcaster *notifications.Broadcaster

	userRepo     repository.UserRepository
	listingRepo  repository.ListingRepository
	chatRepo     repository.ChatRepository
	notifRepo    repository.NotificationRepository
	statsRepo    repository.StatsRepository

	listingService *service.ListingService
	saleService    *service.SaleService
	chatService    *service.ChatService
	statsService   *service.StatsService

	statsRunner *scheduler.Runner

	shutdownCancel context.CancelFunc
	shutdownFns    []func(context.Context) error
}

// NewServer creates a new server instance with all dependencies.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	return NewServerWithDeps(cfg, db, redisClient)
}

// NewServerWithDeps creates a Server using already-initialized
// dependencies. Use this in tests or when a bootstrap layer establishes
// DB and Redis separately.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: fiberprometheus.New("swap"),
	}

	server.userRepo = repository.NewUserRepository(db)
	server.listingRepo = repository.NewListingRepository(db)
	server.chatRepo = repository.NewChatRepository(db)
	server.notifRepo = repository.NewNotificationRepository(db)
	server.statsRepo = repository.NewStatsRepository(db)

	server.bus = events.NewBus(observability.Logger)
	server.broadcaster = notifications.NewBroadcaster(redisClient, observability.Logger)

	server.listingService = service.NewListingService(server.listingRepo, server.bus)
	server.saleService = service.NewSaleService(db, server.listingRepo, server.statsRepo, server.bus)
	server.chatService = service.NewChatService(server.chatRepo, server.userRepo, server.bus)
	server.statsService = service.NewStatsService(server.statsRepo, observability.Logger)

	// Subscription order matters: side effects run before fan-out so a
	// realtime consumer never sees a message whose participants do not
	// exist yet.
	observer := service.NewStatsObserver(server.statsRepo, observability.Logger)
	observer.Register(server.bus)

	pipeline := service.NewMessagePipeline(
		server.chatRepo,
		server.userRepo,
		server.notifRepo,
		notifications.NewLogPushSender(observability.Logger),
		observability.Logger,
	)
	pipeline.Register(server.bus)

	relay := notifications.NewRelay(server.broadcaster)
	relay.Register(server.bus)

	server.statsRunner = scheduler.NewRunner(
		server.statsService, cfg.StatsSyncInterval(), observability.Logger)

	if cfg.TracingEnabled {
		shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
			ServiceName:  "swap",
			Environment:  cfg.Env,
			Enabled:      true,
			Exporter:     cfg.TraceExporter,
			OTLPEndpoint: cfg.OTLPEndpoint,
			SamplerRatio: 1.0,
		})
		if err != nil {
			return nil, fmt.Errorf("tracing init failed: %w", err)
		}
		server.shutdownFns = append(server.shutdownFns, shutdownTracing)
	}

	return server, nil
}

// Bus exposes the event bus for bootstrap-time subscribers.
func (s *Server) Bus() *events.Bus { return s.bus }

// StatsService exposes the reconciler, used by the statsync command.
func (s *Server) StatsService() *service.StatsService { return s.statsService }

// ChatService exposes chat operations.
func (s *Server) ChatService() *service.ChatService { return s.chatService }

// ListingService exposes listing operations.
func (s *Server) ListingService() *service.ListingService { return s.listingService }

// SaleService exposes sale confirmation.
func (s *Server) SaleService() *service.SaleService { return s.saleService }

// Start launches background workers. Call before serving traffic.
func (s *Server) Start(ctx context.Context) {
	ctx, s.shutdownCancel = context.WithCancel(ctx)
	s.statsRunner.Start(ctx)
}

// SetupMiddleware configures middleware for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(ContextMiddleware())
	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}
	app.Use(StructuredLogger())
}

// SetupRoutes configures the operational routes.
func (s *Server) SetupRoutes(app *fiber.App) {
	s.app = app

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
}

// LivenessCheck handles liveness probe requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// Realtime fan-out is degraded without Redis but the core
		// marketplace still works.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Shutdown gracefully releases all server resources.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownCancel != nil {
		s.shutdownCancel()
	}
	if s.statsRunner != nil {
		s.statsRunner.Stop()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	for _, fn := range s.shutdownFns {
		if err := fn(ctx); err != nil {
			log.Printf("error during resource shutdown: %v", err)
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Printf("error closing Redis client: %v", err)
		}
	}

	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Printf("error closing database: %v", err)
			}
		}
	}

	return nil
}
