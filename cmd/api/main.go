package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/adapters/cache"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/adapters/database"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/adapters/events"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/adapters/locks"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/adapters/memory"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/api/handlers"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/api/routes"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/application/services"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/providers"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/repositories"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/infrastructure/observability"
	"github.com/zatekoja/Restaurantbookingdesign/backend/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env, cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	// Redis is optional: without it the process runs with a local bus and lock
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redis.NewClient(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, falling back to in-process event bus and sweep lock")
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis client initialized")
		}
	}

	var (
		bookingRepo      repositories.BookingRepository
		notificationRepo repositories.NotificationRepository
		restaurantRepo   repositories.RestaurantRepository
	)
	switch cfg.StorageDriver {
	case config.StorageDriverPostgres:
		pgClient, err := postgres.NewClient(&cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
		}
		defer pgClient.Close()

		if err := database.Migrate(ctx, pgClient.DB()); err != nil {
			log.Fatal().Err(err).Msg("Failed to migrate booking schema")
		}

		bookingRepo = database.NewBookingAdapter(pgClient)
		notificationRepo = database.NewNotificationAdapter(pgClient.Sqlx())
		restaurantRepo = database.NewRestaurantAdapter(pgClient)
		if redisClient != nil {
			restaurantRepo = database.NewCachedRestaurantAdapter(restaurantRepo, cache.NewRedisAdapter(redisClient, "booking"))
			log.Info().Msg("Restaurant lookups cached in Redis")
		}
	default:
		log.Warn().Msg("Using in-memory storage; data is lost on restart")
		bookingRepo = memory.NewBookingStore()
		notificationRepo = memory.NewNotificationStore()
		restaurantRepo = memory.NewRestaurantStore()
	}

	var (
		eventBus  providers.EventBus
		sweepLock providers.SweepLock
	)
	if redisClient != nil {
		eventBus = events.NewRedisEventBus(redisClient)
		sweepLock = locks.NewRedisSweepLock(redisClient.Client(), locks.DefaultSweepLockKey)
	} else {
		eventBus = events.NewLocalEventBus()
		sweepLock = locks.NewLocalSweepLock()
	}

	if cfg.RabbitMQ.URL != "" {
		publisher, err := events.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Warn().Err(err).Msg("RabbitMQ unavailable, booking events will not be mirrored")
		} else {
			eventBus = events.NewFanoutBus(eventBus, publisher)
			log.Info().Str("exchange", cfg.RabbitMQ.Exchange).Msg("Mirroring booking events to RabbitMQ")
		}
	}

	clock := providers.SystemClock{}
	location := cfg.Notification.Location()

	notificationService := services.NewNotificationService(notificationRepo, restaurantRepo, eventBus, clock,
		services.NotificationSettings{
			Locale:       cfg.Notification.Locale,
			DefaultBrand: cfg.Notification.DefaultBrand,
		}, metrics)
	bookingService := services.NewBookingService(bookingRepo, notificationService, clock, metrics).WithSystemActor(cfg.Sweep.Actor)
	sweepService := services.NewSweepService(bookingRepo, bookingService, notificationService, sweepLock, clock,
		services.SweepSettings{
			Interval: cfg.Sweep.Interval,
			Actor:    cfg.Sweep.Actor,
			LockTTL:  cfg.Sweep.LockTTL,
			Workers:  cfg.Sweep.Workers,
			Location: location,
		}, metrics)

	if cfg.Sweep.Enabled {
		sweepService.Start(ctx)
	} else {
		log.Info().Msg("In-process sweep disabled")
	}

	router := routes.NewRouter(
		handlers.NewBookingHandler(bookingService),
		handlers.NewNotificationHandler(notificationService),
		handlers.NewSSEHandler(eventBus),
		handlers.NewSweepHandler(sweepService, clock),
		cfg.Server.AllowedOrigins,
		metrics,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     router.SetupRoutes(),
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: the booking event stream is long-lived
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Str("storage", cfg.StorageDriver).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := sweepService.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Sweep did not drain before shutdown deadline")
	}
	// closing the bus ends open event streams so Shutdown does not wait on them
	if err := eventBus.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing event bus")
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	log.Info().Msg("Server stopped")
}
