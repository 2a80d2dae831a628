// Command sweeper runs the booking sweep as its own process, next to API
// instances started with SWEEP_ENABLED=false. It needs the shared Postgres
// store; with Redis the lock keeps concurrent sweepers from overlapping.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/adapters/cache"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/adapters/database"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/adapters/events"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/adapters/locks"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/application/services"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/providers"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/repositories"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/infrastructure/observability"
	"github.com/zatekoja/Restaurantbookingdesign/backend/pkg/config"
)

// tickRunner runs one sweep tick
type tickRunner interface {
	RunSweepTick(ctx context.Context, now time.Time) (services.SweepResult, error)
}

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup always happens first.
func run() int {
	once := flag.Bool("once", false, "run a single tick and exit")
	at := flag.String("at", "", "RFC3339 instant to sweep for with -once (defaults to now)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-sweeper", cfg.Env, cfg.LogLevel)

	if cfg.StorageDriver != config.StorageDriverPostgres {
		log.Error().Str("storage", cfg.StorageDriver).Msg("The standalone sweeper needs the postgres store")
		return 1
	}

	var tickAt time.Time
	if *at != "" {
		if tickAt, err = time.Parse(time.RFC3339, *at); err != nil {
			log.Error().Err(err).Msg("Invalid -at instant")
			return 2
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName+"-sweeper", cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = shutdown(ctx)
			}()
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize metrics")
		return 1
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize PostgreSQL client")
		return 1
	}
	defer pgClient.Close()

	bookingRepo := database.NewBookingAdapter(pgClient)
	var restaurantRepo repositories.RestaurantRepository = database.NewRestaurantAdapter(pgClient)

	var (
		eventBus  providers.EventBus
		sweepLock providers.SweepLock
	)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		if redisClient, err = redis.NewClient(&cfg.Redis); err != nil {
			log.Warn().Err(err).Msg("Redis unavailable; events stay in this process and the sweep is not coordinated")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}
	if redisClient != nil {
		eventBus = events.NewRedisEventBus(redisClient)
		sweepLock = locks.NewRedisSweepLock(redisClient.Client(), locks.DefaultSweepLockKey)
		restaurantRepo = database.NewCachedRestaurantAdapter(restaurantRepo, cache.NewRedisAdapter(redisClient, "booking"))
	} else {
		eventBus = events.NewLocalEventBus()
		sweepLock = locks.NewLocalSweepLock()
	}

	if cfg.RabbitMQ.URL != "" {
		if publisher, err := events.NewAMQPPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange); err != nil {
			log.Warn().Err(err).Msg("RabbitMQ unavailable, booking events will not be mirrored")
		} else {
			eventBus = events.NewFanoutBus(eventBus, publisher)
		}
	}
	defer eventBus.Close()

	clock := providers.SystemClock{}
	notificationService := services.NewNotificationService(
		database.NewNotificationAdapter(pgClient.Sqlx()), restaurantRepo, eventBus, clock,
		services.NotificationSettings{Locale: cfg.Notification.Locale, DefaultBrand: cfg.Notification.DefaultBrand},
		metrics)
	bookingService := services.NewBookingService(bookingRepo, notificationService, clock, metrics).WithSystemActor(cfg.Sweep.Actor)
	sweepService := services.NewSweepService(bookingRepo, bookingService, notificationService, sweepLock, clock,
		services.SweepSettings{
			Interval: cfg.Sweep.Interval,
			Actor:    cfg.Sweep.Actor,
			LockTTL:  cfg.Sweep.LockTTL,
			Workers:  cfg.Sweep.Workers,
			Location: cfg.Notification.Location(),
		}, metrics)

	if *once {
		if tickAt.IsZero() {
			tickAt = clock.Now()
		}
		return runOnce(ctx, sweepService, tickAt)
	}

	sweepService.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Sweeper shutting down...")
	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Sweep.Interval+5*time.Second)
	defer stopCancel()
	if err := sweepService.Stop(stopCtx); err != nil {
		log.Error().Err(err).Msg("Sweep did not drain before deadline")
	}
	log.Info().Msg("Sweeper stopped")
	return 0
}

// runOnce runs a single tick and reports failure through the exit code
func runOnce(ctx context.Context, sweeper tickRunner, now time.Time) int {
	result, err := sweeper.RunSweepTick(ctx, now)
	if err != nil {
		log.Error().Err(err).Time("now", now).Msg("Sweep tick failed")
		return 1
	}
	log.Info().Interface("result", result).Msg("Sweep tick finished")
	return 0
}
