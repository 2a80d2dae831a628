//go:build ignore

// Seeds restaurants and a few demo bookings into the Postgres store.
//
//	go run scripts/seed.go
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/adapters/database"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/adapters/events"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/application/services"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/providers"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/infrastructure/observability"
	"github.com/zatekoja/Restaurantbookingdesign/backend/pkg/config"
)

var restaurants = []entities.Restaurant{
	{ID: "rest-hn-01", Name: "Domique Fusion Hoàn Kiếm", ConceptID: "domique"},
	{ID: "rest-hn-02", Name: "Domique Fusion Tây Hồ", ConceptID: "domique"},
	{ID: "rest-hcm-01", Name: "Phở Sài Gòn Quận 1", ConceptID: "pho-saigon"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	observability.InitLogger("seed", cfg.Env, cfg.LogLevel)

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to DB")
	}
	defer pgClient.Close()

	ctx := context.Background()
	if err := database.Migrate(ctx, pgClient.DB()); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate")
	}

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating tables before seeding")
		if _, err := pgClient.DB().ExecContext(ctx,
			`TRUNCATE TABLE booking_status_history, bookings, notifications, restaurants`); err != nil {
			log.Fatal().Err(err).Msg("Failed to truncate tables")
		}
	}

	restaurantRepo := database.NewRestaurantAdapter(pgClient)
	for i := range restaurants {
		if err := restaurantRepo.Upsert(ctx, &restaurants[i]); err != nil {
			log.Fatal().Err(err).Str("restaurant", restaurants[i].ID).Msg("Failed to seed restaurant")
		}
	}
	log.Info().Int("count", len(restaurants)).Msg("Seeded restaurants")

	// demo bookings go through the service so history and notifications stay consistent
	clock := providers.SystemClock{}
	bus := events.NewLocalEventBus()
	defer bus.Close()
	notifier := services.NewNotificationService(database.NewNotificationAdapter(pgClient.Sqlx()), restaurantRepo, bus, clock,
		services.NotificationSettings{Locale: cfg.Notification.Locale, DefaultBrand: cfg.Notification.DefaultBrand}, nil)
	bookingService := services.NewBookingService(database.NewBookingAdapter(pgClient), notifier, clock, nil)

	tomorrow := clock.Now().In(cfg.Notification.Location()).AddDate(0, 0, 1).Format(entities.BookingDateLayout)
	customers := []entities.Actor{
		{ID: "cust-demo-1", DisplayName: "Nguyễn Văn An", Role: entities.RoleCustomer},
		{ID: "cust-demo-2", DisplayName: "Trần Thị Bình", Role: entities.RoleCustomer},
	}
	for i, customer := range customers {
		booking, err := bookingService.CreateBooking(ctx, customer, entities.BookingDraft{
			RestaurantID:   restaurants[i].ID,
			TimeOfBooking:  tomorrow,
			TimeSlot:       time.Date(0, 1, 1, 18+i, 30, 0, 0, time.UTC).Format(entities.TimeSlotLayout),
			PeopleQuantity: 2 + i*2,
			FullName:       customer.DisplayName,
			NumberPhone:    "090000000" + string(rune('1'+i)),
			Email:          customer.ID + "@example.com",
		})
		if err != nil {
			log.Fatal().Err(err).Str("customer", customer.ID).Msg("Failed to seed booking")
		}
		log.Info().Str("booking_id", booking.ID).Str("restaurant", booking.RestaurantID).Msg("Seeded booking")
	}
}
