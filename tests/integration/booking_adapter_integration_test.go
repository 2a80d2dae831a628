//go:build integration

package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/adapters/database"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/adapters/events"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/adapters/locks"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/application/services"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/providers"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/repositories"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/Restaurantbookingdesign/backend/pkg/errors"
)

var t0 = time.Date(2024, 5, 30, 10, 0, 0, 0, time.UTC)

type BookingAdapterIntegrationTestSuite struct {
	suite.Suite
	client  *postgres.Client
	adapter repositories.BookingRepository
}

func TestBookingAdapterIntegration(t *testing.T) {
	requireEnv(t, "TEST_DB_HOST")
	suite.Run(t, new(BookingAdapterIntegrationTestSuite))
}

func (s *BookingAdapterIntegrationTestSuite) SetupTest() {
	s.client = newTestPostgresClient(s.T())
	s.adapter = database.NewBookingAdapter(s.client)
}

func (s *BookingAdapterIntegrationTestSuite) newBooking(at time.Time) *entities.Booking {
	b := entities.NewBooking(uuid.New().String(), entities.BookingDraft{
		CustomerID:     "cust-1",
		RestaurantID:   "rest-1",
		TimeOfBooking:  "2024-06-01",
		TimeSlot:       "19:00",
		PeopleQuantity: 4,
		FullName:       "Nguyen Van A",
		NumberPhone:    "0900000000",
		Email:          "a@example.com",
	}, at)
	s.Require().NoError(s.adapter.Create(context.Background(), b))
	return b
}

func (s *BookingAdapterIntegrationTestSuite) TestCreateAndGet() {
	b := s.newBooking(t0)

	got, err := s.adapter.GetByID(context.Background(), b.ID)
	s.Require().NoError(err)
	s.Equal(b.Status, got.Status)
	s.Require().Len(got.StatusHistory, 1)
	s.True(got.StatusHistory[0].UpdatedAt.Equal(t0))

	_, err = s.adapter.GetByID(context.Background(), "missing")
	s.True(apperrors.IsType(err, apperrors.ErrorTypeNotFound))
}

func (s *BookingAdapterIntegrationTestSuite) TestApplyTransitionIsCompareAndSet() {
	ctx := context.Background()
	b := s.newBooking(t0)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, target := range []entities.BookingStatus{entities.BookingStatusConfirmed, entities.BookingStatusCancelledByUser} {
		wg.Add(1)
		go func(i int, target entities.BookingStatus) {
			defer wg.Done()
			_, results[i] = s.adapter.ApplyTransition(ctx, b.ID, entities.BookingStatusPending, target, "writer", t0.Add(time.Minute))
		}(i, target)
	}
	wg.Wait()

	var applied, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			applied++
		case apperrors.IsType(err, apperrors.ErrorTypeConflict):
			conflicts++
		}
	}
	s.Equal(1, applied)
	s.Equal(1, conflicts)

	got, err := s.adapter.GetByID(ctx, b.ID)
	s.Require().NoError(err)
	s.Require().Len(got.StatusHistory, 2)
	s.Equal(got.Status, got.StatusHistory[1].Status)
}

func (s *BookingAdapterIntegrationTestSuite) TestSweepQueries() {
	ctx := context.Background()
	inWindow := s.newBooking(t0)
	s.newBooking(t0.Add(-10 * time.Minute))

	created, err := s.adapter.ListCreatedBetween(ctx, entities.BookingStatusPending, t0.Add(-30*time.Second), t0.Add(30*time.Second))
	s.Require().NoError(err)
	s.Require().Len(created, 1)
	s.Equal(inWindow.ID, created[0].ID)

	_, err = s.adapter.ApplyTransition(ctx, inWindow.ID, entities.BookingStatusPending, entities.BookingStatusConfirmed, "system:sweeper", t0.Add(90*time.Second))
	s.Require().NoError(err)

	entered, err := s.adapter.ListEnteredStatusBetween(ctx, entities.BookingStatusConfirmed, t0.Add(60*time.Second), t0.Add(120*time.Second))
	s.Require().NoError(err)
	s.Require().Len(entered, 1)

	slot, err := s.adapter.ListByStatusAndSlot(ctx, entities.BookingStatusConfirmed, "2024-06-01", "19:00")
	s.Require().NoError(err)
	s.Len(slot, 1)
}

func TestSweepAgainstPostgres(t *testing.T) {
	requireEnv(t, "TEST_DB_HOST")
	ctx := context.Background()
	client := newTestPostgresClient(t)

	clock := providers.NewFixedClock(t0)
	bookings := database.NewBookingAdapter(client)
	bus := events.NewLocalEventBus()
	defer bus.Close()

	notifier := services.NewNotificationService(database.NewNotificationAdapter(client.Sqlx()),
		database.NewRestaurantAdapter(client), bus, clock, services.NotificationSettings{}, nil)
	bookingService := services.NewBookingService(bookings, notifier, clock, nil)
	sweep := services.NewSweepService(bookings, bookingService, notifier, locks.NewLocalSweepLock(), clock,
		services.SweepSettings{Actor: "system:sweeper"}, nil)

	b, err := bookingService.CreateBooking(ctx, entities.Actor{ID: "cust-1", DisplayName: "Nguyen Van A", Role: entities.RoleCustomer}, entities.BookingDraft{
		RestaurantID:   "rest-1",
		TimeOfBooking:  "2024-06-01",
		TimeSlot:       "19:00",
		PeopleQuantity: 4,
		FullName:       "Nguyen Van A",
		NumberPhone:    "0900000000",
		Email:          "a@example.com",
	})
	require.NoError(t, err)

	for _, offset := range []time.Duration{90 * time.Second, 180 * time.Second, 300 * time.Second} {
		_, err := sweep.RunSweepTick(ctx, t0.Add(offset))
		require.NoError(t, err)
	}

	got, err := bookings.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.BookingStatusCompleted, got.Status)
	assert.Len(t, got.StatusHistory, 4)

	inbox, err := notifier.ListForRecipient(ctx, "cust-1", repositories.NotificationFilter{})
	require.NoError(t, err)
	assert.Len(t, inbox, 4)
}
