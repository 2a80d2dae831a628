package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/adapters/events"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/adapters/locks"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/adapters/memory"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/providers"
)

const sweepActor = "system:sweeper"

var (
	t0      = time.Date(2024, 5, 30, 10, 0, 0, 0, time.UTC)
	alice   = entities.Actor{ID: "staff-1", DisplayName: "Alice", Role: entities.RoleAdmin}
	bob     = entities.Actor{ID: "cust-1", DisplayName: "Nguyen Van A", Role: entities.RoleCustomer}
	mallory = entities.Actor{ID: "cust-2", DisplayName: "Mallory", Role: entities.RoleCustomer}
)

type testEnv struct {
	clock         *providers.FixedClock
	bookings      *memory.BookingStore
	notifications *memory.NotificationStore
	restaurants   *memory.RestaurantStore
	bus           *events.LocalEventBus
	lock          *locks.LocalSweepLock
	notifier      *NotificationService
	service       *BookingService
	sweep         *SweepService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		clock:         providers.NewFixedClock(t0),
		bookings:      memory.NewBookingStore(),
		notifications: memory.NewNotificationStore(),
		restaurants:   memory.NewRestaurantStore(entities.Restaurant{ID: "rest-1", Name: "Pho 24"}),
		bus:           events.NewLocalEventBus(),
		lock:          locks.NewLocalSweepLock(),
	}
	env.notifier = NewNotificationService(env.notifications, env.restaurants, env.bus, env.clock,
		NotificationSettings{Locale: LocaleVietnamese, DefaultBrand: "Domique Fusion"}, nil)
	env.service = NewBookingService(env.bookings, env.notifier, env.clock, nil)
	env.sweep = NewSweepService(env.bookings, env.service, env.notifier, env.lock, env.clock, SweepSettings{
		Interval: time.Minute,
		Actor:    sweepActor,
		LockTTL:  time.Minute,
		Workers:  4,
		Location: time.UTC,
	}, nil)
	t.Cleanup(func() { _ = env.bus.Close() })
	return env
}

func validDraft() entities.BookingDraft {
	return entities.BookingDraft{
		CustomerID:     "cust-1",
		RestaurantID:   "rest-1",
		TimeOfBooking:  "2024-06-01",
		TimeSlot:       "19:00",
		PeopleQuantity: 4,
		FullName:       "Nguyen Van A",
		NumberPhone:    "0900000000",
		Email:          "a@example.com",
	}
}

func (e *testEnv) createBooking(t *testing.T) *entities.Booking {
	t.Helper()
	b, err := e.service.CreateBooking(context.Background(), bob, validDraft())
	require.NoError(t, err)
	return b
}

func (e *testEnv) notificationsOfType(typ entities.NotificationType) []*entities.Notification {
	var out []*entities.Notification
	for _, n := range e.notifications.All() {
		if n.Type == typ {
			out = append(out, n)
		}
	}
	return out
}
