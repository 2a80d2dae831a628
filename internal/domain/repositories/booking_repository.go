package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
)

// BookingRepository defines the interface for booking persistence.
// Implementations keep statusHistory append-only.
type BookingRepository interface {
	// Create persists a new booking exactly as built by entities.NewBooking
	Create(ctx context.Context, booking *entities.Booking) error

	// GetByID retrieves a booking with its full history
	GetByID(ctx context.Context, id string) (*entities.Booking, error)

	// List retrieves bookings matching the filter, newest first
	List(ctx context.Context, filter BookingFilter) ([]*entities.Booking, error)

	// ApplyTransition appends {to, at, actor} and sets status = to, atomically and only
	// while the stored status still equals from. It returns the updated booking,
	// a not found error for unknown ids and a conflict error if the status moved on.
	ApplyTransition(ctx context.Context, id string, from, to entities.BookingStatus, actor string, at time.Time) (*entities.Booking, error)

	// Delete removes a booking and its history; unknown ids give a not found error
	Delete(ctx context.Context, id string) error

	// ListCreatedBetween returns bookings currently in status whose createdAt is in [from, to]
	ListCreatedBetween(ctx context.Context, status entities.BookingStatus, from, to time.Time) ([]*entities.Booking, error)

	// ListEnteredStatusBetween returns bookings currently in status whose history holds an
	// entry for that status timestamped in [from, to]
	ListEnteredStatusBetween(ctx context.Context, status entities.BookingStatus, from, to time.Time) ([]*entities.Booking, error)

	// ListByStatusAndSlot returns bookings in status booked for the given date and slot
	ListByStatusAndSlot(ctx context.Context, status entities.BookingStatus, date, slot string) ([]*entities.Booking, error)
}

// BookingFilter defines filters for listing bookings
type BookingFilter struct {
	CustomerID   string
	RestaurantID string
	Status       entities.BookingStatus
	Limit        int
	Offset       int
}
