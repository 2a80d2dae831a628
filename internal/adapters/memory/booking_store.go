package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/entities"
	"github.com/zatekoja/Restaurantbookingdesign/backend/internal/domain/repositories"
	apperrors "github.com/zatekoja/Restaurantbookingdesign/backend/pkg/errors"
)

// BookingStore is an in-process BookingRepository. A single mutex serialises
// every write so ApplyTransition is a true compare-and-swap.
type BookingStore struct {
	mu       sync.RWMutex
	bookings map[string]*entities.Booking
}

// NewBookingStore creates an empty booking store
func NewBookingStore() *BookingStore {
	return &BookingStore{bookings: make(map[string]*entities.Booking)}
}

// Create stores a copy of the booking
func (s *BookingStore) Create(ctx context.Context, booking *entities.Booking) error {
	if booking == nil || booking.ID == "" {
		return apperrors.NewValidationError("booking id is required")
	}
	if len(booking.StatusHistory) == 0 {
		return apperrors.NewValidationError("booking history must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bookings[booking.ID]; exists {
		return apperrors.NewConflictError(fmt.Sprintf("booking %s already exists", booking.ID))
	}
	s.bookings[booking.ID] = booking.Clone()
	return nil
}

// GetByID returns a copy of the stored booking
func (s *BookingStore) GetByID(ctx context.Context, id string) (*entities.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("booking not found: %s", id))
	}
	return b.Clone(), nil
}

// List returns bookings matching the filter, newest first
func (s *BookingStore) List(ctx context.Context, filter repositories.BookingFilter) ([]*entities.Booking, error) {
	matched := s.collect(func(b *entities.Booking) bool {
		if filter.CustomerID != "" && b.CustomerID != filter.CustomerID {
			return false
		}
		if filter.RestaurantID != "" && b.RestaurantID != filter.RestaurantID {
			return false
		}
		if filter.Status != "" && b.Status != filter.Status {
			return false
		}
		return true
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*entities.Booking{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// ApplyTransition appends a history entry if the stored status still equals from
func (s *BookingStore) ApplyTransition(ctx context.Context, id string, from, to entities.BookingStatus, actor string, at time.Time) (*entities.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("booking not found: %s", id))
	}
	if b.Status != from {
		return nil, apperrors.NewConflictError(fmt.Sprintf("booking %s is %s, expected %s", id, b.Status, from))
	}

	updated := b.Clone()
	updated.Append(to, actor, at)
	s.bookings[id] = updated
	return updated.Clone(), nil
}

// Delete drops the booking
func (s *BookingStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bookings[id]; !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("booking not found: %s", id))
	}
	delete(s.bookings, id)
	return nil
}

// ListCreatedBetween returns bookings still in status that were created within [from, to]
func (s *BookingStore) ListCreatedBetween(ctx context.Context, status entities.BookingStatus, from, to time.Time) ([]*entities.Booking, error) {
	return s.collect(func(b *entities.Booking) bool {
		return b.Status == status && within(b.CreatedAt, from, to)
	}), nil
}

// ListEnteredStatusBetween returns bookings still in status whose history shows it entered within [from, to]
func (s *BookingStore) ListEnteredStatusBetween(ctx context.Context, status entities.BookingStatus, from, to time.Time) ([]*entities.Booking, error) {
	return s.collect(func(b *entities.Booking) bool {
		if b.Status != status {
			return false
		}
		for _, entry := range b.StatusHistory {
			if entry.Status == status && within(entry.UpdatedAt, from, to) {
				return true
			}
		}
		return false
	}), nil
}

// ListByStatusAndSlot returns bookings in status scheduled for date and slot
func (s *BookingStore) ListByStatusAndSlot(ctx context.Context, status entities.BookingStatus, date, slot string) ([]*entities.Booking, error) {
	return s.collect(func(b *entities.Booking) bool {
		return b.Status == status && b.TimeOfBooking == date && b.TimeSlot == slot
	}), nil
}

func (s *BookingStore) collect(match func(*entities.Booking) bool) []*entities.Booking {
	s.mu.RLock()
	out := make([]*entities.Booking, 0)
	for _, b := range s.bookings {
		if match(b) {
			out = append(out, b.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
