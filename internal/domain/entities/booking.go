package entities

import (
	"fmt"
	"time"
)

// Layouts for the calendar date and time-of-day label stored on a booking
const (
	BookingDateLayout = "2006-01-02"
	TimeSlotLayout    = "15:04"
	// DisplayDateLayout is the day-first layout used in notification texts.
	DisplayDateLayout = "02/01/2006"
)

// StatusHistoryEntry is one append-only audit record of a status change
type StatusHistoryEntry struct {
	Status    BookingStatus `json:"status" db:"status"`
	UpdatedAt time.Time     `json:"updatedAt" db:"updated_at"`
	UpdatedBy string        `json:"updatedBy" db:"updated_by"`
}

// Booking represents one table reservation and its lifecycle state
type Booking struct {
	ID             string               `json:"id" db:"id"`
	CustomerID     string               `json:"customer" db:"customer_id"`
	RestaurantID   string               `json:"restaurant" db:"restaurant_id"`
	TimeOfBooking  string               `json:"timeOfBooking" db:"time_of_booking"`
	TimeSlot       string               `json:"timeSlot" db:"time_slot"`
	PeopleQuantity int                  `json:"peopleQuantity" db:"people_quantity"`
	FullName       string               `json:"fullName" db:"full_name"`
	NumberPhone    string               `json:"numberPhone" db:"number_phone"`
	Email          string               `json:"email" db:"email"`
	Notes          string               `json:"notes,omitempty" db:"notes"`
	Status         BookingStatus        `json:"status" db:"status"`
	StatusHistory  []StatusHistoryEntry `json:"statusHistory"`
	Version        int                  `json:"version" db:"version"`
	CreatedAt      time.Time            `json:"createdAt" db:"created_at"`
}

// BookingDraft is the customer-supplied input for a new booking
type BookingDraft struct {
	CustomerID     string `json:"customer" validate:"required"`
	RestaurantID   string `json:"restaurant" validate:"required"`
	TimeOfBooking  string `json:"timeOfBooking" validate:"required,datetime=2006-01-02"`
	TimeSlot       string `json:"timeSlot" validate:"required,datetime=15:04"`
	PeopleQuantity int    `json:"peopleQuantity" validate:"required,gt=0"`
	FullName       string `json:"fullName" validate:"required"`
	NumberPhone    string `json:"numberPhone" validate:"required"`
	Email          string `json:"email" validate:"required,email"`
	Notes          string `json:"notes"`
}

// NewBooking builds a PENDING booking from a draft, seeding the history with the
// customer's own name as the author of the initial entry.
func NewBooking(id string, draft BookingDraft, now time.Time) *Booking {
	return &Booking{
		ID:             id,
		CustomerID:     draft.CustomerID,
		RestaurantID:   draft.RestaurantID,
		TimeOfBooking:  draft.TimeOfBooking,
		TimeSlot:       draft.TimeSlot,
		PeopleQuantity: draft.PeopleQuantity,
		FullName:       draft.FullName,
		NumberPhone:    draft.NumberPhone,
		Email:          draft.Email,
		Notes:          draft.Notes,
		Status:         BookingStatusPending,
		StatusHistory: []StatusHistoryEntry{
			{Status: BookingStatusPending, UpdatedAt: now, UpdatedBy: draft.FullName},
		},
		Version:   1,
		CreatedAt: now,
	}
}

// LastEntry returns the most recent history entry
func (b *Booking) LastEntry() (StatusHistoryEntry, bool) {
	if len(b.StatusHistory) == 0 {
		return StatusHistoryEntry{}, false
	}
	return b.StatusHistory[len(b.StatusHistory)-1], true
}

// Append records a status change: one new history entry and the matching status.
func (b *Booking) Append(status BookingStatus, actor string, at time.Time) {
	b.StatusHistory = append(b.StatusHistory, StatusHistoryEntry{
		Status:    status,
		UpdatedAt: at,
		UpdatedBy: actor,
	})
	b.Status = status
	b.Version++
}

// Clone returns a deep copy; history entries are never shared between copies.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	c := *b
	c.StatusHistory = make([]StatusHistoryEntry, len(b.StatusHistory))
	copy(c.StatusHistory, b.StatusHistory)
	return &c
}

// ScheduledAt combines the booking date and slot in the given location
func (b *Booking) ScheduledAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(BookingDateLayout+" "+TimeSlotLayout, b.TimeOfBooking+" "+b.TimeSlot, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid booking schedule %q %q: %w", b.TimeOfBooking, b.TimeSlot, err)
	}
	return t, nil
}

// DisplayDate formats the date and slot as "DD/MM/YYYY HH:MM".
// Dates that do not parse are shown as stored.
func (b *Booking) DisplayDate() string {
	date := b.TimeOfBooking
	if t, err := time.Parse(BookingDateLayout, b.TimeOfBooking); err == nil {
		date = t.Format(DisplayDateLayout)
	}
	if b.TimeSlot == "" {
		return date
	}
	return date + " " + b.TimeSlot
}
