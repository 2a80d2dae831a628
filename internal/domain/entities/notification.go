package entities

import "time"

// NotificationType represents the booking event a notification reports
type NotificationType string

const (
	NotificationBookingCreated    NotificationType = "bookingCreated"
	NotificationBookingConfirmed  NotificationType = "bookingConfirmed"
	NotificationBookingCanceled   NotificationType = "bookingCanceled"
	NotificationBookingInProgress NotificationType = "bookingInProgress"
	NotificationBookingCompleted  NotificationType = "bookingCompleted"
	NotificationBookingReminder   NotificationType = "bookingReminder"
)

// AllNotificationTypes returns every notification type, which doubles as the set of broadcast channels
func AllNotificationTypes() []NotificationType {
	return []NotificationType{
		NotificationBookingCreated,
		NotificationBookingConfirmed,
		NotificationBookingCanceled,
		NotificationBookingInProgress,
		NotificationBookingCompleted,
		NotificationBookingReminder,
	}
}

// NotificationTypeForStatus maps a target status to the event emitted on entering it.
// NO_SHOW has no event.
func NotificationTypeForStatus(status BookingStatus) (NotificationType, bool) {
	switch status {
	case BookingStatusConfirmed:
		return NotificationBookingConfirmed, true
	case BookingStatusInProgress:
		return NotificationBookingInProgress, true
	case BookingStatusCompleted:
		return NotificationBookingCompleted, true
	case BookingStatusCancelledByUser, BookingStatusCancelledByAdmin:
		return NotificationBookingCanceled, true
	}
	return "", false
}

// Notification is a point-in-time record of a booking event shown to a customer.
// It copies the booking fields it displays and keeps no reference to the booking.
// It is also the payload broadcast to live subscribers.
type Notification struct {
	ID             string           `json:"id" db:"id"`
	RecipientID    string           `json:"recipient" db:"recipient_id"`
	RestaurantID   string           `json:"restaurant" db:"restaurant_id"`
	Title          string           `json:"title" db:"title"`
	Message        string           `json:"message" db:"message"`
	Customer       string           `json:"customer" db:"customer"`
	Type           NotificationType `json:"type" db:"type"`
	NumberOfGuests int              `json:"numberOfGuests" db:"number_of_guests"`
	BookingDate    string           `json:"bookingDate" db:"booking_date"`
	Read           bool             `json:"read" db:"read"`
	CreatedAt      time.Time        `json:"createdAt" db:"created_at"`
}
