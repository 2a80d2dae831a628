package entities

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending          BookingStatus = "PENDING"
	BookingStatusConfirmed        BookingStatus = "CONFIRMED"
	BookingStatusInProgress       BookingStatus = "IN_PROGRESS"
	BookingStatusCompleted        BookingStatus = "COMPLETED"
	BookingStatusCancelledByUser  BookingStatus = "CANCELLED_BY_USER"
	BookingStatusCancelledByAdmin BookingStatus = "CANCELLED_BY_ADMIN"
	BookingStatusNoShow           BookingStatus = "NO_SHOW"
)

// bookingTransitions lists every allowed edge; statuses without an entry are terminal.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending: {
		BookingStatusConfirmed,
		BookingStatusCancelledByUser,
		BookingStatusCancelledByAdmin,
		BookingStatusNoShow,
	},
	BookingStatusConfirmed: {
		BookingStatusInProgress,
		BookingStatusCancelledByAdmin,
		BookingStatusNoShow,
	},
	BookingStatusInProgress: {
		BookingStatusCompleted,
		BookingStatusNoShow,
	},
}

var allBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusInProgress,
	BookingStatusCompleted,
	BookingStatusCancelledByUser,
	BookingStatusCancelledByAdmin,
	BookingStatusNoShow,
}

// AllBookingStatuses returns every status in lifecycle order
func AllBookingStatuses() []BookingStatus {
	out := make([]BookingStatus, len(allBookingStatuses))
	copy(out, allBookingStatuses)
	return out
}

// IsValid reports whether s is a known status
func (s BookingStatus) IsValid() bool {
	for _, known := range allBookingStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s
func (s BookingStatus) IsTerminal() bool {
	return s.IsValid() && len(bookingTransitions[s]) == 0
}

// CanTransitionTo reports whether the lifecycle has an edge from s to target
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// AllowedTargets returns the statuses reachable from s in one step
func (s BookingStatus) AllowedTargets() []BookingStatus {
	targets := bookingTransitions[s]
	out := make([]BookingStatus, len(targets))
	copy(out, targets)
	return out
}

// IsCancellation reports whether s is one of the cancelled states
func (s BookingStatus) IsCancellation() bool {
	return s == BookingStatusCancelledByUser || s == BookingStatusCancelledByAdmin
}
